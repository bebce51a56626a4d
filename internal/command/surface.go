/**
 * Command Surface.
 *
 * Surface is the single seam the GUI shell's IPC layer calls through: one
 * Go method per named operation in spec.md §6, each returning (T, error)
 * so the typed apperr.Kind becomes the JSON error string the shell expects.
 * It composes every processing package (aggregator, topology, storage,
 * signature, analyzer, ingest, physical) behind one state mutex, mirroring
 * the single state-mutex rule the teacher's capture engine follows for its
 * own accumulators.
 */

package command

import (
	"sync"
	"time"

	"github.com/kusanaginokajiki/gridmonitor/internal/aggregator"
	"github.com/kusanaginokajiki/gridmonitor/internal/config"
	"github.com/kusanaginokajiki/gridmonitor/internal/enricher"
	"github.com/kusanaginokajiki/gridmonitor/internal/models"
	"github.com/kusanaginokajiki/gridmonitor/internal/signature"
	"github.com/kusanaginokajiki/gridmonitor/internal/storage"
)

// AppInfo answers get_app_info.
type AppInfo struct {
	Name    string
	Version string
}

// Surface holds every live component the command operations touch. One
// state mutex guards the aggregator, imported-file list, and analysis
// results; the live capture lifecycle has its own mutex (captureMu) since
// starting/stopping a capture takes longer than any single state read.
type Surface struct {
	mu sync.RWMutex

	paths    config.Paths
	settings config.Settings
	store    storage.Storage
	engine   *signature.Engine
	vendor   *enricher.VendorLookup
	geo      *enricher.GeoIPService

	agg *aggregator.Aggregator

	physical *models.PhysicalTopology

	importedFiles []string
	findings      []models.Finding
	purdue        []models.PurdueAssignment
	anomalies     []models.Anomaly
	currentSession string

	captureMu    sync.Mutex
	capture      *liveCaptureState
}

// New wires a Surface from its already-constructed dependencies: the
// caller (cmd/gridmonitor/main.go) is responsible for opening the store,
// loading signatures, and resolving paths first.
func New(paths config.Paths, settings config.Settings, store storage.Storage, engine *signature.Engine, vendor *enricher.VendorLookup, geo *enricher.GeoIPService) *Surface {
	return &Surface{
		paths:    paths,
		settings: settings,
		store:    store,
		engine:   engine,
		vendor:   vendor,
		geo:      geo,
		agg:      aggregator.New(vendor, geo, engine),
		physical: models.NewPhysicalTopology(),
	}
}

// GetAppInfo answers get_app_info.
func (s *Surface) GetAppInfo() (AppInfo, error) {
	return AppInfo{Name: "gridmonitor", Version: storage.AppVersion}, nil
}

// GetSettings answers get_settings.
func (s *Surface) GetSettings() (config.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

// SaveSettings answers save_settings: persists to disk and updates the
// in-memory copy only once the write succeeds.
func (s *Surface) SaveSettings(settings config.Settings) error {
	if err := config.Save(s.paths.SettingsFile, settings); err != nil {
		return err
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	return nil
}

// ListPlugins answers list_plugins: scans the plugins directory for
// per-subdirectory manifest.json files and caches the result, metadata
// passthrough only per §6.
func (s *Surface) ListPlugins() ([]models.PluginManifest, error) {
	manifests, err := scanPluginManifests(s.paths.PluginsDir)
	if err != nil {
		return nil, err
	}
	for _, m := range manifests {
		_ = s.store.CachePluginManifest(m.Path, m)
	}
	return s.store.ListCachedPluginManifests()
}

// snapshotLocked returns the aggregator's current snapshot under the read
// lock; callers already holding s.mu should call s.agg.Snapshot() directly.
func (s *Surface) snapshotLocked() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agg.Snapshot()
}

func nowUTC() time.Time { return time.Now().UTC() }
