/**
 * Session CRUD & Baseline Comparison.
 *
 * save_session, load_session, list_sessions, delete_session, update_asset,
 * bulk_update_assets, export_session_archive, import_session_archive, and
 * compare_sessions.
 */

package command

import (
	"time"

	"github.com/google/uuid"

	"github.com/kusanaginokajiki/gridmonitor/internal/analyzer"
	"github.com/kusanaginokajiki/gridmonitor/internal/apperr"
	"github.com/kusanaginokajiki/gridmonitor/internal/models"
	"github.com/kusanaginokajiki/gridmonitor/internal/storage"
)

// SaveSession answers save_session(name, desc?): persists the current
// aggregator snapshot as a new session, or overwrites the currently loaded
// one if one is already active.
func (s *Surface) SaveSession(name, description string) (*models.Session, error) {
	s.mu.Lock()
	snapshot := s.agg.Snapshot()
	id := s.currentSession
	imported := append([]string(nil), s.importedFiles...)
	s.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}

	deepParse := make(map[string]models.DeepParseInfo, len(snapshot.Assets))
	for _, a := range snapshot.Assets {
		s.mu.RLock()
		info, ok := s.agg.DeepParseInfo(a.IPAddress)
		s.mu.RUnlock()
		if ok {
			deepParse[a.IPAddress] = info
		}
	}

	now := time.Now().UTC()
	session := &models.Session{
		ID:              id,
		Name:            name,
		Description:     description,
		CreatedAt:       now,
		UpdatedAt:       now,
		AssetCount:      len(snapshot.Assets),
		ConnectionCount: len(snapshot.Connections),
		Metadata: models.SessionMetadata{
			DeepParse:     deepParse,
			ImportedFiles: imported,
		},
	}

	if err := s.store.SaveSession(session, snapshot); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.currentSession = id
	s.mu.Unlock()
	return session, nil
}

// LoadSession answers load_session(id): loads a prior session's assets and
// connections back into the aggregator, replacing the current working
// view. Per §7, a load failure leaves the previously loaded session intact.
func (s *Surface) LoadSession(id string) (*models.Session, error) {
	session, snapshot, err := s.store.LoadSession(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.agg = s.agg.ReplacedWith(snapshot)
	s.currentSession = id
	s.importedFiles = append([]string(nil), session.Metadata.ImportedFiles...)
	s.mu.Unlock()

	return session, nil
}

// ListSessions answers list_sessions.
func (s *Surface) ListSessions() ([]*models.Session, error) {
	return s.store.ListSessions()
}

// DeleteSession answers delete_session(id).
func (s *Surface) DeleteSession(id string) error {
	return s.store.DeleteSession(id)
}

// AssetUpdate carries the subset of Asset fields update_asset/
// bulk_update_assets may change; nil pointers leave the corresponding
// field untouched.
type AssetUpdate struct {
	DeviceType  *models.DeviceType
	PurdueLevel *int
	Notes       *string
	AddTags     []string
}

// UpdateAsset answers update_asset(id, fields): id is the asset's IP
// address, the key Asset is addressed by.
func (s *Surface) UpdateAsset(ip string, fields AssetUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agg.UpdateAsset(ip, func(a *models.Asset) {
		applyAssetUpdate(a, fields)
	})
}

// BulkUpdateAssets answers bulk_update_assets(ids[], fields): the same
// field set is applied to every named asset; assets not found are skipped
// rather than aborting the whole batch, and the returned count is the
// number of assets actually updated.
func (s *Surface) BulkUpdateAssets(ips []string, fields AssetUpdate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for _, ip := range ips {
		if err := s.agg.UpdateAsset(ip, func(a *models.Asset) {
			applyAssetUpdate(a, fields)
		}); err == nil {
			updated++
		}
	}
	return updated, nil
}

func applyAssetUpdate(a *models.Asset, fields AssetUpdate) {
	if fields.DeviceType != nil {
		a.DeviceType = *fields.DeviceType
	}
	if fields.PurdueLevel != nil {
		a.PurdueLevel = *fields.PurdueLevel
		a.ManualLevel = true
	}
	if fields.Notes != nil {
		a.Notes = *fields.Notes
	}
	for _, tag := range fields.AddTags {
		a.AddTag(tag)
	}
}

// ExportSessionArchive answers export_session_archive(id, path).
func (s *Surface) ExportSessionArchive(id, path string) error {
	return storage.ExportArchive(s.store, id, path)
}

// ImportSessionArchive answers import_session_archive(path).
func (s *Surface) ImportSessionArchive(path string) (*models.Session, error) {
	return storage.ImportArchive(s.store, path)
}

// CompareSessions answers compare_sessions(baseline_id): diffs the current
// working view against a previously saved session.
func (s *Surface) CompareSessions(baselineID string) (models.BaselineDrift, error) {
	_, baselineSnapshot, err := s.store.LoadSession(baselineID)
	if err != nil {
		return models.BaselineDrift{}, apperr.Wrap(apperr.NotFound, "baseline session not found", err)
	}

	current := s.snapshotLocked()
	return analyzer.CompareToBaseline(baselineSnapshot.Assets, current.Assets, baselineSnapshot.Connections, current.Connections), nil
}
