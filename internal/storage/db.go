/**
 * Storage Interface.
 *
 * Defines the contract for persisting sessions, so the command surface and
 * CLI can depend on an interface rather than the SQLite backend directly.
 */

package storage

import "github.com/kusanaginokajiki/gridmonitor/internal/models"

// Storage persists sessions built from an aggregator snapshot and the
// findings an analysis pass produced over it.
type Storage interface {
	Close() error
	Migrate() error

	// SaveSession inserts or replaces a session's metadata, assets, and
	// connections, and appends an asset_history row for every asset so a
	// later baseline comparison can diff against this save.
	SaveSession(session *models.Session, snapshot models.Snapshot) error
	LoadSession(id string) (*models.Session, models.Snapshot, error)
	ListSessions() ([]*models.Session, error)
	DeleteSession(id string) error

	// LoadAssetHistory returns the most recently recorded history row per
	// IP for a session, the input CompareToBaseline needs for its baseline
	// argument.
	LoadAssetHistory(sessionID string) ([]models.Asset, error)

	SaveFindings(sessionID string, findings []models.Finding) error
	LoadFindings(sessionID string) ([]models.Finding, error)

	CachePluginManifest(path string, m models.PluginManifest) error
	ListCachedPluginManifests() ([]models.PluginManifest, error)
}
