/**
 * SQLite Implementation.
 *
 * Implements the Storage interface using SQLite3, the session-store
 * backend a standalone deployment embeds directly (§4.11).
 */

package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kusanaginokajiki/gridmonitor/internal/apperr"
	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

// SQLiteStorage implements Storage over a single SQLite database file.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (creating if absent) the database at dbPath.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, apperr.Wrap(apperr.DbError, "failed to open database", err)
	}
	if err := db.Ping(); err != nil {
		return nil, apperr.Wrap(apperr.DbError, "failed to ping database", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Close() error { return s.db.Close() }

func (s *SQLiteStorage) Migrate() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return apperr.Wrap(apperr.DbError, "failed to apply schema", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SaveSession inserts or replaces a session's metadata, assets, and
// connections, and appends an asset_history row for every asset so a
// later baseline comparison can diff against this save (§4.11).
func (s *SQLiteStorage) SaveSession(session *models.Session, snapshot models.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return apperr.Wrap(apperr.DbError, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	metaJSON, err := MarshalMetadata(session.Metadata)
	if err != nil {
		return apperr.Wrap(apperr.DbError, "failed to encode session metadata", err)
	}

	_, err = tx.Exec(`
		INSERT INTO sessions (id, name, description, created_at, updated_at, asset_count, connection_count, metadata_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, description = excluded.description, updated_at = excluded.updated_at,
			asset_count = excluded.asset_count, connection_count = excluded.connection_count,
			metadata_json = excluded.metadata_json`,
		session.ID, session.Name, session.Description, session.CreatedAt, session.UpdatedAt,
		len(snapshot.Assets), len(snapshot.Connections), string(metaJSON))
	if err != nil {
		return apperr.Wrap(apperr.DbError, "failed to save session metadata", err)
	}

	if _, err := tx.Exec(`DELETE FROM assets WHERE session_id = ?`, session.ID); err != nil {
		return apperr.Wrap(apperr.DbError, "failed to clear prior assets", err)
	}
	if _, err := tx.Exec(`DELETE FROM connections WHERE session_id = ?`, session.ID); err != nil {
		return apperr.Wrap(apperr.DbError, "failed to clear prior connections", err)
	}

	recordedAt := time.Now()
	for _, a := range snapshot.Assets {
		protocolsJSON, _ := json.Marshal(a.Protocols)
		tagsJSON, _ := json.Marshal(a.Tags)
		sigsJSON, _ := json.Marshal(a.Signatures)

		_, err := tx.Exec(`
			INSERT INTO assets (session_id, ip_address, mac_address, hostname, device_type, vendor,
				product_family, protocols_json, is_server, confidence, purdue_level, manual_level,
				tags_json, notes, packet_count, signatures_json, oui_vendor, country, is_public_ip,
				first_seen, last_seen)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			session.ID, a.IPAddress, a.MACAddress, a.Hostname, string(a.DeviceType), a.Vendor,
			a.ProductFamily, string(protocolsJSON), boolToInt(a.IsServer), a.Confidence, a.PurdueLevel,
			boolToInt(a.ManualLevel), string(tagsJSON), a.Notes, a.PacketCount, string(sigsJSON),
			a.OUIVendor, a.Country, boolToInt(a.IsPublicIP), a.FirstSeen, a.LastSeen)
		if err != nil {
			return apperr.Wrap(apperr.DbError, "failed to save asset "+a.IPAddress, err)
		}

		_, err = tx.Exec(`
			INSERT INTO asset_history (session_id, ip_address, recorded_at, device_type, vendor,
				confidence, protocols_json, hostname, purdue_level)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			session.ID, a.IPAddress, recordedAt, string(a.DeviceType), a.Vendor, a.Confidence,
			string(protocolsJSON), a.Hostname, a.PurdueLevel)
		if err != nil {
			return apperr.Wrap(apperr.DbError, "failed to record asset history for "+a.IPAddress, err)
		}
	}

	for _, c := range snapshot.Connections {
		originFiles := make([]string, 0, len(c.OriginFiles))
		for f := range c.OriginFiles {
			originFiles = append(originFiles, f)
		}
		originJSON, _ := json.Marshal(originFiles)

		_, err := tx.Exec(`
			INSERT INTO connections (session_id, src_ip, src_port, dst_ip, dst_port, protocol,
				src_mac, dst_mac, transport, packet_count, byte_count, first_seen, last_seen, origin_files_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			session.ID, c.Key.SrcIP, c.Key.SrcPort, c.Key.DstIP, c.Key.DstPort, c.Key.Protocol,
			c.SrcMAC, c.DstMAC, string(c.Transport), c.PacketCount, c.ByteCount, c.FirstSeen, c.LastSeen,
			string(originJSON))
		if err != nil {
			return apperr.Wrap(apperr.DbError, "failed to save connection "+c.Key.String(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.DbError, "failed to commit session save", err)
	}
	return nil
}

// LoadSession restores a session's metadata, assets, and connections.
func (s *SQLiteStorage) LoadSession(id string) (*models.Session, models.Snapshot, error) {
	row := s.db.QueryRow(`SELECT id, name, description, created_at, updated_at, asset_count, connection_count, metadata_json FROM sessions WHERE id = ?`, id)

	var session models.Session
	var metaJSON string
	if err := row.Scan(&session.ID, &session.Name, &session.Description, &session.CreatedAt,
		&session.UpdatedAt, &session.AssetCount, &session.ConnectionCount, &metaJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, models.Snapshot{}, apperr.New(apperr.NotFound, "session "+id+" not found")
		}
		return nil, models.Snapshot{}, apperr.Wrap(apperr.DbError, "failed to load session", err)
	}

	meta, err := UnmarshalMetadata([]byte(metaJSON))
	if err != nil {
		return nil, models.Snapshot{}, apperr.Wrap(apperr.DbError, "failed to decode session metadata", err)
	}
	session.Metadata = meta

	assets, err := s.loadAssets(id)
	if err != nil {
		return nil, models.Snapshot{}, err
	}
	conns, err := s.loadConnections(id)
	if err != nil {
		return nil, models.Snapshot{}, err
	}

	return &session, models.Snapshot{Assets: assets, Connections: conns}, nil
}

func (s *SQLiteStorage) loadAssets(sessionID string) ([]models.Asset, error) {
	rows, err := s.db.Query(`
		SELECT ip_address, mac_address, hostname, device_type, vendor, product_family, protocols_json,
			is_server, confidence, purdue_level, manual_level, tags_json, notes, packet_count,
			signatures_json, oui_vendor, country, is_public_ip, first_seen, last_seen
		FROM assets WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.DbError, "failed to query assets", err)
	}
	defer rows.Close()

	var out []models.Asset
	for rows.Next() {
		var a models.Asset
		var deviceType, protocolsJSON, tagsJSON, sigsJSON string
		var isServer, manualLevel, isPublicIP int
		if err := rows.Scan(&a.IPAddress, &a.MACAddress, &a.Hostname, &deviceType, &a.Vendor,
			&a.ProductFamily, &protocolsJSON, &isServer, &a.Confidence, &a.PurdueLevel, &manualLevel,
			&tagsJSON, &a.Notes, &a.PacketCount, &sigsJSON, &a.OUIVendor, &a.Country, &isPublicIP,
			&a.FirstSeen, &a.LastSeen); err != nil {
			return nil, apperr.Wrap(apperr.DbError, "failed to scan asset row", err)
		}
		a.DeviceType = models.DeviceType(deviceType)
		a.IsServer = isServer != 0
		a.ManualLevel = manualLevel != 0
		a.IsPublicIP = isPublicIP != 0
		_ = json.Unmarshal([]byte(protocolsJSON), &a.Protocols)
		_ = json.Unmarshal([]byte(tagsJSON), &a.Tags)
		_ = json.Unmarshal([]byte(sigsJSON), &a.Signatures)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) loadConnections(sessionID string) ([]models.Connection, error) {
	rows, err := s.db.Query(`
		SELECT src_ip, src_port, dst_ip, dst_port, protocol, src_mac, dst_mac, transport,
			packet_count, byte_count, first_seen, last_seen, origin_files_json
		FROM connections WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.DbError, "failed to query connections", err)
	}
	defer rows.Close()

	var out []models.Connection
	for rows.Next() {
		var c models.Connection
		var transport, originJSON string
		if err := rows.Scan(&c.Key.SrcIP, &c.Key.SrcPort, &c.Key.DstIP, &c.Key.DstPort, &c.Key.Protocol,
			&c.SrcMAC, &c.DstMAC, &transport, &c.PacketCount, &c.ByteCount, &c.FirstSeen, &c.LastSeen,
			&originJSON); err != nil {
			return nil, apperr.Wrap(apperr.DbError, "failed to scan connection row", err)
		}
		c.Transport = models.Transport(transport)
		var files []string
		_ = json.Unmarshal([]byte(originJSON), &files)
		c.OriginFiles = make(map[string]struct{}, len(files))
		for _, f := range files {
			c.OriginFiles[f] = struct{}{}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListSessions returns session metadata (no assets/connections) ordered by
// most recently updated.
func (s *SQLiteStorage) ListSessions() ([]*models.Session, error) {
	rows, err := s.db.Query(`SELECT id, name, description, created_at, updated_at, asset_count, connection_count FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, apperr.Wrap(apperr.DbError, "failed to list sessions", err)
	}
	defer rows.Close()

	var out []*models.Session
	for rows.Next() {
		session := &models.Session{}
		if err := rows.Scan(&session.ID, &session.Name, &session.Description, &session.CreatedAt,
			&session.UpdatedAt, &session.AssetCount, &session.ConnectionCount); err != nil {
			return nil, apperr.Wrap(apperr.DbError, "failed to scan session row", err)
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

// DeleteSession removes a session and every row keyed to it.
func (s *SQLiteStorage) DeleteSession(id string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return apperr.Wrap(apperr.DbError, "failed to delete session", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.NotFound, "session "+id+" not found")
	}
	for _, table := range []string{"assets", "connections", "asset_history", "findings"} {
		if _, err := s.db.Exec(`DELETE FROM `+table+` WHERE session_id = ?`, id); err != nil {
			return apperr.Wrap(apperr.DbError, "failed to delete "+table+" rows", err)
		}
	}
	return nil
}

// LoadAssetHistory returns the most recently recorded history row per IP
// for a session, the baseline a drift comparison diffs against.
func (s *SQLiteStorage) LoadAssetHistory(sessionID string) ([]models.Asset, error) {
	rows, err := s.db.Query(`
		SELECT ip_address, device_type, vendor, confidence, protocols_json, hostname, purdue_level, MAX(recorded_at)
		FROM asset_history WHERE session_id = ? GROUP BY ip_address`, sessionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.DbError, "failed to query asset history", err)
	}
	defer rows.Close()

	var out []models.Asset
	for rows.Next() {
		var a models.Asset
		var deviceType, protocolsJSON string
		var recordedAt time.Time
		if err := rows.Scan(&a.IPAddress, &deviceType, &a.Vendor, &a.Confidence, &protocolsJSON,
			&a.Hostname, &a.PurdueLevel, &recordedAt); err != nil {
			return nil, apperr.Wrap(apperr.DbError, "failed to scan asset history row", err)
		}
		a.DeviceType = models.DeviceType(deviceType)
		_ = json.Unmarshal([]byte(protocolsJSON), &a.Protocols)
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveFindings persists the findings an analysis pass produced for a
// session, replacing any previously saved set.
func (s *SQLiteStorage) SaveFindings(sessionID string, findings []models.Finding) error {
	tx, err := s.db.Begin()
	if err != nil {
		return apperr.Wrap(apperr.DbError, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM findings WHERE session_id = ?`, sessionID); err != nil {
		return apperr.Wrap(apperr.DbError, "failed to clear prior findings", err)
	}
	for _, f := range findings {
		_, err := tx.Exec(`
			INSERT INTO findings (session_id, type, severity, technique_id, title, description, source_ip, dest_ip)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID, string(f.Type), string(f.Severity), f.TechniqueID, f.Title, f.Description, f.SourceIP, f.DestIP)
		if err != nil {
			return apperr.Wrap(apperr.DbError, "failed to save finding", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.DbError, "failed to commit findings save", err)
	}
	return nil
}

// LoadFindings returns the findings saved for a session.
func (s *SQLiteStorage) LoadFindings(sessionID string) ([]models.Finding, error) {
	rows, err := s.db.Query(`SELECT type, severity, technique_id, title, description, source_ip, dest_ip FROM findings WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.DbError, "failed to query findings", err)
	}
	defer rows.Close()

	var out []models.Finding
	for rows.Next() {
		var f models.Finding
		var typ, severity string
		if err := rows.Scan(&typ, &severity, &f.TechniqueID, &f.Title, &f.Description, &f.SourceIP, &f.DestIP); err != nil {
			return nil, apperr.Wrap(apperr.DbError, "failed to scan finding row", err)
		}
		f.Type = models.FindingType(typ)
		f.Severity = models.Severity(severity)
		out = append(out, f)
	}
	return out, rows.Err()
}

// CachePluginManifest records a scanned plugin manifest, replacing any
// prior entry at the same path.
func (s *SQLiteStorage) CachePluginManifest(path string, m models.PluginManifest) error {
	_, err := s.db.Exec(`
		INSERT INTO plugin_manifest_cache (path, name, version, entry_point, scanned_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET name = excluded.name, version = excluded.version,
			entry_point = excluded.entry_point, scanned_at = excluded.scanned_at`,
		path, m.Name, m.Version, m.EntryPoint, m.ScannedAt)
	if err != nil {
		return apperr.Wrap(apperr.DbError, "failed to cache plugin manifest", err)
	}
	return nil
}

// ListCachedPluginManifests returns every cached plugin manifest.
func (s *SQLiteStorage) ListCachedPluginManifests() ([]models.PluginManifest, error) {
	rows, err := s.db.Query(`SELECT path, name, version, entry_point, scanned_at FROM plugin_manifest_cache`)
	if err != nil {
		return nil, apperr.Wrap(apperr.DbError, "failed to list plugin manifests", err)
	}
	defer rows.Close()

	var out []models.PluginManifest
	for rows.Next() {
		var m models.PluginManifest
		if err := rows.Scan(&m.Path, &m.Name, &m.Version, &m.EntryPoint, &m.ScannedAt); err != nil {
			return nil, apperr.Wrap(apperr.DbError, "failed to scan plugin manifest row", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
