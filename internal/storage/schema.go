/**
 * Database Schema.
 *
 * Defines the DDL statements for the session store: sessions, assets
 * (with tags/notes/signature-match JSON blobs), connections, asset
 * history (for baseline diff), findings, and a plugin-manifest cache.
 */

package storage

// Schema contains the SQL statements that create the session store tables.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    created_at TIMESTAMP,
    updated_at TIMESTAMP,
    asset_count INTEGER,
    connection_count INTEGER,
    metadata_json TEXT
);

CREATE TABLE IF NOT EXISTS assets (
    session_id TEXT NOT NULL,
    ip_address TEXT NOT NULL,
    mac_address TEXT,
    hostname TEXT,
    device_type TEXT,
    vendor TEXT,
    product_family TEXT,
    protocols_json TEXT,
    is_server INTEGER,
    confidence INTEGER,
    purdue_level INTEGER,
    manual_level INTEGER,
    tags_json TEXT,
    notes TEXT,
    packet_count INTEGER,
    signatures_json TEXT,
    oui_vendor TEXT,
    country TEXT,
    is_public_ip INTEGER,
    first_seen TIMESTAMP,
    last_seen TIMESTAMP,
    PRIMARY KEY (session_id, ip_address),
    FOREIGN KEY (session_id) REFERENCES sessions(id)
);
CREATE INDEX IF NOT EXISTS idx_assets_session ON assets(session_id);

CREATE TABLE IF NOT EXISTS connections (
    session_id TEXT NOT NULL,
    src_ip TEXT NOT NULL,
    src_port INTEGER NOT NULL,
    dst_ip TEXT NOT NULL,
    dst_port INTEGER NOT NULL,
    protocol TEXT NOT NULL,
    src_mac TEXT,
    dst_mac TEXT,
    transport TEXT,
    packet_count INTEGER,
    byte_count INTEGER,
    first_seen TIMESTAMP,
    last_seen TIMESTAMP,
    origin_files_json TEXT,
    PRIMARY KEY (session_id, src_ip, src_port, dst_ip, dst_port, protocol),
    FOREIGN KEY (session_id) REFERENCES sessions(id)
);
CREATE INDEX IF NOT EXISTS idx_connections_session ON connections(session_id);

-- Snapshot of an asset's drift-relevant fields at the moment a session was
-- saved, kept distinct from the live "assets" row so a later save of the
-- same session_id can still diff against what was true at an earlier save.
CREATE TABLE IF NOT EXISTS asset_history (
    session_id TEXT NOT NULL,
    ip_address TEXT NOT NULL,
    recorded_at TIMESTAMP,
    device_type TEXT,
    vendor TEXT,
    confidence INTEGER,
    protocols_json TEXT,
    hostname TEXT,
    purdue_level INTEGER,
    FOREIGN KEY (session_id) REFERENCES sessions(id)
);
CREATE INDEX IF NOT EXISTS idx_asset_history_session ON asset_history(session_id, ip_address);

CREATE TABLE IF NOT EXISTS findings (
    id INTEGER PRIMARY KEY,
    session_id TEXT NOT NULL,
    type TEXT,
    severity TEXT,
    technique_id TEXT,
    title TEXT,
    description TEXT,
    source_ip TEXT,
    dest_ip TEXT,
    FOREIGN KEY (session_id) REFERENCES sessions(id)
);
CREATE INDEX IF NOT EXISTS idx_findings_session ON findings(session_id);

CREATE TABLE IF NOT EXISTS plugin_manifest_cache (
    path TEXT PRIMARY KEY,
    name TEXT,
    version TEXT,
    entry_point TEXT,
    scanned_at TIMESTAMP
);
`
