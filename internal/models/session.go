/**
 * Session Model.
 *
 * A session is the unit the session store persists and the baseline-drift
 * comparator diffs against: a named snapshot of assets, connections, and
 * the deep-parse view that produced them.
 */

package models

import "time"

// SessionMetadata is the opaque blob a session carries alongside its
// counts — deep-parse info and imported file names, so a load fully
// restores the working view per §3 "Session".
type SessionMetadata struct {
	DeepParse     map[string]DeepParseInfo // IP -> deep-parse accumulator
	ImportedFiles []string
}

// Session is the persisted unit: id, name, description, timestamps, counts,
// and the metadata blob needed to fully restore a working view on load.
type Session struct {
	ID               string
	Name             string
	Description      string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	AssetCount       int
	ConnectionCount  int
	Metadata         SessionMetadata
}

// Snapshot is the in-memory working view the aggregator exposes without
// draining its accumulators, and what a session save/load moves around.
type Snapshot struct {
	Assets      []Asset
	Connections []Connection
	Topology    TopologySnapshot
}
