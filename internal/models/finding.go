/**
 * Finding & Anomaly Model.
 *
 * Output of the analysis passes (§4.10): security-relevant observations
 * tagged with a MITRE ATT&CK for ICS technique where one applies, plus the
 * separate anomaly and baseline-drift result shapes.
 */

package models

// Severity is a finding's urgency tier.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// FindingType names the category of a Finding, one per analysis detector.
type FindingType string

const (
	FindingPurdueViolation     FindingType = "purdue_violation"
	FindingUnauthorizedCommand FindingType = "unauthorized_command"
	FindingDiagnosticAbuse     FindingType = "diagnostic_abuse"
	FindingUnsolicitedResponse FindingType = "unsolicited_response"
	FindingRemoteDiscovery     FindingType = "remote_discovery"
	FindingUnexpectedPublicIP  FindingType = "unexpected_public_ip"
	FindingPollingDeviation    FindingType = "polling_deviation"
)

// Finding is one security-relevant observation surfaced by an analysis pass.
type Finding struct {
	Type        FindingType
	Severity    Severity
	TechniqueID string // MITRE ATT&CK for ICS id, e.g. "T0855"; empty if none applies
	Title       string
	Description string
	SourceIP    string
	DestIP      string // empty for single-asset findings
}

// AnomalyType names an anomaly-scorer detector.
type AnomalyType string

const (
	AnomalyPollingDeviation  AnomalyType = "polling_deviation"
	AnomalyRoleReversal      AnomalyType = "role_reversal"
	AnomalyUnexpectedPublicIP AnomalyType = "unexpected_public_ip"
)

// Anomaly is one scored deviation from expected ICS behavior.
type Anomaly struct {
	Type        AnomalyType
	Severity    Severity
	Confidence  float64 // 0.0-1.0
	IPAddress   string
	Description string
}

// PurdueAssignment is one asset's inferred or manually-set Purdue level.
type PurdueAssignment struct {
	IPAddress string
	Level     int // 1-4
	Manual    bool
}

// AssetDiff is one changed-field record from a baseline comparison.
type AssetDiff struct {
	IPAddress string
	Field     string
	Baseline  string
	Current   string
}

// BaselineConnKey identifies a connection for baseline comparison purposes
// (§4.10): src_ip, dst_ip, dst_port, protocol — narrower than ConnectionKey
// because src_port is expected to vary between sessions for the same
// logical conversation.
type BaselineConnKey struct {
	SrcIP    string
	DstIP    string
	DstPort  uint16
	Protocol string
}

// BaselineDrift is the full result of comparing a stored baseline session
// to the current snapshot.
type BaselineDrift struct {
	NewAssets          []string // IPs present only in current
	MissingAssets      []string // IPs present only in baseline
	ChangedAssets      []AssetDiff
	NewConnections     []BaselineConnKey
	MissingConnections []BaselineConnKey
	DriftScore         float64 // clamped to [0,1]
}
