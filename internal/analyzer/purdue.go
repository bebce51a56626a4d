/**
 * Purdue Level Assignment & Cross-Level Violations.
 *
 * Assigns each asset a Purdue Enterprise Reference Architecture level in
 * {1,2,3,4} by the priority rules of §4.10, then flags connections whose
 * endpoints straddle levels that should never talk directly.
 */

package analyzer

import (
	"fmt"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

// l1ServerPorts is the server-port set that, on its own, places an asset
// at Purdue level 1 (§4.10).
var l1ServerPorts = map[uint16]struct{}{
	102: {}, 502: {}, 44818: {}, 2222: {}, 20000: {}, 2404: {},
	34962: {}, 34963: {}, 34964: {},
}

func isL1ServerPort(port uint16) bool {
	_, ok := l1ServerPorts[port]
	return ok
}

// AssignPurdueLevels infers a Purdue level for every asset without a
// manually-set one, returning the resulting assignment list in asset order.
func AssignPurdueLevels(assets []models.Asset, connections []models.Connection) []models.PurdueAssignment {
	l1TargetCounts := countL1Targets(connections)

	out := make([]models.PurdueAssignment, 0, len(assets))
	for _, a := range assets {
		if a.ManualLevel {
			out = append(out, models.PurdueAssignment{IPAddress: a.IPAddress, Level: a.PurdueLevel, Manual: true})
			continue
		}
		level := inferPurdueLevel(a, l1TargetCounts[a.IPAddress])
		out = append(out, models.PurdueAssignment{IPAddress: a.IPAddress, Level: level})
	}
	return out
}

// countL1Targets counts, per source IP, the number of distinct destination
// IPs it connects to on an L1 server port.
func countL1Targets(connections []models.Connection) map[string]int {
	targets := make(map[string]map[string]struct{})
	for _, c := range connections {
		if !isL1ServerPort(c.Key.DstPort) {
			continue
		}
		if targets[c.Key.SrcIP] == nil {
			targets[c.Key.SrcIP] = make(map[string]struct{})
		}
		targets[c.Key.SrcIP][c.Key.DstIP] = struct{}{}
	}
	out := make(map[string]int, len(targets))
	for ip, set := range targets {
		out[ip] = len(set)
	}
	return out
}

func inferPurdueLevel(a models.Asset, l1TargetCount int) int {
	switch a.DeviceType {
	case models.DeviceTypePLC, models.DeviceTypeRTU:
		return 1
	case models.DeviceTypeHMI, models.DeviceTypeEngWorkstn:
		return 2
	case models.DeviceTypeHistorian, models.DeviceTypeSCADAServer:
		return 3
	}

	otCount := 0
	hasOPCUA := false
	for _, p := range a.Protocols {
		if p == "opc_ua" {
			hasOPCUA = true
		}
		if isOTProtocolName(p) {
			otCount++
		}
	}

	switch {
	case a.IsServer:
		return 1
	case hasOPCUA || l1TargetCount >= 10:
		return 3
	case otCount >= 2 || l1TargetCount >= 2:
		return 2
	case otCount >= 1:
		return 2
	case a.HasProtocol("modbus") || a.HasProtocol("dnp3"): // deep-parse data is only folded for these two, so its presence shows as one of them
		return 2
	case a.DeviceType == models.DeviceTypeITDevice || otCount == 0:
		return 4
	default:
		return 4
	}
}

var otProtocolNames = map[string]struct{}{
	"modbus": {}, "dnp3": {}, "ethernet_ip": {}, "bacnet": {}, "s7comm": {},
	"opc_ua": {}, "profinet": {}, "iec104": {}, "mqtt": {}, "hart_ip": {},
	"foundation_fieldbus": {}, "ge_srtp": {}, "wonderware_suitelink": {},
}

func isOTProtocolName(p string) bool {
	_, ok := otProtocolNames[p]
	return ok
}

// levelOf is a lookup helper over an assignment list, built by callers that
// need per-IP level access (violation detection, asset-level exports).
func levelOf(assignments []models.PurdueAssignment) map[string]int {
	out := make(map[string]int, len(assignments))
	for _, a := range assignments {
		out[a.IPAddress] = a.Level
	}
	return out
}

// DetectCrossLevelViolations flags directed connections whose endpoints
// straddle levels that should never talk directly (§4.10), deduplicated by
// unordered endpoint pair keeping the highest severity (resolved Open
// Question: dedup key excludes severity).
func DetectCrossLevelViolations(connections []models.Connection, assignments []models.PurdueAssignment) []models.Finding {
	levels := levelOf(assignments)

	best := make(map[string]models.Finding)
	for _, c := range connections {
		srcLevel, srcOK := levels[c.Key.SrcIP]
		dstLevel, dstOK := levels[c.Key.DstIP]
		if !srcOK || !dstOK {
			continue
		}

		severity, violated := violationSeverity(srcLevel, dstLevel)
		if !violated {
			continue
		}

		key := pairKey(c.Key.SrcIP, c.Key.DstIP)
		finding := models.Finding{
			Type:        models.FindingPurdueViolation,
			Severity:    severity,
			TechniqueID: "T0886",
			Title:       "Cross-Purdue-level connection",
			Description: fmt.Sprintf("%s (L%d) communicates directly with %s (L%d)", c.Key.SrcIP, srcLevel, c.Key.DstIP, dstLevel),
			SourceIP:    c.Key.SrcIP,
			DestIP:      c.Key.DstIP,
		}

		existing, ok := best[key]
		if !ok || severityRank(severity) > severityRank(existing.Severity) {
			best[key] = finding
		}
	}

	out := make([]models.Finding, 0, len(best))
	for _, f := range best {
		out = append(out, f)
	}
	return out
}

func violationSeverity(a, b int) (models.Severity, bool) {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	switch {
	case lo == 1 && hi >= 4:
		return models.SeverityMedium, true
	case lo == 2 && hi >= 4:
		return models.SeverityLow, true
	default:
		return "", false
	}
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func severityRank(s models.Severity) int {
	switch s {
	case models.SeverityCritical:
		return 4
	case models.SeverityHigh:
		return 3
	case models.SeverityMedium:
		return 2
	case models.SeverityLow:
		return 1
	default:
		return 0
	}
}
