/**
 * Analysis Operations.
 *
 * run_analysis, get_findings, get_purdue_assignments, get_anomalies — runs
 * every §4.10 detector over the current snapshot and caches the result for
 * the read-only getters.
 */

package command

import (
	"github.com/kusanaginokajiki/gridmonitor/internal/aggregator"
	"github.com/kusanaginokajiki/gridmonitor/internal/analyzer"
	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

// AnalysisSummary is run_analysis's return value: counts plus the full
// result sets, so a single call populates everything get_findings/
// get_purdue_assignments/get_anomalies later read back out.
type AnalysisSummary struct {
	Findings    []models.Finding
	Purdue      []models.PurdueAssignment
	Anomalies   []models.Anomaly
}

// RunAnalysis answers run_analysis: assigns Purdue levels, detects
// cross-level violations, runs the four ATT&CK detectors, and scores
// anomalies, over the current aggregator snapshot.
func (s *Surface) RunAnalysis() (AnalysisSummary, error) {
	snapshot := s.snapshotLocked()

	purdue := analyzer.AssignPurdueLevels(snapshot.Assets, snapshot.Connections)
	findings := analyzer.DetectCrossLevelViolations(snapshot.Connections, purdue)

	lookup := s.deepParseLookup()
	knownMasters := modbusMasters(snapshot.Assets, lookup)

	findings = append(findings, analyzer.DetectUnauthorizedCommand(snapshot.Assets, lookup)...)
	findings = append(findings, analyzer.DetectDiagnosticAbuse(snapshot.Assets, lookup)...)
	findings = append(findings, analyzer.DetectUnsolicitedResponseAbuse(snapshot.Assets, lookup, knownMasters)...)
	findings = append(findings, analyzer.DetectRemoteSystemDiscovery(snapshot.Assets, snapshot.Connections)...)

	var anomalies []models.Anomaly
	pollingAnomalies, pollingFindings := analyzer.DetectPollingDeviation(snapshot.Assets, lookup, aggregator.PollingSeries)
	anomalies = append(anomalies, pollingAnomalies...)
	findings = append(findings, pollingFindings...)

	anomalies = append(anomalies, analyzer.DetectRoleReversal(snapshot.Assets, lookup)...)

	publicIPAnomalies, publicIPFindings := analyzer.DetectUnexpectedPublicIP(snapshot.Assets)
	anomalies = append(anomalies, publicIPAnomalies...)
	findings = append(findings, publicIPFindings...)

	s.mu.Lock()
	s.findings = findings
	s.purdue = purdue
	s.anomalies = anomalies
	sessionID := s.currentSession
	s.mu.Unlock()

	if sessionID != "" {
		_ = s.store.SaveFindings(sessionID, findings)
	}

	return AnalysisSummary{Findings: findings, Purdue: purdue, Anomalies: anomalies}, nil
}

// GetFindings answers get_findings.
func (s *Surface) GetFindings() ([]models.Finding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findings, nil
}

// GetPurdueAssignments answers get_purdue_assignments.
func (s *Surface) GetPurdueAssignments() ([]models.PurdueAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.purdue, nil
}

// GetAnomalies answers get_anomalies.
func (s *Surface) GetAnomalies() ([]models.Anomaly, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.anomalies, nil
}

// deepParseLookup adapts the aggregator's per-IP accessor to the
// analyzer.DeepParseLookup function shape the detectors expect.
func (s *Surface) deepParseLookup() analyzer.DeepParseLookup {
	return func(ip string) (models.DeepParseInfo, bool) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.agg.DeepParseInfo(ip)
	}
}

// modbusMasters returns the set of IPs whose Modbus role is master or
// both, the knownMasters argument DetectUnsolicitedResponseAbuse needs to
// tell an unexpected unsolicited response from routine master-polled
// traffic.
func modbusMasters(assets []models.Asset, lookup analyzer.DeepParseLookup) map[string]struct{} {
	out := make(map[string]struct{})
	for _, a := range assets {
		info, ok := lookup(a.IPAddress)
		if !ok || info.Modbus == nil {
			continue
		}
		if info.Modbus.Role == models.ModbusMaster || info.Modbus.Role == models.ModbusBoth {
			out[a.IPAddress] = struct{}{}
		}
	}
	return out
}
