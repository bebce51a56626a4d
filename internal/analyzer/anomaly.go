/**
 * Anomaly Scoring.
 *
 * Scores three behavioral deviations from expected ICS traffic shape (§4.10):
 * polling-interval instability, protocol role reversal, and OT devices
 * reachable on a public address. Anomalies are softer signals than Findings
 * — confidence-scored rather than binary — though the two worst anomalies
 * also surface as Findings.
 */

package analyzer

import (
	"fmt"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

var modbusRoleReversalFCs = map[int]struct{}{
	1: {}, 2: {}, 3: {}, 4: {}, 5: {}, 6: {}, 15: {}, 16: {},
}

// DetectPollingDeviation scores the coefficient of variation of every
// polling series folded into any Modbus endpoint's accumulator, whatever its
// role. A series needs
// at least 5 samples and a non-zero average to be scored.
func DetectPollingDeviation(assets []models.Asset, lookup DeepParseLookup, series func(info *models.ModbusInfo) map[models.PollingKey]models.PollingStats) ([]models.Anomaly, []models.Finding) {
	var anomalies []models.Anomaly
	var findings []models.Finding

	for _, a := range assets {
		dp, ok := lookup(a.IPAddress)
		if !ok || dp.Modbus == nil {
			continue
		}
		for key, stats := range series(dp.Modbus) {
			if stats.SampleCount < 5 || stats.AvgMS <= 0 {
				continue
			}
			cv := (stats.MaxMS - stats.MinMS) / stats.AvgMS
			if cv <= 0.5 {
				continue
			}

			severity := models.SeverityMedium
			confidence := 0.7
			switch {
			case cv > 2.0:
				severity = models.SeverityHigh
				confidence = 0.9
			case cv > 1.0:
				confidence = 0.7
			default:
				confidence = 0.5
			}

			anomalies = append(anomalies, models.Anomaly{
				Type:       models.AnomalyPollingDeviation,
				Severity:   severity,
				Confidence: confidence,
				IPAddress:  a.IPAddress,
				Description: fmt.Sprintf("polling interval to %s (FC %d, unit %d) varies by CV=%.2f",
					key.RemoteIP, key.FunctionCode, key.UnitID, cv),
			})

			if cv > 1.0 {
				findings = append(findings, models.Finding{
					Type:        models.FindingPollingDeviation,
					Severity:    severity,
					Title:       "Unstable polling cadence",
					Description: fmt.Sprintf("%s's polling of %s destabilized (CV=%.2f)", a.IPAddress, key.RemoteIP, cv),
					SourceIP:    a.IPAddress,
					DestIP:      key.RemoteIP,
				})
			}
		}
	}
	return anomalies, findings
}

// DetectRoleReversal flags a Modbus slave issuing master-side function codes,
// or a DNP3 outstation that both sends unsolicited responses and issues
// master-side function codes.
func DetectRoleReversal(assets []models.Asset, lookup DeepParseLookup) []models.Anomaly {
	var out []models.Anomaly
	for _, a := range assets {
		dp, ok := lookup(a.IPAddress)
		if !ok {
			continue
		}

		if dp.Modbus != nil && dp.Modbus.Role == models.ModbusSlave {
			for fc := range modbusRoleReversalFCs {
				if dp.Modbus.FunctionCodes[fc] > 0 {
					out = append(out, models.Anomaly{
						Type:        models.AnomalyRoleReversal,
						Severity:    models.SeverityHigh,
						Confidence:  0.8,
						IPAddress:   a.IPAddress,
						Description: fmt.Sprintf("%s is a Modbus slave that issued master-side function code %d", a.IPAddress, fc),
					})
					break
				}
			}
		}

		if dp.DNP3 != nil && dp.DNP3.Role == models.DNP3Outstation && dp.DNP3.Unsolicited {
			for fc := 1; fc <= 6; fc++ {
				if dp.DNP3.FunctionCodes[fc] > 0 {
					out = append(out, models.Anomaly{
						Type:        models.AnomalyRoleReversal,
						Severity:    models.SeverityHigh,
						Confidence:  0.7,
						IPAddress:   a.IPAddress,
						Description: fmt.Sprintf("%s is a DNP3 outstation sending unsolicited responses and master-side function code %d", a.IPAddress, fc),
					})
					break
				}
			}
		}
	}
	return out
}

// DetectUnexpectedPublicIP flags any asset that both speaks an OT protocol
// and carries a public IP address.
func DetectUnexpectedPublicIP(assets []models.Asset) ([]models.Anomaly, []models.Finding) {
	var anomalies []models.Anomaly
	var findings []models.Finding
	for _, a := range assets {
		if !a.IsPublicIP {
			continue
		}
		if countOTProtocols(a.Protocols) == 0 {
			continue
		}
		anomalies = append(anomalies, models.Anomaly{
			Type:        models.AnomalyUnexpectedPublicIP,
			Severity:    models.SeverityCritical,
			Confidence:  0.95,
			IPAddress:   a.IPAddress,
			Description: fmt.Sprintf("%s speaks an OT protocol and has a public IP address", a.IPAddress),
		})
		findings = append(findings, models.Finding{
			Type:        models.FindingUnexpectedPublicIP,
			Severity:    models.SeverityCritical,
			Title:       "OT device reachable on a public IP address",
			Description: fmt.Sprintf("%s (%v) is directly reachable from the public internet", a.IPAddress, a.Protocols),
			SourceIP:    a.IPAddress,
		})
	}
	return anomalies, findings
}

// countOTProtocols counts how many of a protocol list name a recognized OT
// protocol, reusing the same name set as device-type inference.
func countOTProtocols(protocols []string) int {
	n := 0
	for _, p := range protocols {
		if isOTProtocolName(p) {
			n++
		}
	}
	return n
}
