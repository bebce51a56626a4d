/**
 * MITRE ATT&CK for ICS Technique Detectors.
 *
 * Four narrow detectors over the aggregator's per-IP deep-parse records,
 * each named for the technique it flags (§4.10).
 */

package analyzer

import (
	"fmt"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

// DeepParseLookup supplies a per-IP deep-parse record to the detectors,
// matching the aggregator's DeepParseInfo accessor.
type DeepParseLookup func(ip string) (models.DeepParseInfo, bool)

// DetectUnauthorizedCommand implements T0855: a Modbus master whose unit-ID
// set contains the broadcast addresses 0 or 255 with any write activity is
// Critical; a master with high write fan-out (>=5 slave relationships, any
// write FC) is High.
func DetectUnauthorizedCommand(assets []models.Asset, lookup DeepParseLookup) []models.Finding {
	var out []models.Finding
	for _, a := range assets {
		dp, ok := lookup(a.IPAddress)
		if !ok || dp.Modbus == nil || dp.Modbus.Role != models.ModbusMaster {
			continue
		}
		info := dp.Modbus

		hasWrite := false
		for fc, count := range info.FunctionCodes {
			if count > 0 && models.IsWriteFC(fc) {
				hasWrite = true
				break
			}
		}
		if !hasWrite {
			continue
		}

		_, hasBroadcast0 := info.UnitIDs[0]
		_, hasBroadcast255 := info.UnitIDs[255]
		if hasBroadcast0 || hasBroadcast255 {
			out = append(out, models.Finding{
				Type:        models.FindingUnauthorizedCommand,
				Severity:    models.SeverityCritical,
				TechniqueID: "T0855",
				Title:       "Unauthorized command to broadcast unit ID",
				Description: fmt.Sprintf("%s issued a write function code to Modbus broadcast unit ID", a.IPAddress),
				SourceIP:    a.IPAddress,
			})
			continue
		}

		if len(info.Relationships) >= 5 {
			out = append(out, models.Finding{
				Type:        models.FindingUnauthorizedCommand,
				Severity:    models.SeverityHigh,
				TechniqueID: "T0855",
				Title:       "High fan-out Modbus write activity",
				Description: fmt.Sprintf("%s issued write commands to %d distinct Modbus slaves", a.IPAddress, len(info.Relationships)),
				SourceIP:    a.IPAddress,
			})
		}
	}
	return out
}

// DetectDiagnosticAbuse implements T0814: any Modbus origin using FC 8
// diagnostics whose device_type isn't engineering_workstation is High.
func DetectDiagnosticAbuse(assets []models.Asset, lookup DeepParseLookup) []models.Finding {
	var out []models.Finding
	for _, a := range assets {
		if a.DeviceType == models.DeviceTypeEngWorkstn {
			continue
		}
		dp, ok := lookup(a.IPAddress)
		if !ok || dp.Modbus == nil || dp.Modbus.FunctionCodes[8] == 0 {
			continue
		}
		out = append(out, models.Finding{
			Type:        models.FindingDiagnosticAbuse,
			Severity:    models.SeverityHigh,
			TechniqueID: "T0814",
			Title:       "Modbus diagnostics from a non-engineering asset",
			Description: fmt.Sprintf("%s issued %d FC8 diagnostic requests", a.IPAddress, dp.Modbus.FunctionCodes[8]),
			SourceIP:    a.IPAddress,
		})
	}
	return out
}

// DetectUnsolicitedResponseAbuse implements T0856: a DNP3 outstation that
// sent unsolicited responses to a remote not in knownMasters is Medium,
// worded slightly differently when knownMasters is empty.
func DetectUnsolicitedResponseAbuse(assets []models.Asset, lookup DeepParseLookup, knownMasters map[string]struct{}) []models.Finding {
	var out []models.Finding
	for _, a := range assets {
		dp, ok := lookup(a.IPAddress)
		if !ok || dp.DNP3 == nil || !dp.DNP3.Unsolicited {
			continue
		}
		for remoteIP := range dp.DNP3.Relationships {
			if _, known := knownMasters[remoteIP]; known {
				continue
			}
			description := fmt.Sprintf("%s sent unsolicited DNP3 responses to %s, which is not in the known-masters set", a.IPAddress, remoteIP)
			if len(knownMasters) == 0 {
				description = fmt.Sprintf("%s sent unsolicited DNP3 responses but no known-masters set is configured", a.IPAddress)
			}
			out = append(out, models.Finding{
				Type:        models.FindingUnsolicitedResponse,
				Severity:    models.SeverityMedium,
				TechniqueID: "T0856",
				Title:       "Unsolicited DNP3 response to unrecognized master",
				Description: description,
				SourceIP:    a.IPAddress,
				DestIP:      remoteIP,
			})
		}
	}
	return out
}

// DetectRemoteSystemDiscovery implements T0846: a non-OT source connecting
// to >=3 distinct OT destinations on known OT server ports is High.
func DetectRemoteSystemDiscovery(assets []models.Asset, connections []models.Connection) []models.Finding {
	otIPs := make(map[string]struct{})
	for _, a := range assets {
		if a.DeviceType != models.DeviceTypeITDevice && a.DeviceType != models.DeviceTypeUnknown {
			otIPs[a.IPAddress] = struct{}{}
		}
	}

	nonOT := make(map[string]struct{})
	for _, a := range assets {
		if a.DeviceType == models.DeviceTypeITDevice || a.DeviceType == models.DeviceTypeUnknown {
			nonOT[a.IPAddress] = struct{}{}
		}
	}

	targets := make(map[string]map[string]struct{})
	for _, c := range connections {
		if _, isNonOT := nonOT[c.Key.SrcIP]; !isNonOT {
			continue
		}
		if _, isOTTarget := otIPs[c.Key.DstIP]; !isOTTarget {
			continue
		}
		if !isL1ServerPort(c.Key.DstPort) {
			continue
		}
		if targets[c.Key.SrcIP] == nil {
			targets[c.Key.SrcIP] = make(map[string]struct{})
		}
		targets[c.Key.SrcIP][c.Key.DstIP] = struct{}{}
	}

	var out []models.Finding
	for ip, dests := range targets {
		if len(dests) >= 3 {
			out = append(out, models.Finding{
				Type:        models.FindingRemoteDiscovery,
				Severity:    models.SeverityHigh,
				TechniqueID: "T0846",
				Title:       "Non-OT host probing multiple OT devices",
				Description: fmt.Sprintf("%s connected to %d distinct OT devices on known OT server ports", ip, len(dests)),
				SourceIP:    ip,
			})
		}
	}
	return out
}
