/**
 * ATT&CK Detector Tests.
 */

package analyzer

import (
	"testing"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

func lookupFrom(data map[string]models.DeepParseInfo) DeepParseLookup {
	return func(ip string) (models.DeepParseInfo, bool) {
		dp, ok := data[ip]
		return dp, ok
	}
}

func TestDetectUnauthorizedCommand_BroadcastWriteIsCritical(t *testing.T) {
	info := models.NewModbusInfo()
	info.Role = models.ModbusMaster
	info.FunctionCodes[16] = 3
	info.UnitIDs[255] = struct{}{}

	assets := []models.Asset{{IPAddress: "10.0.0.5"}}
	lookup := lookupFrom(map[string]models.DeepParseInfo{"10.0.0.5": {Modbus: info}})

	findings := DetectUnauthorizedCommand(assets, lookup)
	if len(findings) != 1 || findings[0].Severity != models.SeverityCritical || findings[0].TechniqueID != "T0855" {
		t.Fatalf("got %+v", findings)
	}
}

func TestDetectUnauthorizedCommand_HighFanoutIsHigh(t *testing.T) {
	info := models.NewModbusInfo()
	info.Role = models.ModbusMaster
	info.FunctionCodes[6] = 1
	for i := 0; i < 5; i++ {
		info.Relationships[ipFor(i)] = &models.ModbusRelationship{RemoteIP: ipFor(i)}
	}

	assets := []models.Asset{{IPAddress: "10.0.0.5"}}
	lookup := lookupFrom(map[string]models.DeepParseInfo{"10.0.0.5": {Modbus: info}})

	findings := DetectUnauthorizedCommand(assets, lookup)
	if len(findings) != 1 || findings[0].Severity != models.SeverityHigh {
		t.Fatalf("got %+v", findings)
	}
}

func TestDetectUnauthorizedCommand_ReadOnlyMasterProducesNoFinding(t *testing.T) {
	info := models.NewModbusInfo()
	info.Role = models.ModbusMaster
	info.FunctionCodes[3] = 50

	assets := []models.Asset{{IPAddress: "10.0.0.5"}}
	lookup := lookupFrom(map[string]models.DeepParseInfo{"10.0.0.5": {Modbus: info}})

	if findings := DetectUnauthorizedCommand(assets, lookup); len(findings) != 0 {
		t.Fatalf("expected no finding for a read-only master, got %+v", findings)
	}
}

func TestDetectDiagnosticAbuse_NonEngineeringAssetIsHigh(t *testing.T) {
	info := models.NewModbusInfo()
	info.FunctionCodes[8] = 4

	assets := []models.Asset{{IPAddress: "10.0.0.9", DeviceType: models.DeviceTypeITDevice}}
	lookup := lookupFrom(map[string]models.DeepParseInfo{"10.0.0.9": {Modbus: info}})

	findings := DetectDiagnosticAbuse(assets, lookup)
	if len(findings) != 1 || findings[0].Severity != models.SeverityHigh || findings[0].TechniqueID != "T0814" {
		t.Fatalf("got %+v", findings)
	}
}

func TestDetectDiagnosticAbuse_EngineeringWorkstationIsExempt(t *testing.T) {
	info := models.NewModbusInfo()
	info.FunctionCodes[8] = 4

	assets := []models.Asset{{IPAddress: "10.0.0.9", DeviceType: models.DeviceTypeEngWorkstn}}
	lookup := lookupFrom(map[string]models.DeepParseInfo{"10.0.0.9": {Modbus: info}})

	if findings := DetectDiagnosticAbuse(assets, lookup); len(findings) != 0 {
		t.Fatalf("expected engineering workstation to be exempt, got %+v", findings)
	}
}

func TestDetectUnsolicitedResponseAbuse_UnknownMasterIsMedium(t *testing.T) {
	info := models.NewDNP3Info()
	info.Unsolicited = true
	info.Relationships["10.0.0.20"] = &models.DNP3Relationship{RemoteIP: "10.0.0.20"}

	assets := []models.Asset{{IPAddress: "10.0.0.10"}}
	lookup := lookupFrom(map[string]models.DeepParseInfo{"10.0.0.10": {DNP3: info}})

	findings := DetectUnsolicitedResponseAbuse(assets, lookup, map[string]struct{}{"10.0.0.99": {}})
	if len(findings) != 1 || findings[0].Severity != models.SeverityMedium || findings[0].TechniqueID != "T0856" {
		t.Fatalf("got %+v", findings)
	}
}

func TestDetectUnsolicitedResponseAbuse_KnownMasterProducesNoFinding(t *testing.T) {
	info := models.NewDNP3Info()
	info.Unsolicited = true
	info.Relationships["10.0.0.20"] = &models.DNP3Relationship{RemoteIP: "10.0.0.20"}

	assets := []models.Asset{{IPAddress: "10.0.0.10"}}
	lookup := lookupFrom(map[string]models.DeepParseInfo{"10.0.0.10": {DNP3: info}})

	findings := DetectUnsolicitedResponseAbuse(assets, lookup, map[string]struct{}{"10.0.0.20": {}})
	if len(findings) != 0 {
		t.Fatalf("expected no finding for a known master, got %+v", findings)
	}
}

func TestDetectRemoteSystemDiscovery_ThreeOTTargetsIsHigh(t *testing.T) {
	assets := []models.Asset{
		{IPAddress: "10.0.0.50", DeviceType: models.DeviceTypeITDevice},
		{IPAddress: "10.0.1.1", DeviceType: models.DeviceTypePLC},
		{IPAddress: "10.0.1.2", DeviceType: models.DeviceTypePLC},
		{IPAddress: "10.0.1.3", DeviceType: models.DeviceTypeRTU},
	}
	var conns []models.Connection
	for _, dst := range []string{"10.0.1.1", "10.0.1.2", "10.0.1.3"} {
		conns = append(conns, models.Connection{Key: models.ConnectionKey{SrcIP: "10.0.0.50", DstIP: dst, DstPort: 502, Protocol: "modbus"}})
	}

	findings := DetectRemoteSystemDiscovery(assets, conns)
	if len(findings) != 1 || findings[0].Severity != models.SeverityHigh || findings[0].TechniqueID != "T0846" {
		t.Fatalf("got %+v", findings)
	}
}

func TestDetectRemoteSystemDiscovery_BelowThresholdIsSilent(t *testing.T) {
	assets := []models.Asset{
		{IPAddress: "10.0.0.50", DeviceType: models.DeviceTypeITDevice},
		{IPAddress: "10.0.1.1", DeviceType: models.DeviceTypePLC},
		{IPAddress: "10.0.1.2", DeviceType: models.DeviceTypePLC},
	}
	var conns []models.Connection
	for _, dst := range []string{"10.0.1.1", "10.0.1.2"} {
		conns = append(conns, models.Connection{Key: models.ConnectionKey{SrcIP: "10.0.0.50", DstIP: dst, DstPort: 502, Protocol: "modbus"}})
	}
	if findings := DetectRemoteSystemDiscovery(assets, conns); len(findings) != 0 {
		t.Fatalf("expected no finding below the 3-target threshold, got %+v", findings)
	}
}
