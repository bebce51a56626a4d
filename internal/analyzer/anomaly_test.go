/**
 * Anomaly Scoring Tests.
 */

package analyzer

import (
	"testing"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

func TestDetectPollingDeviation_HighCVIsHighSeverity(t *testing.T) {
	info := models.NewModbusInfo()
	key := models.PollingKey{RemoteIP: "10.0.1.1", FunctionCode: 3, UnitID: 1}
	stats := map[models.PollingKey]models.PollingStats{
		key: {AvgMS: 1000, MinMS: 100, MaxMS: 3200, SampleCount: 6},
	}

	assets := []models.Asset{{IPAddress: "10.0.0.1"}}
	lookup := lookupFrom(map[string]models.DeepParseInfo{"10.0.0.1": {Modbus: info}})
	series := func(*models.ModbusInfo) map[models.PollingKey]models.PollingStats { return stats }

	anomalies, findings := DetectPollingDeviation(assets, lookup, series)
	if len(anomalies) != 1 || anomalies[0].Severity != models.SeverityHigh {
		t.Fatalf("got anomalies %+v", anomalies)
	}
	if len(findings) != 1 || findings[0].Type != models.FindingPollingDeviation {
		t.Fatalf("expected a FindingPollingDeviation to accompany CV>1.0, got %+v", findings)
	}
}

func TestDetectPollingDeviation_StableCVIsSilent(t *testing.T) {
	info := models.NewModbusInfo()
	key := models.PollingKey{RemoteIP: "10.0.1.1", FunctionCode: 3, UnitID: 1}
	stats := map[models.PollingKey]models.PollingStats{
		key: {AvgMS: 1000, MinMS: 950, MaxMS: 1050, SampleCount: 6},
	}

	assets := []models.Asset{{IPAddress: "10.0.0.1"}}
	lookup := lookupFrom(map[string]models.DeepParseInfo{"10.0.0.1": {Modbus: info}})
	series := func(*models.ModbusInfo) map[models.PollingKey]models.PollingStats { return stats }

	anomalies, findings := DetectPollingDeviation(assets, lookup, series)
	if len(anomalies) != 0 || len(findings) != 0 {
		t.Fatalf("expected no anomaly for a stable cadence, got %+v / %+v", anomalies, findings)
	}
}

func TestDetectPollingDeviation_TooFewSamplesIsSilent(t *testing.T) {
	info := models.NewModbusInfo()
	key := models.PollingKey{RemoteIP: "10.0.1.1", FunctionCode: 3, UnitID: 1}
	stats := map[models.PollingKey]models.PollingStats{
		key: {AvgMS: 1000, MinMS: 100, MaxMS: 5000, SampleCount: 3},
	}

	assets := []models.Asset{{IPAddress: "10.0.0.1"}}
	lookup := lookupFrom(map[string]models.DeepParseInfo{"10.0.0.1": {Modbus: info}})
	series := func(*models.ModbusInfo) map[models.PollingKey]models.PollingStats { return stats }

	anomalies, _ := DetectPollingDeviation(assets, lookup, series)
	if len(anomalies) != 0 {
		t.Fatalf("expected the sample-count floor to suppress scoring, got %+v", anomalies)
	}
}

func TestDetectRoleReversal_ModbusSlaveIssuingWriteIsHigh(t *testing.T) {
	info := models.NewModbusInfo()
	info.Role = models.ModbusSlave
	info.FunctionCodes[16] = 1

	assets := []models.Asset{{IPAddress: "10.0.0.2"}}
	lookup := lookupFrom(map[string]models.DeepParseInfo{"10.0.0.2": {Modbus: info}})

	anomalies := DetectRoleReversal(assets, lookup)
	if len(anomalies) != 1 || anomalies[0].Severity != models.SeverityHigh || anomalies[0].Confidence != 0.8 {
		t.Fatalf("got %+v", anomalies)
	}
}

func TestDetectRoleReversal_DNP3OutstationUnsolicitedWithMasterFCIsHigh(t *testing.T) {
	info := models.NewDNP3Info()
	info.Role = models.DNP3Outstation
	info.Unsolicited = true
	info.FunctionCodes[1] = 2

	assets := []models.Asset{{IPAddress: "10.0.0.3"}}
	lookup := lookupFrom(map[string]models.DeepParseInfo{"10.0.0.3": {DNP3: info}})

	anomalies := DetectRoleReversal(assets, lookup)
	if len(anomalies) != 1 || anomalies[0].Confidence != 0.7 {
		t.Fatalf("got %+v", anomalies)
	}
}

func TestDetectUnexpectedPublicIP_OTDeviceWithPublicIPIsCritical(t *testing.T) {
	assets := []models.Asset{
		{IPAddress: "203.0.113.5", IsPublicIP: true, Protocols: []string{"modbus"}},
		{IPAddress: "10.0.0.1", IsPublicIP: false, Protocols: []string{"modbus"}},
	}

	anomalies, findings := DetectUnexpectedPublicIP(assets)
	if len(anomalies) != 1 || anomalies[0].Severity != models.SeverityCritical || anomalies[0].IPAddress != "203.0.113.5" {
		t.Fatalf("got anomalies %+v", anomalies)
	}
	if len(findings) != 1 || findings[0].Type != models.FindingUnexpectedPublicIP {
		t.Fatalf("got findings %+v", findings)
	}
}
