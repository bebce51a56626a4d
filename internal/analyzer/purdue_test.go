/**
 * Purdue Level & Cross-Level Violation Tests.
 */

package analyzer

import (
	"testing"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

func TestAssignPurdueLevels_DeviceTypeCascade(t *testing.T) {
	assets := []models.Asset{
		{IPAddress: "10.0.1.1", DeviceType: models.DeviceTypePLC},
		{IPAddress: "10.0.2.1", DeviceType: models.DeviceTypeHMI},
		{IPAddress: "10.0.3.1", DeviceType: models.DeviceTypeHistorian},
		{IPAddress: "10.0.4.1", DeviceType: models.DeviceTypeITDevice},
	}

	got := AssignPurdueLevels(assets, nil)
	want := map[string]int{"10.0.1.1": 1, "10.0.2.1": 2, "10.0.3.1": 3, "10.0.4.1": 4}
	for _, a := range got {
		if a.Level != want[a.IPAddress] {
			t.Errorf("%s: got level %d, want %d", a.IPAddress, a.Level, want[a.IPAddress])
		}
		if a.Manual {
			t.Errorf("%s: expected non-manual assignment", a.IPAddress)
		}
	}
}

func TestAssignPurdueLevels_ManualOverrideIsPreserved(t *testing.T) {
	assets := []models.Asset{
		{IPAddress: "10.0.1.1", DeviceType: models.DeviceTypePLC, ManualLevel: true, PurdueLevel: 3},
	}
	got := AssignPurdueLevels(assets, nil)
	if len(got) != 1 || got[0].Level != 3 || !got[0].Manual {
		t.Fatalf("expected manual level 3 preserved, got %+v", got)
	}
}

func TestAssignPurdueLevels_L1TargetFanoutPromotesToLevel3(t *testing.T) {
	var conns []models.Connection
	for i := 0; i < 10; i++ {
		conns = append(conns, models.Connection{Key: models.ConnectionKey{
			SrcIP: "10.0.9.1", DstIP: ipFor(i), DstPort: 502, Protocol: "modbus",
		}})
	}
	assets := []models.Asset{{IPAddress: "10.0.9.1", DeviceType: models.DeviceTypeUnknown, Protocols: []string{"modbus"}}}

	got := AssignPurdueLevels(assets, conns)
	if got[0].Level != 3 {
		t.Errorf("expected level 3 for a host polling 10 distinct L1 targets, got %d", got[0].Level)
	}
}

func ipFor(i int) string {
	return "10.0.1." + string(rune('0'+i))
}

func TestDetectCrossLevelViolations_L1ToL4IsMedium(t *testing.T) {
	assignments := []models.PurdueAssignment{
		{IPAddress: "10.0.1.1", Level: 1},
		{IPAddress: "172.16.0.1", Level: 4},
	}
	conns := []models.Connection{
		{Key: models.ConnectionKey{SrcIP: "172.16.0.1", DstIP: "10.0.1.1", DstPort: 502, Protocol: "modbus"}},
	}

	findings := DetectCrossLevelViolations(conns, assignments)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	if findings[0].Severity != models.SeverityMedium || findings[0].TechniqueID != "T0886" {
		t.Errorf("got %+v", findings[0])
	}
}

func TestDetectCrossLevelViolations_DedupKeepsHighestSeverity(t *testing.T) {
	assignments := []models.PurdueAssignment{
		{IPAddress: "10.0.1.1", Level: 1},
		{IPAddress: "172.16.0.1", Level: 4},
	}
	conns := []models.Connection{
		{Key: models.ConnectionKey{SrcIP: "172.16.0.1", DstIP: "10.0.1.1", DstPort: 502, Protocol: "modbus"}},
		{Key: models.ConnectionKey{SrcIP: "10.0.1.1", DstIP: "172.16.0.1", DstPort: 12345, Protocol: "modbus"}},
	}

	findings := DetectCrossLevelViolations(conns, assignments)
	if len(findings) != 1 {
		t.Fatalf("expected the unordered pair to dedup to 1 finding, got %d", len(findings))
	}
}

func TestDetectCrossLevelViolations_AdjacentLevelsDoNotViolate(t *testing.T) {
	assignments := []models.PurdueAssignment{
		{IPAddress: "10.0.1.1", Level: 1},
		{IPAddress: "10.0.2.1", Level: 2},
	}
	conns := []models.Connection{
		{Key: models.ConnectionKey{SrcIP: "10.0.2.1", DstIP: "10.0.1.1", DstPort: 502, Protocol: "modbus"}},
	}
	if findings := DetectCrossLevelViolations(conns, assignments); len(findings) != 0 {
		t.Errorf("expected no violation between adjacent levels, got %+v", findings)
	}
}
