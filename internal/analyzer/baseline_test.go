/**
 * Baseline Drift Tests.
 */

package analyzer

import (
	"testing"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

func TestCompareToBaseline_DetectsNewAndMissingAssets(t *testing.T) {
	baseline := []models.Asset{{IPAddress: "10.0.0.1"}, {IPAddress: "10.0.0.2"}}
	current := []models.Asset{{IPAddress: "10.0.0.1"}, {IPAddress: "10.0.0.3"}}

	drift := CompareToBaseline(baseline, current, nil, nil)
	if len(drift.NewAssets) != 1 || drift.NewAssets[0] != "10.0.0.3" {
		t.Errorf("got new assets %+v", drift.NewAssets)
	}
	if len(drift.MissingAssets) != 1 || drift.MissingAssets[0] != "10.0.0.2" {
		t.Errorf("got missing assets %+v", drift.MissingAssets)
	}
}

func TestCompareToBaseline_FieldLevelDiff(t *testing.T) {
	baseline := []models.Asset{{IPAddress: "10.0.0.1", DeviceType: models.DeviceTypePLC, Confidence: 2}}
	current := []models.Asset{{IPAddress: "10.0.0.1", DeviceType: models.DeviceTypeHMI, Confidence: 4}}

	drift := CompareToBaseline(baseline, current, nil, nil)
	fields := make(map[string]bool)
	for _, d := range drift.ChangedAssets {
		fields[d.Field] = true
	}
	if !fields["device_type"] || !fields["confidence"] {
		t.Errorf("expected device_type and confidence diffs, got %+v", drift.ChangedAssets)
	}
}

func TestCompareToBaseline_ConnectionSetDifference(t *testing.T) {
	baselineConns := []models.Connection{
		{Key: models.ConnectionKey{SrcIP: "10.0.0.1", DstIP: "10.0.0.2", DstPort: 502, Protocol: "modbus"}},
	}
	currentConns := []models.Connection{
		{Key: models.ConnectionKey{SrcIP: "10.0.0.1", DstIP: "10.0.0.3", DstPort: 502, Protocol: "modbus"}},
	}

	drift := CompareToBaseline(nil, nil, baselineConns, currentConns)
	if len(drift.NewConnections) != 1 || drift.NewConnections[0].DstIP != "10.0.0.3" {
		t.Errorf("got new connections %+v", drift.NewConnections)
	}
	if len(drift.MissingConnections) != 1 || drift.MissingConnections[0].DstIP != "10.0.0.2" {
		t.Errorf("got missing connections %+v", drift.MissingConnections)
	}
}

func TestCompareToBaseline_SourcePortIgnoredInConnectionKey(t *testing.T) {
	baselineConns := []models.Connection{
		{Key: models.ConnectionKey{SrcIP: "10.0.0.1", SrcPort: 51000, DstIP: "10.0.0.2", DstPort: 502, Protocol: "modbus"}},
	}
	currentConns := []models.Connection{
		{Key: models.ConnectionKey{SrcIP: "10.0.0.1", SrcPort: 52000, DstIP: "10.0.0.2", DstPort: 502, Protocol: "modbus"}},
	}

	drift := CompareToBaseline(nil, nil, baselineConns, currentConns)
	if len(drift.NewConnections) != 0 || len(drift.MissingConnections) != 0 {
		t.Errorf("expected src_port to be ignored in the baseline key, got new=%+v missing=%+v",
			drift.NewConnections, drift.MissingConnections)
	}
}

func TestCompareToBaseline_DriftScoreClampedToUnit(t *testing.T) {
	baseline := []models.Asset{{IPAddress: "10.0.0.1"}}
	current := []models.Asset{{IPAddress: "10.0.0.2"}, {IPAddress: "10.0.0.3"}, {IPAddress: "10.0.0.4"}}

	drift := CompareToBaseline(baseline, current, nil, nil)
	if drift.DriftScore < 0 || drift.DriftScore > 1 {
		t.Errorf("drift score %f out of [0,1]", drift.DriftScore)
	}
}

func TestCompareToBaseline_EmptyInputsProduceZeroScore(t *testing.T) {
	drift := CompareToBaseline(nil, nil, nil, nil)
	if drift.DriftScore != 0 {
		t.Errorf("expected zero drift score for empty inputs, got %f", drift.DriftScore)
	}
}
