package physical

import (
	"testing"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

func TestCorrelateUsesArpSwitchHint(t *testing.T) {
	topo := models.NewPhysicalTopology()
	ImportMacTable(topo, []models.MacTableEntry{
		{MAC: "AA:BB:CC:00:00:01", Switch: "sw1", Port: "Gi0/1", VlanID: 10},
		{MAC: "AA:BB:CC:00:00:01", Switch: "sw2", Port: "Gi0/2", VlanID: 10},
	})
	ImportArpTable(topo, []models.ArpEntry{
		{IPAddress: "10.0.0.5", MAC: "aa:bb:cc:00:00:01", Switch: "sw2"},
	})

	Correlate(topo)

	if len(topo.Links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(topo.Links))
	}
	if topo.Links[0].Switch != "sw2" || topo.Links[0].Port != "Gi0/2" {
		t.Fatalf("expected sw2/Gi0/2, got %s/%s", topo.Links[0].Switch, topo.Links[0].Port)
	}
}

func TestCorrelateSkipsAmbiguousWithoutHint(t *testing.T) {
	topo := models.NewPhysicalTopology()
	ImportMacTable(topo, []models.MacTableEntry{
		{MAC: "AA:BB:CC:00:00:02", Switch: "sw1", Port: "Gi0/1"},
		{MAC: "AA:BB:CC:00:00:02", Switch: "sw2", Port: "Gi0/2"},
	})
	ImportArpTable(topo, []models.ArpEntry{
		{IPAddress: "10.0.0.6", MAC: "AA:BB:CC:00:00:02"},
	})

	Correlate(topo)

	if len(topo.Links) != 0 {
		t.Fatalf("expected ambiguous MAC to be skipped, got %d links", len(topo.Links))
	}
}

func TestCorrelateObservation(t *testing.T) {
	topo := models.NewPhysicalTopology()
	ImportMacTable(topo, []models.MacTableEntry{
		{MAC: "AA:BB:CC:00:00:03", Switch: "sw1", Port: "Gi0/3", VlanID: 20},
	})

	link, ok := CorrelateObservation(topo, "10.0.0.7", "aa:bb:cc:00:00:03")
	if !ok {
		t.Fatal("expected a match")
	}
	if link.Switch != "sw1" || link.Port != "Gi0/3" || link.VlanID != 20 {
		t.Fatalf("unexpected link: %+v", link)
	}

	if _, ok := CorrelateObservation(topo, "10.0.0.8", "ff:ff:ff:ff:ff:ff"); ok {
		t.Fatal("expected no match for unknown MAC")
	}
}
