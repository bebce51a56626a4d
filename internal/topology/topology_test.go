/**
 * Topology Builder Tests.
 */

package topology

import (
	"testing"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

func TestBuild_BidirectionalEdgeDetection(t *testing.T) {
	assets := []models.Asset{
		{IPAddress: "10.0.0.5", DeviceType: models.DeviceTypeHMI},
		{IPAddress: "10.0.0.10", DeviceType: models.DeviceTypeRTU},
	}
	connections := []models.Connection{
		{Key: models.ConnectionKey{SrcIP: "10.0.0.5", DstIP: "10.0.0.10", Protocol: "modbus"}, PacketCount: 5, ByteCount: 500},
		{Key: models.ConnectionKey{SrcIP: "10.0.0.10", DstIP: "10.0.0.5", Protocol: "modbus"}, PacketCount: 5, ByteCount: 500},
	}

	snap := Build(assets, connections)
	if len(snap.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(snap.Nodes))
	}

	fwd := snap.Edges[models.TopologyEdgeKey{SrcIP: "10.0.0.5", DstIP: "10.0.0.10", Protocol: "modbus"}]
	if !fwd.Bidirectional {
		t.Error("expected forward edge marked bidirectional")
	}

	if snap.Nodes["10.0.0.5"].Subnet != "10.0.0.0/24" {
		t.Errorf("unexpected subnet label: %s", snap.Nodes["10.0.0.5"].Subnet)
	}
}

func TestBuild_OneWayEdgeNotBidirectional(t *testing.T) {
	assets := []models.Asset{
		{IPAddress: "10.0.0.5"},
		{IPAddress: "10.0.0.10"},
	}
	connections := []models.Connection{
		{Key: models.ConnectionKey{SrcIP: "10.0.0.5", DstIP: "10.0.0.10", Protocol: "modbus"}, PacketCount: 1},
	}

	snap := Build(assets, connections)
	edge := snap.Edges[models.TopologyEdgeKey{SrcIP: "10.0.0.5", DstIP: "10.0.0.10", Protocol: "modbus"}]
	if edge.Bidirectional {
		t.Error("expected one-way edge not marked bidirectional")
	}
}
