/**
 * Aggregator Tests.
 */

package aggregator

import (
	"testing"
	"time"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

func modbusFrame(t time.Time, srcIP, dstIP string, srcPort, dstPort uint16, pdu []byte) *models.Frame {
	return &models.Frame{
		Timestamp: t,
		SrcMAC:    "aa:bb:cc:00:00:01",
		DstMAC:    "aa:bb:cc:00:00:02",
		SrcIP:     srcIP,
		DstIP:     dstIP,
		Transport: models.TransportTCP,
		SrcPort:   srcPort,
		DstPort:   dstPort,
		Length:    len(pdu) + 54,
		Payload:   pdu,
	}
}

func readHoldingRegistersRequest() []byte {
	return []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}
}

func TestIngest_BuildsAssetAndConnection(t *testing.T) {
	agg := New(nil, nil, nil)
	now := time.Now()

	agg.Ingest(modbusFrame(now, "10.0.0.5", "10.0.0.10", 49152, 502, readHoldingRegistersRequest()))

	snap := agg.Snapshot()
	if len(snap.Assets) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(snap.Assets))
	}
	if len(snap.Connections) != 1 {
		t.Fatalf("expected 1 connection, got %d", len(snap.Connections))
	}

	var master, slave *models.Asset
	for i := range snap.Assets {
		a := &snap.Assets[i]
		if a.IPAddress == "10.0.0.5" {
			master = a
		}
		if a.IPAddress == "10.0.0.10" {
			slave = a
		}
	}
	if master == nil || slave == nil {
		t.Fatal("expected both endpoints present")
	}
	if !master.HasProtocol("modbus") || !slave.HasProtocol("modbus") {
		t.Error("expected both endpoints tagged modbus")
	}
	if slave.DeviceType != models.DeviceTypeRTU {
		t.Errorf("expected slave device_type rtu (is_server+modbus), got %s", slave.DeviceType)
	}
}

func TestIngest_DeepParseFoldsIntoBothEndpoints(t *testing.T) {
	agg := New(nil, nil, nil)
	now := time.Now()

	agg.Ingest(modbusFrame(now, "10.0.0.5", "10.0.0.10", 49152, 502, readHoldingRegistersRequest()))

	dp, ok := agg.DeepParseInfo("10.0.0.5")
	if !ok || dp.Modbus == nil {
		t.Fatal("expected master-side Modbus info")
	}
	if dp.Modbus.Role != models.ModbusMaster {
		t.Errorf("expected master role, got %s", dp.Modbus.Role)
	}
	if dp.Modbus.FunctionCodes[3] != 1 {
		t.Errorf("expected FC3 count 1, got %d", dp.Modbus.FunctionCodes[3])
	}

	dpSlave, ok := agg.DeepParseInfo("10.0.0.10")
	if !ok || dpSlave.Modbus == nil {
		t.Fatal("expected slave-side Modbus info")
	}
	if dpSlave.Modbus.Role != models.ModbusSlave {
		t.Errorf("expected slave role, got %s", dpSlave.Modbus.Role)
	}
}

func TestPollingStats_DropsSessionBoundaryAndRequiresTwoIntervals(t *testing.T) {
	base := time.Now()
	timestamps := []time.Time{
		base,
		base.Add(100 * time.Millisecond),
		base.Add(200 * time.Millisecond),
		base.Add(90 * time.Second), // session boundary, dropped
	}
	stats, ok := computePollingStats(timestamps)
	if !ok {
		t.Fatal("expected enough surviving intervals")
	}
	if stats.SampleCount != 2 {
		t.Errorf("expected 2 surviving samples, got %d", stats.SampleCount)
	}
	if stats.AvgMS != 100 {
		t.Errorf("expected avg 100ms, got %v", stats.AvgMS)
	}
}

func TestPollingStats_TooFewRawTimestamps(t *testing.T) {
	timestamps := []time.Time{time.Now(), time.Now().Add(time.Second)}
	if _, ok := computePollingStats(timestamps); ok {
		t.Error("expected rejection for fewer than 3 raw timestamps")
	}
}

func TestSnapshot_DoesNotDrainAccumulators(t *testing.T) {
	agg := New(nil, nil, nil)
	now := time.Now()
	agg.Ingest(modbusFrame(now, "10.0.0.5", "10.0.0.10", 49152, 502, readHoldingRegistersRequest()))

	first := agg.Snapshot()
	agg.Ingest(modbusFrame(now.Add(time.Second), "10.0.0.5", "10.0.0.10", 49152, 502, readHoldingRegistersRequest()))
	second := agg.Snapshot()

	if len(first.Assets) != len(second.Assets) {
		t.Fatal("expected same asset count across snapshots")
	}
	for _, a := range second.Assets {
		if a.IPAddress == "10.0.0.5" && a.PacketCount != 2 {
			t.Errorf("expected packet count to keep accumulating, got %d", a.PacketCount)
		}
	}
}
