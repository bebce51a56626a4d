package ingest

import (
	"testing"
	"time"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

func TestMergeZeekAddsNewAssetsAndConnections(t *testing.T) {
	snapshot := models.Snapshot{}
	records := []models.ZeekConnRecord{
		{Timestamp: time.Now(), SrcIP: "10.0.0.1", DstIP: "10.0.0.2", SrcPort: 49152, DstPort: 502, Proto: "tcp", Service: "modbus"},
	}

	out, result := MergeZeek(snapshot, records)

	if result.NewAssets != 2 || result.NewConnections != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(out.Assets) != 2 || len(out.Connections) != 1 {
		t.Fatalf("unexpected snapshot: %d assets, %d connections", len(out.Assets), len(out.Connections))
	}
	found := false
	for _, a := range out.Assets {
		if a.IPAddress == "10.0.0.1" {
			for _, tag := range a.Tags {
				if tag == "ingest:zeek" {
					found = true
				}
			}
		}
	}
	if !found {
		t.Fatal("expected new asset tagged with ingest:zeek")
	}
}

func TestMergeZeekSkipsExistingConnection(t *testing.T) {
	key := models.ConnectionKey{SrcIP: "10.0.0.1", SrcPort: 49152, DstIP: "10.0.0.2", DstPort: 502, Protocol: "modbus"}
	snapshot := models.Snapshot{
		Assets:      []models.Asset{{IPAddress: "10.0.0.1"}, {IPAddress: "10.0.0.2"}},
		Connections: []models.Connection{{Key: key, PacketCount: 5}},
	}
	records := []models.ZeekConnRecord{
		{SrcIP: "10.0.0.1", DstIP: "10.0.0.2", SrcPort: 49152, DstPort: 502, Proto: "tcp", Service: "modbus"},
	}

	out, result := MergeZeek(snapshot, records)

	if result.NewAssets != 0 || result.NewConnections != 0 {
		t.Fatalf("expected no new records, got %+v", result)
	}
	if len(out.Connections) != 1 {
		t.Fatalf("expected connection count to stay 1, got %d", len(out.Connections))
	}
}

func TestMergeNmapFillsHostnameWithoutOverwriting(t *testing.T) {
	snapshot := models.Snapshot{
		Assets: []models.Asset{{IPAddress: "10.0.0.5", Hostname: "plc-observed"}},
	}
	hosts := []models.NmapHost{
		{IPAddress: "10.0.0.5", Hostname: "nmap-guess", OpenPorts: []int{502, 80}},
	}

	out, result := MergeNmap(snapshot, hosts)

	if out.Assets[0].Hostname != "plc-observed" {
		t.Fatalf("expected passively observed hostname to survive, got %q", out.Assets[0].Hostname)
	}
	if result.NewAssets != 0 {
		t.Fatalf("expected 0 new assets, got %d", result.NewAssets)
	}
}

func TestCleanMasscanJSONTruncatesSentinel(t *testing.T) {
	raw := []byte(`[{"ip":"10.0.0.9","ports":[{"port":502,"proto":"tcp"}]}` + `,{"finished":1}`)

	cleaned, err := CleanMasscanJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := ParseMasscanJSON(cleaned)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if len(results) != 1 || results[0].Port != 502 {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestCleanMasscanJSONRejectsMisplacedSentinel(t *testing.T) {
	raw := []byte(`[{"ip":"10.0.0.9","finished":1}]`)
	if _, err := CleanMasscanJSON(raw); err == nil {
		t.Fatal("expected an error for a non-sentinel 'finished' occurrence")
	}
}
