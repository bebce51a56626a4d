/**
 * Ingest Merge.
 *
 * Merges already-parsed external-tool records (Zeek conn/modbus/dnp3/s7comm
 * logs, Suricata events, Nmap hosts, Masscan results) into a snapshot
 * without overwriting passively-observed fields (§4.13): existing assets
 * and connections are only gap-filled, and genuinely new ones are added,
 * tagged with their ingest source so a reviewer can tell a passively
 * observed asset from one the merge step introduced.
 *
 * The external tool log/XML/JSON parsers themselves are out of scope
 * (§1); this package accepts the already-parsed merge-contract records
 * from internal/models.
 */

package ingest

import (
	"strconv"
	"time"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

// Result summarizes one merge call, for the command surface to report back
// to the caller.
type Result struct {
	NewAssets      int
	NewConnections int
	FilledFields   int
}

func sourceTag(source models.IngestSource) string {
	return "ingest:" + string(source)
}

// assetIndex is a mutable lookup built once per merge call; mirrors what
// the aggregator itself builds on snapshot, but over a plain slice since
// ingest never touches the aggregator's live accumulators directly.
type assetIndex struct {
	byIP map[string]int
}

func newAssetIndex(assets []models.Asset) *assetIndex {
	idx := &assetIndex{byIP: make(map[string]int, len(assets))}
	for i := range assets {
		idx.byIP[assets[i].IPAddress] = i
	}
	return idx
}

// ensure returns the existing asset for ip, or creates a new one tagged
// with source and appends it to assets. The returned pointer is valid
// until the next call appends to assets.
func (idx *assetIndex) ensure(assets *[]models.Asset, ip string, source models.IngestSource, now time.Time, result *Result) *models.Asset {
	if i, ok := idx.byIP[ip]; ok {
		return &(*assets)[i]
	}
	*assets = append(*assets, models.Asset{
		IPAddress:  ip,
		DeviceType: models.DeviceTypeUnknown,
		FirstSeen:  now,
		LastSeen:   now,
	})
	a := &(*assets)[len(*assets)-1]
	a.AddTag(sourceTag(source))
	idx.byIP[ip] = len(*assets) - 1
	result.NewAssets++
	return a
}

// fillHostname sets Hostname only if currently empty, preserving any
// passively-observed value.
func fillHostname(a *models.Asset, hostname string, result *Result) {
	if hostname != "" && a.Hostname == "" {
		a.Hostname = hostname
		result.FilledFields++
	}
}

// MergeZeek folds Zeek conn/modbus/dnp3/s7comm log rows into snapshot,
// adding assets/connections for endpoints not already observed. No field
// of an existing asset or connection is filled from these rows.
func MergeZeek(snapshot models.Snapshot, records []models.ZeekConnRecord) (models.Snapshot, Result) {
	var result Result
	idx := newAssetIndex(snapshot.Assets)
	now := time.Now()

	connIdx := make(map[models.ConnectionKey]*models.Connection, len(snapshot.Connections))
	for i := range snapshot.Connections {
		connIdx[snapshot.Connections[i].Key] = &snapshot.Connections[i]
	}

	for _, rec := range records {
		idx.ensure(&snapshot.Assets, rec.SrcIP, models.IngestZeek, now, &result)
		idx.ensure(&snapshot.Assets, rec.DstIP, models.IngestZeek, now, &result)

		key := models.ConnectionKey{SrcIP: rec.SrcIP, SrcPort: rec.SrcPort, DstIP: rec.DstIP, DstPort: rec.DstPort, Protocol: rec.Service}
		if _, ok := connIdx[key]; ok {
			continue
		}
		conn := models.Connection{
			Key:         key,
			Transport:   transportFromProto(rec.Proto),
			PacketCount: 1,
			FirstSeen:   rec.Timestamp,
			LastSeen:    rec.Timestamp,
			OriginFiles: map[string]struct{}{"zeek": {}},
		}
		snapshot.Connections = append(snapshot.Connections, conn)
		connIdx[key] = &snapshot.Connections[len(snapshot.Connections)-1]
		result.NewConnections++
	}

	return snapshot, result
}

// MergeSuricata folds Suricata line-delimited JSON events into snapshot,
// the same way MergeZeek does for conn logs. Alert events additionally
// annotate the source asset with a tag naming the alert, so a reviewer
// sees IDS context alongside passive observations.
func MergeSuricata(snapshot models.Snapshot, events []models.SuricataEvent) (models.Snapshot, Result) {
	var result Result
	idx := newAssetIndex(snapshot.Assets)
	now := time.Now()

	connIdx := make(map[models.ConnectionKey]*models.Connection, len(snapshot.Connections))
	for i := range snapshot.Connections {
		connIdx[snapshot.Connections[i].Key] = &snapshot.Connections[i]
	}

	for _, ev := range events {
		if ev.SrcIP == "" || ev.DstIP == "" {
			continue
		}
		idx.ensure(&snapshot.Assets, ev.DstIP, models.IngestSuricata, now, &result)
		src := idx.ensure(&snapshot.Assets, ev.SrcIP, models.IngestSuricata, now, &result)

		if ev.EventType == "alert" && ev.AlertText != "" {
			src.AddTag("suricata-alert:" + ev.AlertText)
		}

		key := models.ConnectionKey{SrcIP: ev.SrcIP, SrcPort: ev.SrcPort, DstIP: ev.DstIP, DstPort: ev.DstPort, Protocol: ev.Proto}
		if _, ok := connIdx[key]; ok {
			continue
		}
		conn := models.Connection{
			Key:         key,
			Transport:   transportFromProto(ev.Proto),
			PacketCount: 1,
			FirstSeen:   ev.Timestamp,
			LastSeen:    ev.Timestamp,
			OriginFiles: map[string]struct{}{"suricata": {}},
		}
		snapshot.Connections = append(snapshot.Connections, conn)
		connIdx[key] = &snapshot.Connections[len(snapshot.Connections)-1]
		result.NewConnections++
	}

	return snapshot, result
}

// MergeNmap folds Nmap host scan results into snapshot: hostname and an
// OS-guess/open-port annotation are filled onto existing assets, and
// unseen hosts are added net-new.
func MergeNmap(snapshot models.Snapshot, hosts []models.NmapHost) (models.Snapshot, Result) {
	var result Result
	idx := newAssetIndex(snapshot.Assets)
	now := time.Now()

	for _, h := range hosts {
		a := idx.ensure(&snapshot.Assets, h.IPAddress, models.IngestNmap, now, &result)
		fillHostname(a, h.Hostname, &result)
		if h.OSGuess != "" {
			a.AddTag("nmap-os:" + h.OSGuess)
		}
		for _, port := range h.OpenPorts {
			a.AddTag("nmap-open-port:" + strconv.Itoa(port))
		}
	}

	return snapshot, result
}

// MergeMasscan folds Masscan scan results into snapshot: every result adds
// or confirms a net-new asset annotated with the observed open port.
func MergeMasscan(snapshot models.Snapshot, results []models.MasscanResult) (models.Snapshot, Result) {
	var result Result
	idx := newAssetIndex(snapshot.Assets)
	now := time.Now()

	for _, r := range results {
		a := idx.ensure(&snapshot.Assets, r.IPAddress, models.IngestMasscan, now, &result)
		a.AddTag("masscan-open-port:" + strconv.Itoa(r.Port) + "/" + r.Proto)
	}

	return snapshot, result
}

func transportFromProto(proto string) models.Transport {
	switch proto {
	case "tcp":
		return models.TransportTCP
	case "udp":
		return models.TransportUDP
	default:
		return models.TransportOther
	}
}
