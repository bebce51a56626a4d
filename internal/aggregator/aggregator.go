/**
 * Per-IP Aggregator.
 *
 * The heart of the pipeline. Consumes sliced frames one at a time, folding
 * them into per-IP and per-connection state: protocol sets, MAC, packet/byte
 * counts, server-role facts, and per-protocol deep-parse accumulators. A
 * snapshot copies the current view out without touching the accumulators,
 * so live capture keeps updating after a snapshot is taken.
 */

package aggregator

import (
	"sort"
	"sync"
	"time"

	"github.com/kusanaginokajiki/gridmonitor/internal/deepparse"
	"github.com/kusanaginokajiki/gridmonitor/internal/enricher"
	"github.com/kusanaginokajiki/gridmonitor/internal/models"
	"github.com/kusanaginokajiki/gridmonitor/internal/protocol"
	"github.com/kusanaginokajiki/gridmonitor/internal/signature"
)

const maxPacketBuffer = 256

// ipFacts is the plain per-IP bookkeeping that isn't protocol-specific.
type ipFacts struct {
	mac         string
	protocols   map[string]struct{}
	packetCount uint64
	firstSeen   time.Time
	lastSeen    time.Time
	isServer    bool
	deepParse   models.DeepParseInfo
	packets     []*models.Frame // bounded buffer for signature matching
}

// Aggregator holds all per-IP and per-connection accumulators. The entire
// state lives behind one mutex per §5 "aggregator state and session state
// live behind a single logical mutex".
type Aggregator struct {
	mu sync.Mutex

	ips         map[string]*ipFacts
	connections map[models.ConnectionKey]*models.Connection

	// overrides pins a full Asset view for an IP, set by UpdateAsset (manual
	// edits) and ReplacedWith (session restore); buildAsset starts from it
	// instead of re-inferring from scratch, so user edits and restored
	// session state survive subsequent packet ingestion.
	overrides map[string]models.Asset

	oui    *enricher.VendorLookup
	geo    *enricher.GeoIPService
	engine *signature.Engine
}

// New creates an empty aggregator. oui/geo/engine may be nil, in which case
// the corresponding enrichment step is skipped on snapshot.
func New(oui *enricher.VendorLookup, geo *enricher.GeoIPService, engine *signature.Engine) *Aggregator {
	return &Aggregator{
		ips:         make(map[string]*ipFacts),
		connections: make(map[models.ConnectionKey]*models.Connection),
		oui:         oui,
		geo:         geo,
		engine:      engine,
	}
}

// SetEngine swaps the signature engine used on the next snapshot, for
// reload_signatures.
func (a *Aggregator) SetEngine(engine *signature.Engine) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.engine = engine
}

func (a *Aggregator) factsFor(ip string) *ipFacts {
	f, ok := a.ips[ip]
	if !ok {
		f = &ipFacts{
			protocols: make(map[string]struct{}),
			deepParse: models.DeepParseInfo{},
		}
		a.ips[ip] = f
	}
	return f
}

// Ingest is the per-packet step (§4.7): identify the protocol, update both
// endpoints' facts, update the connection, fold any deep-parse result.
func (a *Aggregator) Ingest(frame *models.Frame) {
	tag := protocol.Identify(frame.SrcPort, frame.DstPort)

	a.mu.Lock()
	defer a.mu.Unlock()

	src := a.factsFor(frame.SrcIP)
	dst := a.factsFor(frame.DstIP)
	a.touch(src, frame.SrcMAC, tag, frame.Timestamp)
	a.touch(dst, frame.DstMAC, tag, frame.Timestamp)

	if protocol.IsOT(tag) {
		if isKnownServerPort(frame.SrcPort) {
			src.isServer = true
		}
		if isKnownServerPort(frame.DstPort) {
			dst.isServer = true
		}
	}

	conn := a.connectionFor(frame)
	conn.AddSample(models.PacketSummary{
		Timestamp: frame.Timestamp,
		Length:    frame.Length,
		FrameInfo: string(tag),
	})
	if conn.OriginFiles == nil {
		conn.OriginFiles = make(map[string]struct{})
	}
	if frame.Origin != "" {
		conn.OriginFiles[frame.Origin] = struct{}{}
	}

	switch tag {
	case protocol.Modbus:
		a.foldModbus(src, dst, frame)
	case protocol.DNP3:
		a.foldDNP3(src, dst, frame)
	}

	a.bufferPacket(src, frame)
	a.bufferPacket(dst, frame)
}

func (a *Aggregator) touch(f *ipFacts, mac string, tag protocol.Tag, ts time.Time) {
	if f.mac == "" && mac != "" {
		f.mac = mac
	}
	if tag != protocol.Unknown {
		f.protocols[string(tag)] = struct{}{}
	}
	f.packetCount++
	if f.firstSeen.IsZero() || ts.Before(f.firstSeen) {
		f.firstSeen = ts
	}
	if ts.After(f.lastSeen) {
		f.lastSeen = ts
	}
}

func (a *Aggregator) bufferPacket(f *ipFacts, frame *models.Frame) {
	if len(f.packets) >= maxPacketBuffer {
		f.packets = f.packets[1:]
	}
	f.packets = append(f.packets, frame)
}

func (a *Aggregator) connectionFor(frame *models.Frame) *models.Connection {
	key := models.ConnectionKey{
		SrcIP:    frame.SrcIP,
		SrcPort:  frame.SrcPort,
		DstIP:    frame.DstIP,
		DstPort:  frame.DstPort,
		Protocol: string(protocol.Identify(frame.SrcPort, frame.DstPort)),
	}
	conn, ok := a.connections[key]
	if !ok {
		conn = &models.Connection{
			Key:         key,
			SrcMAC:      frame.SrcMAC,
			DstMAC:      frame.DstMAC,
			Transport:   frame.Transport,
			FirstSeen:   frame.Timestamp,
			OriginFiles: make(map[string]struct{}),
		}
		a.connections[key] = conn
	}
	conn.PacketCount++
	conn.ByteCount += uint64(frame.Length)
	if conn.FirstSeen.IsZero() || frame.Timestamp.Before(conn.FirstSeen) {
		conn.FirstSeen = frame.Timestamp
	}
	if frame.Timestamp.After(conn.LastSeen) {
		conn.LastSeen = frame.Timestamp
	}
	return conn
}

func (a *Aggregator) foldModbus(src, dst *ipFacts, frame *models.Frame) {
	r := deepparse.ParseModbus(frame.Payload, frame.SrcPort, frame.DstPort)
	if !r.Recognized {
		return
	}

	master, slave := src, dst
	masterIP, slaveIP := frame.SrcIP, frame.DstIP
	if r.Role == models.ModbusSlave {
		master, slave = dst, src
		masterIP, slaveIP = frame.DstIP, frame.SrcIP
	}

	foldModbusInto(master, r, slaveIP, models.ModbusSlave, frame.Timestamp)
	foldModbusInto(slave, r, masterIP, models.ModbusMaster, frame.Timestamp)
}

func foldModbusInto(f *ipFacts, r deepparse.ModbusResult, remoteIP string, remoteRole models.ModbusRole, ts time.Time) {
	if f.deepParse.Modbus == nil {
		f.deepParse.Modbus = models.NewModbusInfo()
	}
	info := f.deepParse.Modbus

	role := r.Role
	if role != models.ModbusUnknown {
		role = models.ModbusMaster
		if remoteRole == models.ModbusMaster {
			role = models.ModbusSlave
		}
	}
	if info.Role == "" {
		info.Role = role
	} else if info.Role != role && info.Role != models.ModbusBoth {
		info.Role = models.ModbusBoth
	}

	info.UnitIDs[r.UnitID] = struct{}{}
	info.FunctionCodes[r.FunctionCode]++

	if r.HasRange {
		info.RegisterRanges[models.RegisterRangeKey{Start: r.RangeStart, Count: r.RangeCount, Type: r.RangeType}]++
	}
	if r.DeviceID.NonEmpty() {
		info.DeviceID = r.DeviceID
	}
	if r.HasDiagSub {
		info.DiagnosticSubfunctions[r.DiagSubfunction]++
	}

	rel, ok := info.Relationships[remoteIP]
	if !ok {
		rel = &models.ModbusRelationship{RemoteIP: remoteIP, RemoteRole: remoteRole, UnitIDs: make(map[int]struct{})}
		info.Relationships[remoteIP] = rel
	}
	rel.UnitIDs[r.UnitID] = struct{}{}
	rel.PacketCount++

	key := models.PollingKey{RemoteIP: remoteIP, FunctionCode: r.FunctionCode, UnitID: r.UnitID}
	info.PollingTimestamps[key] = append(info.PollingTimestamps[key], ts)
}

func (a *Aggregator) foldDNP3(src, dst *ipFacts, frame *models.Frame) {
	r := deepparse.ParseDNP3(frame.Payload, frame.SrcPort, frame.DstPort)
	if !r.Recognized {
		return
	}

	master, outstation := src, dst
	masterIP, outstationIP := frame.SrcIP, frame.DstIP
	masterAddr, outstationAddr := r.Source, r.Destination
	if r.Role == models.DNP3Outstation {
		master, outstation = dst, src
		masterIP, outstationIP = frame.DstIP, frame.SrcIP
		masterAddr, outstationAddr = r.Destination, r.Source
	}

	foldDNP3Into(master, r, outstationIP, models.DNP3Outstation, masterAddr)
	foldDNP3Into(outstation, r, masterIP, models.DNP3Master, outstationAddr)
}

func foldDNP3Into(f *ipFacts, r deepparse.DNP3Result, remoteIP string, remoteRole models.DNP3Role, addr int) {
	if f.deepParse.DNP3 == nil {
		f.deepParse.DNP3 = models.NewDNP3Info()
	}
	info := f.deepParse.DNP3

	role := r.Role
	if role != models.DNP3UnknownRole {
		role = models.DNP3Master
		if remoteRole == models.DNP3Master {
			role = models.DNP3Outstation
		}
	}
	if info.Role == "" {
		info.Role = role
	} else if info.Role != role && info.Role != models.DNP3Both {
		info.Role = models.DNP3Both
	}

	info.Addresses[addr] = struct{}{}
	if r.HasFunction {
		info.FunctionCodes[r.FunctionCode]++
	}
	if r.Unsolicited {
		info.Unsolicited = true
	}

	rel, ok := info.Relationships[remoteIP]
	if !ok {
		rel = &models.DNP3Relationship{RemoteIP: remoteIP, RemoteRole: remoteRole}
		info.Relationships[remoteIP] = rel
	}
	rel.PacketCount++
}

// Snapshot copies the current assets, connections, and topology out without
// draining the accumulators (§3 "Ownership & lifecycle").
func (a *Aggregator) Snapshot() models.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	assets := make([]models.Asset, 0, len(a.ips))
	for ip, facts := range a.ips {
		assets = append(assets, a.buildAsset(ip, facts))
	}
	sortAssets(assets)

	conns := make([]models.Connection, 0, len(a.connections))
	for _, c := range a.connections {
		conns = append(conns, *c)
	}

	return models.Snapshot{
		Assets:      assets,
		Connections: conns,
		Topology:    a.buildTopology(assets),
	}
}

// DeepParseInfo returns the accumulated deep-parse record for one IP, for
// get_deep_parse_info. The boolean reports whether the IP has been observed
// at all.
func (a *Aggregator) DeepParseInfo(ip string) (models.DeepParseInfo, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, ok := a.ips[ip]
	if !ok {
		return models.DeepParseInfo{}, false
	}
	return f.deepParse, true
}

// FunctionCodeStats aggregates Modbus and DNP3 function-code histograms
// across every observed IP, for get_function_code_stats.
func (a *Aggregator) FunctionCodeStats() (modbus map[int]int, dnp3 map[int]int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	modbus = make(map[int]int)
	dnp3 = make(map[int]int)
	for _, f := range a.ips {
		if f.deepParse.Modbus != nil {
			for fc, count := range f.deepParse.Modbus.FunctionCodes {
				modbus[fc] += count
			}
		}
		if f.deepParse.DNP3 != nil {
			for fc, count := range f.deepParse.DNP3.FunctionCodes {
				dnp3[fc] += count
			}
		}
	}
	return modbus, dnp3
}

// TimelineRange returns the earliest first_seen and latest last_seen across
// every observed IP, for get_timeline_range. ok is false if nothing has
// been observed yet.
func (a *Aggregator) TimelineRange() (start, end time.Time, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, f := range a.ips {
		if !ok || f.firstSeen.Before(start) {
			start = f.firstSeen
		}
		if !ok || f.lastSeen.After(end) {
			end = f.lastSeen
		}
		ok = true
	}
	return start, end, ok
}

func sortAssets(assets []models.Asset) {
	sort.SliceStable(assets, func(i, j int) bool {
		iOT := assets[i].DeviceType != models.DeviceTypeITDevice && assets[i].DeviceType != models.DeviceTypeUnknown
		jOT := assets[j].DeviceType != models.DeviceTypeITDevice && assets[j].DeviceType != models.DeviceTypeUnknown
		if iOT != jOT {
			return iOT
		}
		return assets[i].PacketCount > assets[j].PacketCount
	})
}

// protocolList returns the sorted, unique protocol set for a facts record.
func protocolList(f *ipFacts) []string {
	out := make([]string, 0, len(f.protocols))
	for p := range f.protocols {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
