/**
 * Read-Only Query Operations.
 *
 * get_topology, get_assets, get_connections, get_protocol_stats,
 * get_connection_packets, get_deep_parse_info, get_function_code_stats,
 * get_timeline_range — every operation that only needs a snapshot of the
 * aggregator's current state, never mutating it.
 */

package command

import (
	"sort"
	"time"

	"github.com/kusanaginokajiki/gridmonitor/internal/apperr"
	"github.com/kusanaginokajiki/gridmonitor/internal/models"
	"github.com/kusanaginokajiki/gridmonitor/internal/topology"
)

// GetTopology answers get_topology.
func (s *Surface) GetTopology() (models.TopologySnapshot, error) {
	snapshot := s.snapshotLocked()
	return topology.Build(snapshot.Assets, snapshot.Connections), nil
}

// GetAssets answers get_assets.
func (s *Surface) GetAssets() ([]models.Asset, error) {
	snapshot := s.snapshotLocked()
	return snapshot.Assets, nil
}

// GetConnections answers get_connections.
func (s *Surface) GetConnections() ([]models.Connection, error) {
	snapshot := s.snapshotLocked()
	return snapshot.Connections, nil
}

// ProtocolStat is one row of get_protocol_stats: protocol name, connection
// count, and total packets carried.
type ProtocolStat struct {
	Protocol    string
	Connections int
	PacketCount uint64
}

// GetProtocolStats answers get_protocol_stats.
func (s *Surface) GetProtocolStats() ([]ProtocolStat, error) {
	snapshot := s.snapshotLocked()

	byProto := make(map[string]*ProtocolStat)
	for _, c := range snapshot.Connections {
		stat, ok := byProto[c.Key.Protocol]
		if !ok {
			stat = &ProtocolStat{Protocol: c.Key.Protocol}
			byProto[c.Key.Protocol] = stat
		}
		stat.Connections++
		stat.PacketCount += c.PacketCount
	}

	out := make([]ProtocolStat, 0, len(byProto))
	for _, stat := range byProto {
		out = append(out, *stat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Protocol < out[j].Protocol })
	return out, nil
}

// GetConnectionPackets answers get_connection_packets(id): id is the
// connection key's string form, matching ConnectionKey.String().
func (s *Surface) GetConnectionPackets(connID string) ([]models.PacketSummary, error) {
	snapshot := s.snapshotLocked()
	for _, c := range snapshot.Connections {
		if c.Key.String() == connID {
			return c.PacketSamples, nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "connection not found: "+connID)
}

// GetDeepParseInfo answers get_deep_parse_info(ip).
func (s *Surface) GetDeepParseInfo(ip string) (models.DeepParseInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.agg.DeepParseInfo(ip)
	if !ok {
		return models.DeepParseInfo{}, apperr.New(apperr.NotFound, "no deep-parse data for "+ip)
	}
	return info, nil
}

// FunctionCodeStats answers get_function_code_stats: Modbus and DNP3
// function-code histograms across every observed IP.
type FunctionCodeStats struct {
	Modbus map[int]int
	DNP3   map[int]int
}

// GetFunctionCodeStats answers get_function_code_stats.
func (s *Surface) GetFunctionCodeStats() (FunctionCodeStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	modbus, dnp3 := s.agg.FunctionCodeStats()
	return FunctionCodeStats{Modbus: modbus, DNP3: dnp3}, nil
}

// TimelineRange answers get_timeline_range: the earliest first_seen and
// latest last_seen observed across every connection.
type TimelineRange struct {
	Start time.Time
	End   time.Time
	Empty bool
}

// GetTimelineRange answers get_timeline_range.
func (s *Surface) GetTimelineRange() (TimelineRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start, end, ok := s.agg.TimelineRange()
	if !ok {
		return TimelineRange{Empty: true}, nil
	}
	return TimelineRange{Start: start, End: end}, nil
}
