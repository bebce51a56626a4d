/**
 * Deep-Parse JSON Codec.
 *
 * The per-IP deep-parse accumulators key several maps by struct types
 * (RegisterRangeKey, PollingKey) that encoding/json cannot use directly as
 * map keys. This file flattens those maps to slices for storage and
 * rebuilds them on load, so a session's metadata blob (§3 "Session") round
 * trips through JSON without touching the in-memory accumulator shapes
 * the aggregator and analyzer packages depend on.
 */

package storage

import (
	"encoding/json"
	"time"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

type deepParseWire struct {
	Modbus *modbusWire `json:"modbus,omitempty"`
	DNP3   *dnp3Wire   `json:"dnp3,omitempty"`
}

type registerRangeEntry struct {
	Start    int                 `json:"start"`
	Count    int                 `json:"count"`
	Type     models.RegisterType `json:"type"`
	Observed int                 `json:"observed"`
}

type modbusRelationshipWire struct {
	RemoteIP    string           `json:"remote_ip"`
	RemoteRole  models.ModbusRole `json:"remote_role"`
	UnitIDs     []int            `json:"unit_ids"`
	PacketCount uint64           `json:"packet_count"`
}

type pollingEntry struct {
	RemoteIP     string      `json:"remote_ip"`
	FunctionCode int         `json:"function_code"`
	UnitID       int         `json:"unit_id"`
	Timestamps   []time.Time `json:"timestamps"`
}

type modbusWire struct {
	Role                   models.ModbusRole        `json:"role"`
	UnitIDs                []int                    `json:"unit_ids"`
	FunctionCodes          map[int]int              `json:"function_codes"`
	RegisterRanges         []registerRangeEntry     `json:"register_ranges"`
	DeviceID               *models.ModbusDeviceID   `json:"device_id,omitempty"`
	Relationships          []modbusRelationshipWire `json:"relationships"`
	PollingTimestamps      []pollingEntry           `json:"polling_timestamps"`
	DiagnosticSubfunctions map[int]int              `json:"diagnostic_subfunctions"`
}

type dnp3RelationshipWire struct {
	RemoteIP    string          `json:"remote_ip"`
	RemoteRole  models.DNP3Role `json:"remote_role"`
	PacketCount uint64          `json:"packet_count"`
}

type dnp3Wire struct {
	Role          models.DNP3Role        `json:"role"`
	Addresses     []int                  `json:"addresses"`
	FunctionCodes map[int]int            `json:"function_codes"`
	Unsolicited   bool                   `json:"unsolicited"`
	Relationships []dnp3RelationshipWire `json:"relationships"`
}

func intSetToSlice(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}

func intSliceToSet(vals []int) map[int]struct{} {
	out := make(map[int]struct{}, len(vals))
	for _, v := range vals {
		out[v] = struct{}{}
	}
	return out
}

func toModbusWire(info *models.ModbusInfo) *modbusWire {
	if info == nil {
		return nil
	}
	w := &modbusWire{
		Role:                   info.Role,
		UnitIDs:                intSetToSlice(info.UnitIDs),
		FunctionCodes:          info.FunctionCodes,
		DeviceID:               info.DeviceID,
		DiagnosticSubfunctions: info.DiagnosticSubfunctions,
	}
	for key, count := range info.RegisterRanges {
		w.RegisterRanges = append(w.RegisterRanges, registerRangeEntry{
			Start: key.Start, Count: key.Count, Type: key.Type, Observed: count,
		})
	}
	for ip, rel := range info.Relationships {
		w.Relationships = append(w.Relationships, modbusRelationshipWire{
			RemoteIP: ip, RemoteRole: rel.RemoteRole, UnitIDs: intSetToSlice(rel.UnitIDs), PacketCount: rel.PacketCount,
		})
	}
	for key, timestamps := range info.PollingTimestamps {
		w.PollingTimestamps = append(w.PollingTimestamps, pollingEntry{
			RemoteIP: key.RemoteIP, FunctionCode: key.FunctionCode, UnitID: key.UnitID, Timestamps: timestamps,
		})
	}
	return w
}

func fromModbusWire(w *modbusWire) *models.ModbusInfo {
	if w == nil {
		return nil
	}
	info := models.NewModbusInfo()
	info.Role = w.Role
	info.UnitIDs = intSliceToSet(w.UnitIDs)
	if w.FunctionCodes != nil {
		info.FunctionCodes = w.FunctionCodes
	}
	if w.DiagnosticSubfunctions != nil {
		info.DiagnosticSubfunctions = w.DiagnosticSubfunctions
	}
	info.DeviceID = w.DeviceID
	for _, entry := range w.RegisterRanges {
		info.RegisterRanges[models.RegisterRangeKey{Start: entry.Start, Count: entry.Count, Type: entry.Type}] = entry.Observed
	}
	for _, rel := range w.Relationships {
		info.Relationships[rel.RemoteIP] = &models.ModbusRelationship{
			RemoteIP: rel.RemoteIP, RemoteRole: rel.RemoteRole, UnitIDs: intSliceToSet(rel.UnitIDs), PacketCount: rel.PacketCount,
		}
	}
	for _, entry := range w.PollingTimestamps {
		key := models.PollingKey{RemoteIP: entry.RemoteIP, FunctionCode: entry.FunctionCode, UnitID: entry.UnitID}
		info.PollingTimestamps[key] = entry.Timestamps
	}
	return info
}

func toDNP3Wire(info *models.DNP3Info) *dnp3Wire {
	if info == nil {
		return nil
	}
	w := &dnp3Wire{
		Role:          info.Role,
		Addresses:     intSetToSlice(info.Addresses),
		FunctionCodes: info.FunctionCodes,
		Unsolicited:   info.Unsolicited,
	}
	for ip, rel := range info.Relationships {
		w.Relationships = append(w.Relationships, dnp3RelationshipWire{
			RemoteIP: ip, RemoteRole: rel.RemoteRole, PacketCount: rel.PacketCount,
		})
	}
	return w
}

func fromDNP3Wire(w *dnp3Wire) *models.DNP3Info {
	if w == nil {
		return nil
	}
	info := models.NewDNP3Info()
	info.Role = w.Role
	info.Addresses = intSliceToSet(w.Addresses)
	if w.FunctionCodes != nil {
		info.FunctionCodes = w.FunctionCodes
	}
	info.Unsolicited = w.Unsolicited
	for _, rel := range w.Relationships {
		info.Relationships[rel.RemoteIP] = &models.DNP3Relationship{
			RemoteIP: rel.RemoteIP, RemoteRole: rel.RemoteRole, PacketCount: rel.PacketCount,
		}
	}
	return info
}

type sessionMetadataWire struct {
	DeepParse     map[string]deepParseWire `json:"deep_parse"`
	ImportedFiles []string                 `json:"imported_files"`
}

// MarshalMetadata encodes a SessionMetadata blob to JSON, flattening the
// deep-parse accumulators' struct-keyed maps to slices.
func MarshalMetadata(m models.SessionMetadata) ([]byte, error) {
	wire := sessionMetadataWire{
		DeepParse:     make(map[string]deepParseWire, len(m.DeepParse)),
		ImportedFiles: m.ImportedFiles,
	}
	for ip, dp := range m.DeepParse {
		wire.DeepParse[ip] = deepParseWire{
			Modbus: toModbusWire(dp.Modbus),
			DNP3:   toDNP3Wire(dp.DNP3),
		}
	}
	return json.Marshal(wire)
}

// UnmarshalMetadata is the inverse of MarshalMetadata.
func UnmarshalMetadata(data []byte) (models.SessionMetadata, error) {
	if len(data) == 0 {
		return models.SessionMetadata{}, nil
	}
	var wire sessionMetadataWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return models.SessionMetadata{}, err
	}
	out := models.SessionMetadata{
		DeepParse:     make(map[string]models.DeepParseInfo, len(wire.DeepParse)),
		ImportedFiles: wire.ImportedFiles,
	}
	for ip, dp := range wire.DeepParse {
		out.DeepParse[ip] = models.DeepParseInfo{
			Modbus: fromModbusWire(dp.Modbus),
			DNP3:   fromDNP3Wire(dp.DNP3),
		}
	}
	return out, nil
}
