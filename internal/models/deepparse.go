/**
 * Deep-Parse Records.
 *
 * Per-IP accumulators folded from Modbus/TCP and DNP3 payload decodes:
 * roles, addressing, register ranges, device identification, relationships,
 * and polling cadence. Modeled as a tagged sum (§9 "dynamic dispatch across
 * protocols") so new protocols extend the set without touching callers that
 * only care about one branch.
 */

package models

import "time"

// ModbusRole is the inferred master/slave role for a Modbus-speaking IP.
type ModbusRole string

const (
	ModbusMaster  ModbusRole = "master"
	ModbusSlave   ModbusRole = "slave"
	ModbusBoth    ModbusRole = "both"
	ModbusUnknown ModbusRole = "unknown"
)

// RegisterType distinguishes the four Modbus addressing spaces.
type RegisterType string

const (
	RegisterCoil           RegisterType = "coil"
	RegisterDiscreteInput  RegisterType = "discrete_input"
	RegisterHolding        RegisterType = "holding_register"
	RegisterInput          RegisterType = "input_register"
)

// RegisterRangeKey keys the register-range histogram.
type RegisterRangeKey struct {
	Start int
	Count int
	Type  RegisterType
}

// ModbusDeviceID is the FC 43/14 device-identification response, reduced to
// printable ASCII per object.
type ModbusDeviceID struct {
	VendorName   string
	ProductCode  string
	Revision     string
	VendorURL    string
	ProductName  string
	ModelName    string
	UserAppName  string
}

// NonEmpty reports whether the device identification carries enough to be
// recorded per §4.4 (vendor_name, product_code, or revision non-empty).
func (d *ModbusDeviceID) NonEmpty() bool {
	return d != nil && (d.VendorName != "" || d.ProductCode != "" || d.Revision != "")
}

// ModbusRelationship tracks one remote IP a Modbus endpoint talks to.
type ModbusRelationship struct {
	RemoteIP    string
	RemoteRole  ModbusRole
	UnitIDs     map[int]struct{}
	PacketCount uint64
}

// PollingKey identifies one (remote, function code, unit) polling series.
type PollingKey struct {
	RemoteIP     string
	FunctionCode int
	UnitID       int
}

// PollingStats is the derived summary of a polling series' inter-arrival
// times, computed on demand per §4.7 (not stored incrementally).
type PollingStats struct {
	AvgMS       float64
	MinMS       float64
	MaxMS       float64
	SampleCount int
}

// ModbusInfo is the per-IP Modbus deep-parse accumulator.
type ModbusInfo struct {
	Role             ModbusRole
	UnitIDs          map[int]struct{}
	FunctionCodes    map[int]int // code -> count
	RegisterRanges   map[RegisterRangeKey]int
	DeviceID         *ModbusDeviceID
	Relationships    map[string]*ModbusRelationship // remote IP -> relationship
	PollingTimestamps map[PollingKey][]time.Time
	DiagnosticSubfunctions map[int]int
}

// NewModbusInfo returns a zero-valued accumulator ready for folding.
func NewModbusInfo() *ModbusInfo {
	return &ModbusInfo{
		UnitIDs:                make(map[int]struct{}),
		FunctionCodes:          make(map[int]int),
		RegisterRanges:         make(map[RegisterRangeKey]int),
		Relationships:          make(map[string]*ModbusRelationship),
		PollingTimestamps:      make(map[PollingKey][]time.Time),
		DiagnosticSubfunctions: make(map[int]int),
	}
}

// IsWriteFC reports whether a Modbus function code is a write operation.
func IsWriteFC(fc int) bool {
	switch fc {
	case 5, 6, 15, 16:
		return true
	}
	return false
}

// DNP3Role is the inferred master/outstation role for a DNP3-speaking IP.
type DNP3Role string

const (
	DNP3Master     DNP3Role = "master"
	DNP3Outstation DNP3Role = "outstation"
	DNP3Both       DNP3Role = "both"
	DNP3UnknownRole DNP3Role = "unknown"
)

// DNP3Relationship tracks one remote IP a DNP3 endpoint talks to.
type DNP3Relationship struct {
	RemoteIP    string
	RemoteRole  DNP3Role
	PacketCount uint64
}

// DNP3Info is the per-IP DNP3 deep-parse accumulator.
type DNP3Info struct {
	Role              DNP3Role
	Addresses         map[int]struct{}
	FunctionCodes     map[int]int
	Unsolicited       bool
	Relationships     map[string]*DNP3Relationship
}

// NewDNP3Info returns a zero-valued accumulator ready for folding.
func NewDNP3Info() *DNP3Info {
	return &DNP3Info{
		Addresses:     make(map[int]struct{}),
		FunctionCodes: make(map[int]int),
		Relationships: make(map[string]*DNP3Relationship),
	}
}

// DeepParseInfo is the per-IP container for every protocol's accumulator;
// it is the "tagged sum" the aggregator folds parsed frames into.
type DeepParseInfo struct {
	Modbus *ModbusInfo
	DNP3   *DNP3Info
}
