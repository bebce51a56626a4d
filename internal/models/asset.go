/**
 * Asset Model.
 *
 * Represents one observed IP endpoint on the network, enriched with
 * classification, signature matches, and vendor/geo context. One Asset
 * exists per IP within a session.
 */

package models

import "time"

// DeviceType is the inferred role of an Asset per the §4.8 rule table.
type DeviceType string

const (
	DeviceTypePLC          DeviceType = "plc"
	DeviceTypeRTU          DeviceType = "rtu"
	DeviceTypeHMI          DeviceType = "hmi"
	DeviceTypeHistorian    DeviceType = "historian"
	DeviceTypeSCADAServer  DeviceType = "scada_server"
	DeviceTypeEngWorkstn   DeviceType = "engineering_workstation"
	DeviceTypeITDevice     DeviceType = "it_device"
	DeviceTypeUnknown      DeviceType = "unknown"
)

// SignatureMatch is one ranked fingerprint-engine result folded onto an asset.
type SignatureMatch struct {
	SignatureName string
	Confidence    int
	Vendor        string
	ProductFamily string
	Extracted     map[string]string
}

// Asset is keyed by IP address; it is the unit the command surface, session
// store, and analysis passes all operate on.
type Asset struct {
	IPAddress     string
	MACAddress    string
	Hostname      string
	DeviceType    DeviceType
	Vendor        string
	ProductFamily string
	Protocols     []string // sorted, unique
	IsServer      bool     // true iff observed answering on a known OT server port
	Confidence    int      // 0-5
	PurdueLevel   int      // 1-4, 0 = unset
	ManualLevel   bool     // true once a user has pinned PurdueLevel
	Tags          []string // ordered, unique
	Notes         string
	PacketCount   uint64
	Signatures    []SignatureMatch
	OUIVendor     string
	Country       string // populated only when IsPublicIP
	IsPublicIP    bool
	FirstSeen     time.Time
	LastSeen      time.Time
}

// HasProtocol reports whether p is in the asset's observed protocol set.
func (a *Asset) HasProtocol(p string) bool {
	for _, existing := range a.Protocols {
		if existing == p {
			return true
		}
	}
	return false
}

// AddTag appends tag if not already present, preserving insertion order.
func (a *Asset) AddTag(tag string) {
	for _, existing := range a.Tags {
		if existing == tag {
			return
		}
	}
	a.Tags = append(a.Tags, tag)
}
