/**
 * Device-Type Inference.
 *
 * The first-match-wins rule table of §4.8, evaluated per IP at snapshot
 * time from its observed protocol set and server-port behavior.
 */

package aggregator

import "github.com/kusanaginokajiki/gridmonitor/internal/models"

func hasAny(protocols map[string]struct{}, names ...string) bool {
	for _, n := range names {
		if _, ok := protocols[n]; ok {
			return true
		}
	}
	return false
}

func countOTProtocols(protocols map[string]struct{}) int {
	n := 0
	for p := range protocols {
		if isOTProtocolName(p) {
			n++
		}
	}
	return n
}

var otProtocolNames = map[string]struct{}{
	"modbus": {}, "dnp3": {}, "ethernet_ip": {}, "bacnet": {}, "s7comm": {},
	"opc_ua": {}, "profinet": {}, "iec104": {}, "mqtt": {}, "hart_ip": {},
	"foundation_fieldbus": {}, "ge_srtp": {}, "wonderware_suitelink": {},
}

func isOTProtocolName(p string) bool {
	_, ok := otProtocolNames[p]
	return ok
}

// inferDeviceType applies the §4.8 priority table.
func inferDeviceType(f *ipFacts) models.DeviceType {
	n := countOTProtocols(f.protocols)
	isServer := f.isServer

	switch {
	case isServer && hasAny(f.protocols, "ethernet_ip", "s7comm", "ge_srtp", "bacnet"):
		return models.DeviceTypePLC
	case isServer && hasAny(f.protocols, "modbus", "dnp3"):
		return models.DeviceTypeRTU
	case hasAny(f.protocols, "wonderware_suitelink") && isServer:
		return models.DeviceTypeSCADAServer
	case n >= 2:
		return models.DeviceTypeHMI
	case hasAny(f.protocols, "opc_ua") && n == 1:
		return models.DeviceTypeHistorian
	case n == 0:
		return models.DeviceTypeITDevice
	default:
		return models.DeviceTypeUnknown
	}
}
