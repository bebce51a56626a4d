/**
 * Asset & Topology Construction.
 *
 * Builds the per-IP Asset record and the logical topology snapshot from
 * accumulated facts, applying device-type inference, signature matching,
 * and OUI/GeoIP enrichment per §4.7.
 */

package aggregator

import (
	"github.com/kusanaginokajiki/gridmonitor/internal/enricher"
	"github.com/kusanaginokajiki/gridmonitor/internal/models"
	"github.com/kusanaginokajiki/gridmonitor/internal/topology"
)

func (a *Aggregator) buildAsset(ip string, f *ipFacts) models.Asset {
	if override, ok := a.overrides[ip]; ok {
		return overlayFacts(override, f)
	}

	asset := models.Asset{
		IPAddress:   ip,
		MACAddress:  f.mac,
		Protocols:   protocolList(f),
		PacketCount: f.packetCount,
		IsServer:    f.isServer,
		FirstSeen:   f.firstSeen,
		LastSeen:    f.lastSeen,
		DeviceType:  inferDeviceType(f),
	}

	confidence := portBasedConfidence(f)

	if f.mac != "" && a.oui != nil {
		if vendor := a.oui.Lookup(f.mac); vendor != "" {
			asset.OUIVendor = vendor
			confidence = maxInt(confidence, 3)
		}
	}

	if a.engine != nil && len(f.packets) > 0 {
		matches := a.engine.MatchDevicePackets(f.packets)
		for _, m := range matches {
			asset.Signatures = append(asset.Signatures, models.SignatureMatch{
				SignatureName: m.SignatureName,
				Confidence:    m.Confidence,
				Vendor:        m.Vendor,
				ProductFamily: m.ProductFamily,
				Extracted:     m.Extracted,
			})
		}
		if len(matches) > 0 {
			best := matches[0]
			asset.Vendor = best.Vendor
			asset.ProductFamily = best.ProductFamily
			confidence = maxInt(confidence, best.Confidence)
			if best.Confidence >= 3 && best.DeviceType != "" {
				asset.DeviceType = models.DeviceType(best.DeviceType)
			}
		}
	}

	if asset.Vendor == "" && asset.OUIVendor != "" {
		asset.Vendor = asset.OUIVendor
	}

	if f.deepParse.Modbus != nil && f.deepParse.Modbus.DeviceID.NonEmpty() {
		id := f.deepParse.Modbus.DeviceID
		if id.VendorName != "" {
			asset.Vendor = id.VendorName
		}
		if id.ProductCode != "" {
			asset.ProductFamily = id.ProductCode
		}
		confidence = 5
	}

	asset.Confidence = confidence
	asset.IsPublicIP = enricher.IsPublicIP(ip)
	if asset.IsPublicIP && a.geo != nil {
		asset.Country = a.geo.Country(ip)
	}

	return asset
}

// overlayFacts folds current live observations onto a pinned asset view
// (from UpdateAsset or a restored session), so a manual edit or a
// load_session doesn't freeze an asset's traffic counters while still
// preserving the fields a user explicitly set or a save captured.
func overlayFacts(asset models.Asset, f *ipFacts) models.Asset {
	asset.Protocols = protocolList(f)
	asset.PacketCount = f.packetCount
	asset.IsServer = asset.IsServer || f.isServer
	if f.mac != "" {
		asset.MACAddress = f.mac
	}
	if asset.FirstSeen.IsZero() || (!f.firstSeen.IsZero() && f.firstSeen.Before(asset.FirstSeen)) {
		asset.FirstSeen = f.firstSeen
	}
	if f.lastSeen.After(asset.LastSeen) {
		asset.LastSeen = f.lastSeen
	}
	return asset
}

// portBasedConfidence is the "port-based" term of the confidence formula
// (§3): capped at 1, awarded when the IP has any recognized OT protocol.
func portBasedConfidence(f *ipFacts) int {
	if countOTProtocols(f.protocols) > 0 {
		return 1
	}
	return 0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (a *Aggregator) buildTopology(assets []models.Asset) models.TopologySnapshot {
	conns := make([]models.Connection, 0, len(a.connections))
	for _, c := range a.connections {
		conns = append(conns, *c)
	}
	return topology.Build(assets, conns)
}
