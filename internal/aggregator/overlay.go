/**
 * Asset Overrides & Session Restore.
 *
 * Backs update_asset/bulk_update_assets (manual edits that must survive
 * further packet ingestion) and load_session (restoring a prior working
 * view) on top of the same pinned-asset mechanism buildAsset consults.
 */

package aggregator

import (
	"github.com/kusanaginokajiki/gridmonitor/internal/apperr"
	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

// UpdateAsset applies fn to ip's current asset view and pins the result,
// so the edit survives the next Snapshot even as new packets keep arriving
// for ip. Returns apperr.NotFound if ip has never been observed.
func (a *Aggregator) UpdateAsset(ip string, fn func(*models.Asset)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	asset, ok := a.overrides[ip]
	if !ok {
		f, exists := a.ips[ip]
		if !exists {
			return apperr.New(apperr.NotFound, "asset not found: "+ip)
		}
		asset = a.buildAsset(ip, f)
	}

	fn(&asset)

	if a.overrides == nil {
		a.overrides = make(map[string]models.Asset)
	}
	a.overrides[ip] = asset
	return nil
}

// ReplacedWith returns a new Aggregator seeded from a previously saved
// snapshot: every asset is pinned (preserving its exact field values, per
// the save/load round-trip law) and minimal per-IP facts are seeded so
// subsequent live ingestion blends in naturally via overlayFacts.
// Connections carry over verbatim.
func (a *Aggregator) ReplacedWith(snapshot models.Snapshot) *Aggregator {
	out := New(a.oui, a.geo, a.engine)
	out.overrides = make(map[string]models.Asset, len(snapshot.Assets))

	for _, asset := range snapshot.Assets {
		out.overrides[asset.IPAddress] = asset

		f := out.factsFor(asset.IPAddress)
		f.mac = asset.MACAddress
		f.packetCount = asset.PacketCount
		f.firstSeen = asset.FirstSeen
		f.lastSeen = asset.LastSeen
		f.isServer = asset.IsServer
		for _, p := range asset.Protocols {
			f.protocols[p] = struct{}{}
		}
	}

	for _, conn := range snapshot.Connections {
		c := conn
		out.connections[c.Key] = &c
	}

	return out
}
