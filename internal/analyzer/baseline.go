/**
 * Baseline Drift Comparison.
 *
 * Compares a stored baseline session snapshot against the current one,
 * producing asset/connection set differences and a single drift score
 * (§4.10). Pure set/field comparison — no parsing, no I/O — so the storage
 * layer can feed it any two sessions without coupling to SQLite.
 */

package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

// CompareToBaseline diffs current against baseline and scores the drift.
func CompareToBaseline(baseline, current []models.Asset, baselineConns, currentConns []models.Connection) models.BaselineDrift {
	baselineByIP := assetsByIP(baseline)
	currentByIP := assetsByIP(current)

	var drift models.BaselineDrift

	for ip := range currentByIP {
		if _, ok := baselineByIP[ip]; !ok {
			drift.NewAssets = append(drift.NewAssets, ip)
		}
	}
	for ip := range baselineByIP {
		if _, ok := currentByIP[ip]; !ok {
			drift.MissingAssets = append(drift.MissingAssets, ip)
		}
	}
	for ip, cur := range currentByIP {
		base, ok := baselineByIP[ip]
		if !ok {
			continue
		}
		drift.ChangedAssets = append(drift.ChangedAssets, diffAsset(base, cur)...)
	}

	baseConnSet := connKeySet(baselineConns)
	curConnSet := connKeySet(currentConns)
	for key := range curConnSet {
		if _, ok := baseConnSet[key]; !ok {
			drift.NewConnections = append(drift.NewConnections, key)
		}
	}
	for key := range baseConnSet {
		if _, ok := curConnSet[key]; !ok {
			drift.MissingConnections = append(drift.MissingConnections, key)
		}
	}

	sort.Strings(drift.NewAssets)
	sort.Strings(drift.MissingAssets)
	sort.Slice(drift.ChangedAssets, func(i, j int) bool {
		if drift.ChangedAssets[i].IPAddress != drift.ChangedAssets[j].IPAddress {
			return drift.ChangedAssets[i].IPAddress < drift.ChangedAssets[j].IPAddress
		}
		return drift.ChangedAssets[i].Field < drift.ChangedAssets[j].Field
	})
	sort.Slice(drift.NewConnections, func(i, j int) bool { return connKeyLess(drift.NewConnections[i], drift.NewConnections[j]) })
	sort.Slice(drift.MissingConnections, func(i, j int) bool { return connKeyLess(drift.MissingConnections[i], drift.MissingConnections[j]) })

	changes := len(drift.NewAssets) + len(drift.MissingAssets) + len(drift.ChangedAssets) +
		len(drift.NewConnections) + len(drift.MissingConnections)
	denom := len(baseline)
	if len(current) > denom {
		denom = len(current)
	}
	if denom > 0 {
		drift.DriftScore = clamp01(float64(changes) / float64(denom))
	}

	return drift
}

func assetsByIP(assets []models.Asset) map[string]models.Asset {
	out := make(map[string]models.Asset, len(assets))
	for _, a := range assets {
		out[a.IPAddress] = a
	}
	return out
}

func connKeySet(connections []models.Connection) map[models.BaselineConnKey]struct{} {
	out := make(map[models.BaselineConnKey]struct{}, len(connections))
	for _, c := range connections {
		out[models.BaselineConnKey{
			SrcIP:    c.Key.SrcIP,
			DstIP:    c.Key.DstIP,
			DstPort:  c.Key.DstPort,
			Protocol: c.Key.Protocol,
		}] = struct{}{}
	}
	return out
}

func connKeyLess(a, b models.BaselineConnKey) bool {
	if a.SrcIP != b.SrcIP {
		return a.SrcIP < b.SrcIP
	}
	if a.DstIP != b.DstIP {
		return a.DstIP < b.DstIP
	}
	if a.DstPort != b.DstPort {
		return a.DstPort < b.DstPort
	}
	return a.Protocol < b.Protocol
}

// diffAsset compares the fields that matter for drift: device_type, vendor,
// confidence, protocol set, hostname, and Purdue level.
func diffAsset(base, cur models.Asset) []models.AssetDiff {
	var diffs []models.AssetDiff
	add := func(field, baselineVal, currentVal string) {
		if baselineVal != currentVal {
			diffs = append(diffs, models.AssetDiff{
				IPAddress: cur.IPAddress, Field: field, Baseline: baselineVal, Current: currentVal,
			})
		}
	}

	add("device_type", string(base.DeviceType), string(cur.DeviceType))
	add("vendor", base.Vendor, cur.Vendor)
	add("confidence", fmt.Sprintf("%d", base.Confidence), fmt.Sprintf("%d", cur.Confidence))
	add("hostname", base.Hostname, cur.Hostname)
	add("purdue_level", fmt.Sprintf("%d", base.PurdueLevel), fmt.Sprintf("%d", cur.PurdueLevel))
	add("protocols", sortedJoin(base.Protocols), sortedJoin(cur.Protocols))

	return diffs
}

func sortedJoin(items []string) string {
	cp := append([]string(nil), items...)
	sort.Strings(cp)
	return strings.Join(cp, ",")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
