/**
 * Topology Builder.
 *
 * Derives a logical topology snapshot from a set of assets and connections:
 * nodes keyed by IP, directed edges keyed by (src, dst, protocol), with
 * bidirectionality resolved once both directions are known. Nodes and
 * edges are joined only at snapshot time (§9 "cyclic ownership between
 * topology nodes and edges"), so neither side ever holds a pointer into
 * the other.
 */

package topology

import "github.com/kusanaginokajiki/gridmonitor/internal/models"

// Build produces a point-in-time topology snapshot from the given assets
// and connections.
func Build(assets []models.Asset, connections []models.Connection) models.TopologySnapshot {
	nodes := make(map[string]models.TopologyNode, len(assets))
	for _, a := range assets {
		nodes[a.IPAddress] = models.TopologyNode{
			IPAddress:   a.IPAddress,
			DeviceType:  a.DeviceType,
			Vendor:      a.Vendor,
			Protocols:   a.Protocols,
			PacketCount: a.PacketCount,
			Subnet:      subnet24(a.IPAddress),
		}
	}

	edges := make(map[models.TopologyEdgeKey]models.TopologyEdge, len(connections))
	for _, c := range connections {
		key := models.TopologyEdgeKey{SrcIP: c.Key.SrcIP, DstIP: c.Key.DstIP, Protocol: c.Key.Protocol}
		existing := edges[key]
		existing.Key = key
		existing.PacketCount += c.PacketCount
		existing.ByteCount += c.ByteCount
		edges[key] = existing
	}

	for key, edge := range edges {
		reverse := models.TopologyEdgeKey{SrcIP: key.DstIP, DstIP: key.SrcIP, Protocol: key.Protocol}
		if _, ok := edges[reverse]; ok {
			edge.Bidirectional = true
			edges[key] = edge
		}
	}

	return models.TopologySnapshot{Nodes: nodes, Edges: edges}
}

// subnet24 returns the /24 label for a dotted-quad IPv4 address, or "" for
// anything else (IPv6 nodes carry no subnet label).
func subnet24(ip string) string {
	dots := 0
	lastDot := -1
	for i, c := range ip {
		if c == '.' {
			dots++
			if dots == 3 {
				lastDot = i
				break
			}
		}
	}
	if lastDot < 0 {
		return ""
	}
	return ip[:lastDot] + ".0/24"
}
