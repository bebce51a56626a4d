/**
 * Topology Model.
 *
 * Logical network topology derived from flow observations: nodes keyed by
 * IP, directed edges keyed by (src, dst, protocol). Nodes and edges are
 * stored in separate maps and joined by key only at snapshot time, which
 * avoids the cyclic node<->edge ownership the source material warns about
 * (§9 "cyclic ownership between topology nodes and edges").
 */

package models

// TopologyNode is one IP-keyed vertex in the logical topology.
type TopologyNode struct {
	IPAddress   string
	DeviceType  DeviceType
	Vendor      string
	Protocols   []string
	PacketCount uint64
	Subnet      string // /24 label
}

// TopologyEdgeKey keys a directed topology edge.
type TopologyEdgeKey struct {
	SrcIP    string
	DstIP    string
	Protocol string
}

// TopologyEdge is one directed edge in the logical topology.
type TopologyEdge struct {
	Key             TopologyEdgeKey
	PacketCount     uint64
	ByteCount       uint64
	Bidirectional   bool
}

// TopologySnapshot is a point-in-time copy of the logical topology.
type TopologySnapshot struct {
	Nodes map[string]TopologyNode
	Edges map[TopologyEdgeKey]TopologyEdge
}
