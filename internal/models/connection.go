/**
 * Connection Model.
 *
 * Represents one directed 5-tuple conversation between two endpoints.
 * The reverse direction, if observed, is tracked as a distinct record.
 */

package models

import (
	"fmt"
	"time"
)

// ConnectionKey uniquely identifies a directed connection.
type ConnectionKey struct {
	SrcIP    string
	SrcPort  uint16
	DstIP    string
	DstPort  uint16
	Protocol string
}

// String renders the key for drill-down labels and log lines.
func (k ConnectionKey) String() string {
	return fmt.Sprintf("%s:%d -> %s:%d [%s]", k.SrcIP, k.SrcPort, k.DstIP, k.DstPort, k.Protocol)
}

// PacketSummary is one bounded drill-down entry retained per connection
// (capped at 1000 per §4.7) so the command surface can show recent traffic
// without holding every packet in memory.
type PacketSummary struct {
	Timestamp time.Time
	Length    int
	FrameInfo string // short human-readable description, e.g. function code
}

// Connection is keyed by ConnectionKey; invariants: FirstSeen <= LastSeen,
// PacketCount >= 1.
type Connection struct {
	Key            ConnectionKey
	SrcMAC         string
	DstMAC         string
	Transport      Transport
	PacketCount    uint64
	ByteCount      uint64
	FirstSeen      time.Time
	LastSeen       time.Time
	OriginFiles    map[string]struct{}
	PacketSamples  []PacketSummary
}

const maxPacketSamples = 1000

// AddSample appends a packet summary, evicting the oldest once the cap is
// reached so per-connection memory stays bounded.
func (c *Connection) AddSample(s PacketSummary) {
	if len(c.PacketSamples) >= maxPacketSamples {
		c.PacketSamples = c.PacketSamples[1:]
	}
	c.PacketSamples = append(c.PacketSamples, s)
}
