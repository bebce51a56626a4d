/**
 * Frame Model.
 *
 * Represents a single IP packet reduced to the fields the rest of the
 * pipeline needs: addressing at each layer, transport, and the raw
 * application payload. One Frame is produced per parsed Ethernet frame;
 * non-IP frames never reach this stage.
 */

package models

import "time"

// Transport identifies the layer-4 protocol carrying a Frame's payload.
type Transport string

const (
	TransportTCP   Transport = "tcp"
	TransportUDP   Transport = "udp"
	TransportOther Transport = "other"
)

// Frame is the transient per-packet record handed from the slicer into the
// rest of the pipeline. Src/Dst MAC are empty when the raw frame was
// shorter than 14 bytes; SrcPort/DstPort are zero for non-TCP/UDP transport.
type Frame struct {
	Timestamp time.Time
	SrcMAC    string
	DstMAC    string
	SrcIP     string
	DstIP     string
	Transport Transport
	SrcPort   uint16
	DstPort   uint16
	Length    int
	Payload   []byte
	Origin    string // file name or live interface name
}

// HasL2 reports whether both MAC addresses were recoverable from the frame.
func (f *Frame) HasL2() bool {
	return f.SrcMAC != "" && f.DstMAC != ""
}
