/**
 * Frame Slicer.
 *
 * Deterministic pure function turning raw Ethernet bytes into a models.Frame.
 * Returns nothing for non-IP frames; never panics on malformed input.
 */

package capture

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

// Slice decodes a raw Ethernet frame into a Frame record, or returns nil if
// the network layer is not IPv4 or IPv6. Source/destination MAC are
// populated only if the raw frame is at least 14 bytes long. IPv6 addresses
// are formatted in the non-compressed colon-hex form.
func Slice(raw RawPacket) *models.Frame {
	defer func() {
		// A malformed frame must never abort the batch; gopacket panics on
		// some truncated inputs despite Lazy decoding.
		recover()
	}()

	packet := gopacket.NewPacket(raw.Data, layers.LayerTypeEthernet, gopacket.Lazy)

	var srcMAC, dstMAC string
	if len(raw.Data) >= 14 {
		if ethLayer := packet.Layer(layers.LayerTypeEthernet); ethLayer != nil {
			eth, _ := ethLayer.(*layers.Ethernet)
			srcMAC = eth.SrcMAC.String()
			dstMAC = eth.DstMAC.String()
		}
	}

	var srcIP, dstIP string
	switch {
	case packet.Layer(layers.LayerTypeIPv4) != nil:
		ip4, _ := packet.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
		srcIP = ip4.SrcIP.String()
		dstIP = ip4.DstIP.String()
	case packet.Layer(layers.LayerTypeIPv6) != nil:
		ip6, _ := packet.Layer(layers.LayerTypeIPv6).(*layers.IPv6)
		srcIP = formatIPv6NoCollapse(ip6.SrcIP)
		dstIP = formatIPv6NoCollapse(ip6.DstIP)
	default:
		return nil
	}

	frame := &models.Frame{
		Timestamp: raw.Timestamp,
		SrcMAC:    srcMAC,
		DstMAC:    dstMAC,
		SrcIP:     srcIP,
		DstIP:     dstIP,
		Length:    len(raw.Data),
		Origin:    raw.Origin,
		Transport: models.TransportOther,
	}

	switch {
	case packet.Layer(layers.LayerTypeTCP) != nil:
		tcp, _ := packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
		frame.Transport = models.TransportTCP
		frame.SrcPort = uint16(tcp.SrcPort)
		frame.DstPort = uint16(tcp.DstPort)
		frame.Payload = tcp.Payload
	case packet.Layer(layers.LayerTypeUDP) != nil:
		udp, _ := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		frame.Transport = models.TransportUDP
		frame.SrcPort = uint16(udp.SrcPort)
		frame.DstPort = uint16(udp.DstPort)
		frame.Payload = udp.Payload
	}

	return frame
}

// formatIPv6NoCollapse renders an IPv6 address as eight non-abbreviated
// colon-hex groups, per §4.2 ("no :: collapse").
func formatIPv6NoCollapse(ip []byte) string {
	if len(ip) != 16 {
		return ""
	}
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 0, 39)
	for i := 0; i < 16; i += 2 {
		if i > 0 {
			out = append(out, ':')
		}
		v := uint16(ip[i])<<8 | uint16(ip[i+1])
		out = append(out,
			hexDigits[(v>>12)&0xF], hexDigits[(v>>8)&0xF],
			hexDigits[(v>>4)&0xF], hexDigits[v&0xF])
	}
	return string(out)
}
