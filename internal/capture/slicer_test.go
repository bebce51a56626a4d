/**
 * Frame Slicer Tests.
 *
 * Verifies Ethernet/IPv4/IPv6/TCP/UDP slicing, the 14-byte MAC threshold,
 * and non-IP rejection.
 */

package capture

import (
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

func buildModbusRequest(t *testing.T) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version: 4, TTL: 64, Protocol: layers.IPProtocolTCP,
		SrcIP: net.IP{10, 0, 0, 5}, DstIP: net.IP{10, 0, 0, 10},
	}
	tcp := &layers.TCP{SrcPort: 49152, DstPort: 502}
	tcp.SetNetworkLayerForChecksum(ip)
	payload := gopacket.Payload([]byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01, 0x03, 0x00, 0x00, 0x00, 0x0A})

	if err := gopacket.SerializeLayers(buf, opts, eth, ip, tcp, payload); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSlice_ModbusFrame(t *testing.T) {
	raw := RawPacket{Data: buildModbusRequest(t), Timestamp: time.Now(), Origin: "test.pcap"}
	f := Slice(raw)
	if f == nil {
		t.Fatal("expected a Frame, got nil")
	}
	if f.SrcIP != "10.0.0.5" || f.DstIP != "10.0.0.10" {
		t.Errorf("unexpected IPs: %s -> %s", f.SrcIP, f.DstIP)
	}
	if f.Transport != models.TransportTCP {
		t.Errorf("expected tcp transport, got %s", f.Transport)
	}
	if f.DstPort != 502 {
		t.Errorf("expected dst port 502, got %d", f.DstPort)
	}
	if len(f.Payload) != 12 {
		t.Errorf("expected 12-byte payload, got %d", len(f.Payload))
	}
	if !f.HasL2() {
		t.Error("expected L2 addresses to be present")
	}
}

func TestSlice_NonIPRejected(t *testing.T) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF},
		EthernetType: layers.EthernetTypeARP,
	}
	if err := gopacket.SerializeLayers(buf, opts, eth, gopacket.Payload([]byte{0, 0, 0, 0})); err != nil {
		t.Fatal(err)
	}
	raw := RawPacket{Data: buf.Bytes(), Timestamp: time.Now(), Origin: "test.pcap"}
	if f := Slice(raw); f != nil {
		t.Errorf("expected nil for non-IP frame, got %+v", f)
	}
}

func TestSlice_ShortFrameNoMAC(t *testing.T) {
	raw := RawPacket{Data: []byte{0x01, 0x02, 0x03}, Timestamp: time.Now(), Origin: "test.pcap"}
	if f := Slice(raw); f != nil {
		t.Errorf("expected nil for undersized frame, got %+v", f)
	}
}
