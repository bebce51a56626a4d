/**
 * Signature Engine Tests.
 */

package signature

import (
	"testing"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

const modbusSig = `
name: generic-modbus-slave
description: any Modbus/TCP slave on 502
vendor: unknown
product_family: unknown
protocol: modbus
confidence: 2
role: slave
device_type: plc
filters:
  - field: tcp.src_port
    value: "502"
`

const schneiderSig = `
name: schneider-m340
vendor: Schneider Electric
product_family: Modbicon M340
protocol: modbus
confidence: 5
role: slave
device_type: plc
filters:
  - field: mac.src_oui
    value: "00:80:f4"
  - field: payload
    pattern: "2b0e"
    offset: 7
`

func frame(srcPort, dstPort uint16, srcMAC string, payload []byte) *models.Frame {
	return &models.Frame{
		Transport: models.TransportTCP,
		SrcPort:   srcPort,
		DstPort:   dstPort,
		SrcMAC:    srcMAC,
		DstMAC:    "aa:bb:cc:dd:ee:ff",
		Payload:   payload,
	}
}

func TestCompileYAML_PortFilter(t *testing.T) {
	sig, err := CompileYAML([]byte(modbusSig))
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if len(sig.Compiled) != 1 {
		t.Fatalf("expected one compiled filter, got %d", len(sig.Compiled))
	}

	f := frame(502, 49152, "00:11:22:33:44:55", []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x02, 0x01, 0x03})
	if !sig.Matches(f) {
		t.Error("expected match on src port 502")
	}

	notMatching := frame(503, 49152, "00:11:22:33:44:55", []byte{0x00})
	if sig.Matches(notMatching) {
		t.Error("expected no match on src port 503")
	}
}

func TestCompileYAML_OUIAndPayloadOffset(t *testing.T) {
	sig, err := CompileYAML([]byte(schneiderSig))
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	payload := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01, 0x2b, 0x0e, 0x01}
	f := frame(502, 49152, "00:80:f4:11:22:33", payload)
	if !sig.Matches(f) {
		t.Error("expected OUI+payload-offset match")
	}

	wrongOUI := frame(502, 49152, "aa:bb:cc:11:22:33", payload)
	if sig.Matches(wrongOUI) {
		t.Error("expected no match for non-matching OUI")
	}
}

func TestCompileYAML_ConfidenceOutOfRangeRejected(t *testing.T) {
	bad := `
name: bad-confidence
protocol: modbus
confidence: 9
filters:
  - field: tcp.dst_port
    value: "502"
`
	if _, err := CompileYAML([]byte(bad)); err == nil {
		t.Error("expected rejection for confidence out of 1..5 range")
	}
}

func TestDecodePattern(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
		wantErr bool
		want    []byte
	}{
		{"escape form", `\x2b\x0e`, false, []byte{0x2b, 0x0e}},
		{"plain hex", "2b0e", false, []byte{0x2b, 0x0e}},
		{"odd length hex rejected", "2b0", true, nil},
		{"empty rejected", "", true, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodePattern(tc.pattern)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("length mismatch: got %v want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("byte mismatch at %d: got %x want %x", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestEngine_MatchPacket_OrdersByConfidence(t *testing.T) {
	low, err := CompileYAML([]byte(modbusSig))
	if err != nil {
		t.Fatal(err)
	}
	high, err := CompileYAML([]byte(schneiderSig))
	if err != nil {
		t.Fatal(err)
	}
	engine := NewEngine([]CompiledSignature{*low, *high})

	payload := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01, 0x2b, 0x0e, 0x01}
	f := frame(502, 49152, "00:80:f4:11:22:33", payload)

	matches := engine.MatchPacket(f)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].SignatureName != "schneider-m340" {
		t.Errorf("expected highest-confidence match first, got %s", matches[0].SignatureName)
	}
}

func TestTestSignature_NoMatchReturnsNilNoError(t *testing.T) {
	f := frame(9999, 9999, "00:00:00:00:00:00", []byte{0x00})
	match, err := TestSignature(modbusSig, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match != nil {
		t.Error("expected nil match for non-matching frame")
	}
}
