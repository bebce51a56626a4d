/**
 * DNP3 Deep Parser Tests.
 */

package deepparse

import (
	"testing"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

func TestParseDNP3_UnsolicitedResponse(t *testing.T) {
	payload := []byte{0x05, 0x64, 0x05, 0x00, 0x64, 0x00, 0x01, 0x00, 0x00, 0x00, 0xC0, 0xD0, 0x82}
	r := ParseDNP3(payload, 20000, 54321)

	if !r.Recognized {
		t.Fatal("expected recognized DNP3 frame")
	}
	if r.Role != models.DNP3Outstation {
		t.Errorf("expected outstation role, got %s", r.Role)
	}
	if !r.HasFunction || r.FunctionCode != 130 {
		t.Errorf("expected function code 130, got %d (has=%v)", r.FunctionCode, r.HasFunction)
	}
	if !r.Unsolicited {
		t.Error("expected unsolicited flag set")
	}
	if !r.HasApplication || !r.UNS {
		t.Errorf("expected application control UNS bit set: %+v", r)
	}
}

func TestParseDNP3_ExactlyTenBytes(t *testing.T) {
	payload := []byte{0x05, 0x64, 0x05, 0x80, 0x64, 0x00, 0x01, 0x00, 0x00, 0x00}
	r := ParseDNP3(payload, 20000, 54321)

	if !r.Recognized {
		t.Fatal("expected recognized frame")
	}
	if r.Role != models.DNP3Master {
		t.Errorf("expected master role (DIR set), got %s", r.Role)
	}
	if r.HasTransport || r.HasApplication || r.HasFunction {
		t.Errorf("expected no transport/application fields for a 10-byte payload: %+v", r)
	}
}

func TestParseDNP3_DIRZeroPortTieBreak(t *testing.T) {
	payload := []byte{0x05, 0x64, 0x05, 0x00, 0x64, 0x00, 0x01, 0x00, 0x00, 0x00}

	// dst_port != 20000, so the outstation branch fires even though
	// src_port isn't 20000 either.
	r := ParseDNP3(payload, 9999, 1234)
	if r.Role != models.DNP3Outstation {
		t.Errorf("expected outstation role (dst_port!=20000), got %s", r.Role)
	}

	// Neither tie-break condition holds: src_port isn't 20000 and
	// dst_port is 20000, so the role stays unknown rather than guessing.
	r = ParseDNP3(payload, 12345, 20000)
	if r.Role != models.DNP3UnknownRole {
		t.Errorf("expected unknown role when neither tie-break condition holds, got %s", r.Role)
	}
}

func TestParseDNP3_BadStartBytesRejected(t *testing.T) {
	payload := []byte{0x00, 0x00, 0x05, 0x00, 0x64, 0x00, 0x01, 0x00, 0x00, 0x00}
	r := ParseDNP3(payload, 20000, 54321)
	if r.Recognized {
		t.Error("expected rejection for missing 05 64 start bytes")
	}
}
