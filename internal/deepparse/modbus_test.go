/**
 * Modbus Deep Parser Tests.
 */

package deepparse

import (
	"testing"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

func TestParseModbus_ReadHoldingRegistersRequest(t *testing.T) {
	payload := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}
	r := ParseModbus(payload, 49152, 502)

	if !r.Recognized {
		t.Fatal("expected a recognized Modbus frame")
	}
	if r.Role != models.ModbusMaster {
		t.Errorf("expected master role, got %s", r.Role)
	}
	if r.UnitID != 1 {
		t.Errorf("expected unit id 1, got %d", r.UnitID)
	}
	if r.FunctionCode != 3 {
		t.Errorf("expected FC 3, got %d", r.FunctionCode)
	}
	if !r.HasRange || r.RangeStart != 0 || r.RangeCount != 10 || r.RangeType != models.RegisterHolding {
		t.Errorf("unexpected range: %+v", r)
	}
}

func TestParseModbus_ExactlyEightBytes(t *testing.T) {
	payload := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x02, 0x01, 0x03}
	r := ParseModbus(payload, 49152, 502)

	if !r.Recognized {
		t.Fatal("expected recognized frame")
	}
	if r.FunctionCode != 3 {
		t.Errorf("expected FC 3, got %d", r.FunctionCode)
	}
	if r.HasRange {
		t.Error("expected no PDU-derived range for an 8-byte payload")
	}
}

func TestParseModbus_WrongProtocolIDRejected(t *testing.T) {
	payload := []byte{0x00, 0x01, 0x00, 0x01, 0x00, 0x06, 0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}
	r := ParseModbus(payload, 49152, 502)
	if r.Recognized {
		t.Error("expected rejection for non-zero protocol id")
	}
}

func TestParseModbus_SingleWriteForcesCountOne(t *testing.T) {
	payload := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01, 0x06, 0x00, 0x05, 0x00, 0x0A}
	r := ParseModbus(payload, 49152, 502)
	if r.RangeCount != 1 {
		t.Errorf("expected forced count=1 for FC6, got %d", r.RangeCount)
	}
}

func TestParseModbus_DeviceIdentification(t *testing.T) {
	// MEI=0x0E, read-device-id code, conformity, more-follows=0, next-id=0,
	// 2 objects: vendor_name="Acme", product_code="P100"
	pdu := []byte{
		0x0E, 0x01, 0x01, 0x00, 0x00, 0x02,
		0x00, 0x04, 'A', 'c', 'm', 'e',
		0x01, 0x04, 'P', '1', '0', '0',
	}
	payload := append([]byte{0x00, 0x01, 0x00, 0x00, 0x00, byte(len(pdu) + 2), 0x01, 43}, pdu...)
	r := ParseModbus(payload, 502, 49152)

	if r.DeviceID == nil {
		t.Fatal("expected a device identification record")
	}
	if r.DeviceID.VendorName != "Acme" || r.DeviceID.ProductCode != "P100" {
		t.Errorf("unexpected device id: %+v", r.DeviceID)
	}
}

func TestParseModbus_ExceptionResponse(t *testing.T) {
	payload := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x03, 0x01, 0x83, 0x02}
	r := ParseModbus(payload, 502, 49152)
	if !r.IsException || r.ExceptionCode != 2 || r.FunctionCode != 3 {
		t.Errorf("unexpected exception decode: %+v", r)
	}
}
