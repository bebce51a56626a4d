/**
 * Modbus/TCP Deep Parser.
 *
 * Extracts MBAP header fields, function code, role, register ranges, and
 * FC43 device identification from a Modbus/TCP application payload. Never
 * rejects on CRC or framing oddities beyond the documented length checks;
 * unparseable payloads simply yield a zero-value result with Recognized
 * false.
 */

package deepparse

import (
	"encoding/binary"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

// ModbusResult is the per-frame decode, folded by the aggregator into its
// per-IP models.ModbusInfo accumulator.
type ModbusResult struct {
	Recognized      bool
	TransactionID   uint16
	UnitID          int
	FunctionCode    int
	IsException     bool
	ExceptionCode   int
	Role            models.ModbusRole
	RangeStart      int
	RangeCount      int
	RangeType       models.RegisterType
	HasRange        bool
	DeviceID        *models.ModbusDeviceID
	DiagSubfunction int
	HasDiagSub      bool
}

// ParseModbus decodes a Modbus/TCP application payload. Requires at least
// 8 bytes (MBAP + function code); payloads of exactly 8 bytes yield only
// the function code with no PDU-derived fields, per §8 boundary behavior.
func ParseModbus(payload []byte, srcPort, dstPort uint16) ModbusResult {
	var r ModbusResult
	if len(payload) < 8 {
		return r
	}

	protocolID := binary.BigEndian.Uint16(payload[2:4])
	if protocolID != 0x0000 {
		return r
	}

	r.Recognized = true
	r.TransactionID = binary.BigEndian.Uint16(payload[0:2])
	r.UnitID = int(payload[6])
	fc := payload[7]

	if fc&0x80 != 0 {
		r.IsException = true
		r.FunctionCode = int(fc &^ 0x80)
		if len(payload) >= 9 {
			r.ExceptionCode = int(payload[8])
		}
	} else {
		r.FunctionCode = int(fc)
	}

	switch {
	case dstPort == 502:
		r.Role = models.ModbusMaster
	case srcPort == 502:
		r.Role = models.ModbusSlave
	default:
		r.Role = models.ModbusUnknown
	}

	pdu := payload[8:]

	if !r.IsException {
		parseRegisterRange(&r, fc, pdu)

		if fc == 8 && len(pdu) >= 2 {
			r.HasDiagSub = true
			r.DiagSubfunction = int(binary.BigEndian.Uint16(pdu[0:2]))
		}

		if fc == 43 && len(pdu) >= 2 && pdu[0] == 0x0E {
			r.DeviceID = parseDeviceID(pdu)
		}
	}

	return r
}

func parseRegisterRange(r *ModbusResult, fc uint8, pdu []byte) {
	var regType models.RegisterType
	switch fc {
	case 1, 5, 15:
		regType = models.RegisterCoil
	case 2:
		regType = models.RegisterDiscreteInput
	case 3, 6, 16, 23:
		regType = models.RegisterHolding
	case 4:
		regType = models.RegisterInput
	default:
		return
	}

	// Requests (master) carry (start, count) in the first 4 PDU bytes.
	if r.Role == models.ModbusMaster && len(pdu) >= 4 {
		start := int(binary.BigEndian.Uint16(pdu[0:2]))
		count := int(binary.BigEndian.Uint16(pdu[2:4]))
		if fc == 5 || fc == 6 {
			count = 1
		}
		r.RangeStart = start
		r.RangeCount = count
		r.RangeType = regType
		r.HasRange = true
		return
	}

	// FC 15/16 responses (slave) echo the written range.
	if r.Role == models.ModbusSlave && (fc == 15 || fc == 16) && len(pdu) >= 4 {
		r.RangeStart = int(binary.BigEndian.Uint16(pdu[0:2]))
		r.RangeCount = int(binary.BigEndian.Uint16(pdu[2:4]))
		r.RangeType = regType
		r.HasRange = true
	}
}

// deviceIDObjectNames maps FC43/MEI 0x0E object ids to ModbusDeviceID fields.
var deviceIDObjectNames = []string{
	"vendor_name", "product_code", "revision", "vendor_url", "product_name", "model_name", "user_app_name",
}

func parseDeviceID(pdu []byte) *models.ModbusDeviceID {
	// pdu[0]=MEI type(0x0E), pdu[1]=read device id code, pdu[2]=conformity,
	// pdu[3]=more follows, pdu[4]=next object id, pdu[5]=num objects, then
	// repeated (id, length, value) triples.
	if len(pdu) < 6 {
		return nil
	}
	numObjects := int(pdu[5])
	offset := 6

	id := &models.ModbusDeviceID{}
	for i := 0; i < numObjects && offset+1 < len(pdu); i++ {
		objID := int(pdu[offset])
		objLen := int(pdu[offset+1])
		offset += 2
		if offset+objLen > len(pdu) {
			break
		}
		raw := pdu[offset : offset+objLen]
		offset += objLen

		value := printableASCII(raw)
		if value == "" {
			continue
		}
		if objID >= 0 && objID < len(deviceIDObjectNames) {
			switch deviceIDObjectNames[objID] {
			case "vendor_name":
				id.VendorName = value
			case "product_code":
				id.ProductCode = value
			case "revision":
				id.Revision = value
			case "vendor_url":
				id.VendorURL = value
			case "product_name":
				id.ProductName = value
			case "model_name":
				id.ModelName = value
			case "user_app_name":
				id.UserAppName = value
			}
		}
	}

	if !id.NonEmpty() {
		return nil
	}
	return id
}

// printableASCII reduces raw bytes to their printable-ASCII subset (0x20-0x7e),
// stopping at the first null terminator.
func printableASCII(raw []byte) string {
	out := make([]byte, 0, len(raw))
	for _, b := range raw {
		if b == 0x00 {
			break
		}
		if b >= 0x20 && b <= 0x7e {
			out = append(out, b)
		}
	}
	return string(out)
}
