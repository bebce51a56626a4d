/**
 * DNP3 Deep Parser.
 *
 * Extracts the link-layer header, role, transport/application-layer
 * sequence fields, and unsolicited-response flag from a DNP3 application
 * payload. Tolerates presence or absence of per-block CRC bytes; never
 * rejects a frame for a CRC mismatch.
 */

package deepparse

import (
	"encoding/binary"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

// DNP3Result is the per-frame decode, folded by the aggregator into its
// per-IP models.DNP3Info accumulator.
type DNP3Result struct {
	Recognized    bool
	Length        int
	Destination   int
	Source        int
	Role          models.DNP3Role
	HasTransport  bool
	FIN           bool
	FIR           bool
	Sequence      int
	HasApplication bool
	CON           bool
	UNS           bool
	AppSequence   int
	HasFunction   bool
	FunctionCode  int
	Unsolicited   bool
}

// unsolicitedResponseFC is the DNP3 application function code identifying an
// unsolicited response.
const unsolicitedResponseFC = 130

// ParseDNP3 decodes a DNP3 application payload. Requires at least 10 bytes
// and the 0x05 0x64 start bytes. A payload of exactly 10 bytes yields role
// and addresses with no transport/application fields, per §8 boundary
// behavior.
func ParseDNP3(payload []byte, srcPort, dstPort uint16) DNP3Result {
	var r DNP3Result
	if len(payload) < 10 {
		return r
	}
	if payload[0] != 0x05 || payload[1] != 0x64 {
		return r
	}

	r.Recognized = true
	r.Length = int(payload[2])
	control := payload[3]
	r.Destination = int(binary.LittleEndian.Uint16(payload[4:6]))
	r.Source = int(binary.LittleEndian.Uint16(payload[6:8]))

	dir := control&0x80 != 0

	// Resolution of the open question in §9: DIR=1 is unambiguously master.
	// DIR=0 ties-break on ports, matching the original implementation:
	// outstation if src_port=20000 or dst_port!=20000, else unknown.
	if dir {
		r.Role = models.DNP3Master
	} else if srcPort == 20000 || dstPort != 20000 {
		r.Role = models.DNP3Outstation
	} else {
		r.Role = models.DNP3UnknownRole
	}

	if len(payload) > 10 {
		transport := payload[10]
		r.HasTransport = true
		r.FIN = transport&0x80 != 0
		r.FIR = transport&0x40 != 0
		r.Sequence = int(transport & 0x3F)
	}

	if len(payload) > 11 {
		appControl := payload[11]
		r.HasApplication = true
		r.CON = appControl&0x20 != 0
		r.UNS = appControl&0x10 != 0
		r.AppSequence = int(appControl & 0x0F)
	}

	if len(payload) > 12 {
		r.HasFunction = true
		r.FunctionCode = int(payload[12])
		r.Unsolicited = r.FunctionCode == unsolicitedResponseFC
	}

	return r
}
