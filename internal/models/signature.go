/**
 * Signature Model.
 *
 * Defines a loaded fingerprint definition: AND-combined filters over frame
 * fields plus optional payload extractors, used by the signature engine to
 * rank device matches. Compiled filters are a small discriminated union
 * (§9 "signature compilation") so the per-packet match loop never compares
 * field-name strings.
 */

package models

// FilterField enumerates the fields a Filter can test.
type FilterField string

const (
	FieldTCPDstPort FilterField = "tcp.dst_port"
	FieldTCPSrcPort FilterField = "tcp.src_port"
	FieldUDPDstPort FilterField = "udp.dst_port"
	FieldUDPSrcPort FilterField = "udp.src_port"
	FieldProtocol   FilterField = "protocol"
	FieldPayload    FilterField = "payload"
	FieldMacSrcOUI  FilterField = "mac.src_oui"
	FieldMacDstOUI  FilterField = "mac.dst_oui"
)

// Filter is one raw (pre-compile) condition from a fingerprint definition.
type Filter struct {
	Field FilterField

	// Exactly one of the following is set, depending on Field.
	Value       string // literal value: port number as string, protocol tag, OUI prefix
	Pattern     string // byte pattern: "\xNN\xNN" escape form or plain hex
	Offset      int    // pattern offset; -1 means "anywhere in payload"
	HasOffset   bool
	MinLength   int
	HasMinLength bool
}

// Extractor describes one payload-extraction rule attached to a signature.
type Extractor struct {
	Offset int
	Length int
	Format ExtractorFormat
	Label  string
}

// ExtractorFormat is the display format for an extracted payload slice.
type ExtractorFormat string

const (
	FormatASCII      ExtractorFormat = "ascii"
	FormatHex        ExtractorFormat = "hex"
	FormatUint16BE   ExtractorFormat = "uint16_be"
	FormatUint16LE   ExtractorFormat = "uint16_le"
)

// Signature is one loaded fingerprint definition.
type Signature struct {
	Name          string
	Description   string
	Vendor        string
	ProductFamily string
	Protocol      string
	Confidence    int // 1-5
	Filters       []Filter
	Extractors    []Extractor
	Role          string
	DeviceType    string
}

// Match is one signature-engine result.
type Match struct {
	SignatureName string
	Confidence    int
	Vendor        string
	ProductFamily string
	Role          string
	DeviceType    string
	Extracted     map[string]string
}
