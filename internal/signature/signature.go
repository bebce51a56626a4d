/**
 * Signature Loading & Compilation.
 *
 * Loads a directory of YAML fingerprint definitions, validates each
 * (confidence in 1..=5, well-formed byte patterns), and compiles its
 * filters into the small discriminated union the per-packet match loop
 * consumes, so that loop never compares field-name strings (§9).
 */

package signature

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kusanaginokajiki/gridmonitor/internal/apperr"
	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

// definitionYAML is the on-disk shape of one fingerprint file.
type definitionYAML struct {
	Name          string            `yaml:"name"`
	Description   string            `yaml:"description"`
	Vendor        string            `yaml:"vendor"`
	ProductFamily string            `yaml:"product_family"`
	Protocol      string            `yaml:"protocol"`
	Confidence    int               `yaml:"confidence"`
	Role          string            `yaml:"role"`
	DeviceType    string            `yaml:"device_type"`
	Filters       []filterYAML      `yaml:"filters"`
	Extractors    []extractorYAML   `yaml:"extractors"`
}

type filterYAML struct {
	Field     string `yaml:"field"`
	Value     string `yaml:"value"`
	Pattern   string `yaml:"pattern"`
	Offset    *int   `yaml:"offset"`
	MinLength *int   `yaml:"min_length"`
}

type extractorYAML struct {
	Offset int    `yaml:"offset"`
	Length int    `yaml:"length"`
	Format string `yaml:"format"`
	Label  string `yaml:"label"`
}

// compiledFilter is the discriminated-union form of a Filter, resolved once
// at load time.
type compiledFilter struct {
	kind        filterKind
	portEquals  uint16
	isTCP       bool
	protoValue  string
	pattern     []byte
	hasOffset   bool
	offset      int
	minLength   int
	ouiPrefix   string
	isSrcOUI    bool
}

type filterKind int

const (
	kindTCPDstPort filterKind = iota
	kindTCPSrcPort
	kindUDPDstPort
	kindUDPSrcPort
	kindProtocol
	kindPayloadBytes
	kindMinLength
	kindMacOUI
)

// CompiledSignature is a Signature with every filter pre-resolved.
type CompiledSignature struct {
	models.Signature
	Compiled []compiledFilter
}

// LoadDirectory scans dir for *.yaml/*.yml fingerprint files, compiling and
// validating each. A malformed signature is reported but does not prevent
// the rest of the directory from loading.
func LoadDirectory(dir string) ([]CompiledSignature, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{apperr.Wrap(apperr.ParseError, "cannot read signature directory "+dir, err)}
	}

	var sigs []CompiledSignature
	var errs []error

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, apperr.Wrap(apperr.ParseError, "cannot read "+path, err))
			continue
		}

		sig, err := CompileYAML(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		sigs = append(sigs, *sig)
	}

	return sigs, errs
}

// CompileYAML compiles one fingerprint definition from YAML text, for both
// directory loading and the editor "try-it" ad-hoc path.
func CompileYAML(data []byte) (*CompiledSignature, error) {
	var def definitionYAML
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, apperr.Wrap(apperr.ParseError, "malformed fingerprint definition", err)
	}

	if def.Confidence < 1 || def.Confidence > 5 {
		return nil, apperr.New(apperr.ParseError, fmt.Sprintf("signature %q: confidence %d out of range 1..5", def.Name, def.Confidence))
	}

	sig := &CompiledSignature{
		Signature: models.Signature{
			Name:          def.Name,
			Description:   def.Description,
			Vendor:        def.Vendor,
			ProductFamily: def.ProductFamily,
			Protocol:      def.Protocol,
			Confidence:    def.Confidence,
			Role:          def.Role,
			DeviceType:    def.DeviceType,
		},
	}

	for _, f := range def.Filters {
		cf, filter, err := compileFilter(f)
		if err != nil {
			return nil, fmt.Errorf("signature %q: %w", def.Name, err)
		}
		sig.Compiled = append(sig.Compiled, cf)
		sig.Filters = append(sig.Filters, filter)
	}

	for _, e := range def.Extractors {
		sig.Extractors = append(sig.Extractors, models.Extractor{
			Offset: e.Offset,
			Length: e.Length,
			Format: models.ExtractorFormat(e.Format),
			Label:  e.Label,
		})
	}

	return sig, nil
}

func compileFilter(f filterYAML) (compiledFilter, models.Filter, error) {
	raw := models.Filter{Field: models.FilterField(f.Field), Value: f.Value, Pattern: f.Pattern}

	switch models.FilterField(f.Field) {
	case models.FieldTCPDstPort, models.FieldTCPSrcPort, models.FieldUDPDstPort, models.FieldUDPSrcPort:
		port, err := strconv.Atoi(f.Value)
		if err != nil {
			return compiledFilter{}, raw, apperr.New(apperr.ParseError, "invalid port value: "+f.Value)
		}
		var kind filterKind
		switch models.FilterField(f.Field) {
		case models.FieldTCPDstPort:
			kind = kindTCPDstPort
		case models.FieldTCPSrcPort:
			kind = kindTCPSrcPort
		case models.FieldUDPDstPort:
			kind = kindUDPDstPort
		case models.FieldUDPSrcPort:
			kind = kindUDPSrcPort
		}
		return compiledFilter{kind: kind, portEquals: uint16(port)}, raw, nil

	case models.FieldProtocol:
		return compiledFilter{kind: kindProtocol, protoValue: f.Value}, raw, nil

	case models.FieldPayload:
		if f.Pattern != "" {
			pattern, err := decodePattern(f.Pattern)
			if err != nil {
				return compiledFilter{}, raw, err
			}
			cf := compiledFilter{kind: kindPayloadBytes, pattern: pattern}
			if f.Offset != nil {
				cf.hasOffset = true
				cf.offset = *f.Offset
				raw.HasOffset = true
				raw.Offset = *f.Offset
			}
			return cf, raw, nil
		}
		if f.MinLength != nil {
			raw.HasMinLength = true
			raw.MinLength = *f.MinLength
			return compiledFilter{kind: kindMinLength, minLength: *f.MinLength}, raw, nil
		}
		return compiledFilter{}, raw, apperr.New(apperr.ParseError, "payload filter needs pattern or min_length")

	case models.FieldMacSrcOUI, models.FieldMacDstOUI:
		oui := normalizeOUI(f.Value)
		return compiledFilter{kind: kindMacOUI, ouiPrefix: oui, isSrcOUI: models.FilterField(f.Field) == models.FieldMacSrcOUI}, raw, nil

	default:
		return compiledFilter{}, raw, apperr.New(apperr.ParseError, "unknown filter field: "+f.Field)
	}
}

// decodePattern accepts either the "\xNN\xNN..." escape form or a plain hex
// string, rejecting odd-length plain hex and empty patterns.
func decodePattern(pattern string) ([]byte, error) {
	if pattern == "" {
		return nil, apperr.New(apperr.ParseError, "empty byte pattern")
	}

	if strings.Contains(pattern, `\x`) {
		var out []byte
		s := pattern
		for len(s) > 0 {
			if !strings.HasPrefix(s, `\x`) || len(s) < 4 {
				return nil, apperr.New(apperr.ParseError, "malformed \\xNN escape pattern")
			}
			b, err := strconv.ParseUint(s[2:4], 16, 8)
			if err != nil {
				return nil, apperr.New(apperr.ParseError, "malformed \\xNN escape pattern")
			}
			out = append(out, byte(b))
			s = s[4:]
		}
		if len(out) == 0 {
			return nil, apperr.New(apperr.ParseError, "empty byte pattern")
		}
		return out, nil
	}

	if len(pattern)%2 != 0 {
		return nil, apperr.New(apperr.ParseError, "odd-length hex pattern")
	}
	out := make([]byte, len(pattern)/2)
	for i := 0; i < len(out); i++ {
		b, err := strconv.ParseUint(pattern[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, apperr.New(apperr.ParseError, "invalid hex pattern")
		}
		out[i] = byte(b)
	}
	if len(out) == 0 {
		return nil, apperr.New(apperr.ParseError, "empty byte pattern")
	}
	return out, nil
}

// normalizeOUI returns the first 8 characters (3 octets) of a MAC address,
// lowercase with colons, per §4.6.
func normalizeOUI(mac string) string {
	m := strings.ToLower(mac)
	if len(m) >= 8 {
		return m[:8]
	}
	return m
}
