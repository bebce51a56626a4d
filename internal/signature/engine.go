/**
 * Signature Match Engine.
 *
 * The operations a GUI or test harness drives: match one frame against the
 * loaded set, match an accumulated device's frames, and try an ad-hoc
 * definition without persisting it.
 */

package signature

import (
	"encoding/binary"
	"encoding/hex"
	"sort"
	"strconv"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

// Engine holds the currently loaded, compiled signature set.
type Engine struct {
	sigs []CompiledSignature
}

// NewEngine wraps an already-compiled signature set.
func NewEngine(sigs []CompiledSignature) *Engine {
	return &Engine{sigs: sigs}
}

// Signatures returns the loaded set, in load order.
func (e *Engine) Signatures() []CompiledSignature {
	return e.sigs
}

// Replace swaps in a newly loaded set, used by the reload watcher.
func (e *Engine) Replace(sigs []CompiledSignature) {
	e.sigs = sigs
}

// MatchPacket evaluates every loaded signature against one frame, returning
// matches ordered highest-confidence first, ties broken by load order.
func (e *Engine) MatchPacket(frame *models.Frame) []models.Match {
	var out []models.Match
	for i := range e.sigs {
		sig := &e.sigs[i]
		if !sig.Matches(frame) {
			continue
		}
		out = append(out, models.Match{
			SignatureName: sig.Name,
			Confidence:    sig.Confidence,
			Vendor:        sig.Vendor,
			ProductFamily: sig.ProductFamily,
			Role:          sig.Role,
			DeviceType:    sig.DeviceType,
			Extracted:     extractAll(sig.Extractors, frame.Payload),
		})
	}
	sortMatches(out)
	return out
}

// MatchDevicePackets matches a device's recently observed frames against
// the loaded set, deduplicating by signature name and keeping the
// highest-confidence match per signature.
func (e *Engine) MatchDevicePackets(frames []*models.Frame) []models.Match {
	best := make(map[string]models.Match)
	for _, frame := range frames {
		for _, m := range e.MatchPacket(frame) {
			existing, ok := best[m.SignatureName]
			if !ok || m.Confidence > existing.Confidence {
				best[m.SignatureName] = m
			}
		}
	}
	out := make([]models.Match, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sortMatches(out)
	return out
}

func sortMatches(matches []models.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
}

// TestSignature compiles an ad-hoc YAML definition and reports whether the
// given frame matches it, for the signature editor's "try it" button.
func TestSignature(yamlText string, frame *models.Frame) (*models.Match, error) {
	sig, err := CompileYAML([]byte(yamlText))
	if err != nil {
		return nil, err
	}
	if !sig.Matches(frame) {
		return nil, nil
	}
	return &models.Match{
		SignatureName: sig.Name,
		Confidence:    sig.Confidence,
		Vendor:        sig.Vendor,
		ProductFamily: sig.ProductFamily,
		Role:          sig.Role,
		DeviceType:    sig.DeviceType,
		Extracted:     extractAll(sig.Extractors, frame.Payload),
	}, nil
}

// extractAll applies every extractor to payload, clipping to payload bounds
// and silently skipping an extractor whose range falls outside it.
func extractAll(extractors []models.Extractor, payload []byte) map[string]string {
	if len(extractors) == 0 {
		return nil
	}
	out := make(map[string]string, len(extractors))
	for _, ex := range extractors {
		v, ok := extractOne(ex, payload)
		if ok {
			out[ex.Label] = v
		}
	}
	return out
}

func extractOne(ex models.Extractor, payload []byte) (string, bool) {
	if ex.Offset < 0 || ex.Offset+ex.Length > len(payload) || ex.Length <= 0 {
		return "", false
	}
	slice := payload[ex.Offset : ex.Offset+ex.Length]

	switch ex.Format {
	case models.FormatASCII:
		return printableASCII(slice), true
	case models.FormatHex:
		return hex.EncodeToString(slice), true
	case models.FormatUint16BE:
		if len(slice) < 2 {
			return "", false
		}
		return strconv.Itoa(int(binary.BigEndian.Uint16(slice))), true
	case models.FormatUint16LE:
		if len(slice) < 2 {
			return "", false
		}
		return strconv.Itoa(int(binary.LittleEndian.Uint16(slice))), true
	default:
		return "", false
	}
}

func printableASCII(raw []byte) string {
	out := make([]byte, 0, len(raw))
	for _, b := range raw {
		if b >= 0x20 && b <= 0x7e {
			out = append(out, b)
		}
	}
	return string(out)
}
