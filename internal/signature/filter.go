/**
 * Filter Evaluation.
 *
 * Evaluates a compiled filter against one sliced frame. Payload byte
 * matching is a plain sliding-window search, not a general regex engine
 * (§9): fingerprint patterns are short and few, so naive search is both
 * simpler and fast enough.
 */

package signature

import (
	"strings"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
	"github.com/kusanaginokajiki/gridmonitor/internal/protocol"
)

// matchContext is the subset of a sliced frame a filter needs.
type matchContext struct {
	frame *models.Frame
}

func (cf compiledFilter) matches(ctx matchContext) bool {
	f := ctx.frame

	switch cf.kind {
	case kindTCPDstPort:
		return f.Transport == models.TransportTCP && f.DstPort == cf.portEquals
	case kindTCPSrcPort:
		return f.Transport == models.TransportTCP && f.SrcPort == cf.portEquals
	case kindUDPDstPort:
		return f.Transport == models.TransportUDP && f.DstPort == cf.portEquals
	case kindUDPSrcPort:
		return f.Transport == models.TransportUDP && f.SrcPort == cf.portEquals

	case kindProtocol:
		return strings.EqualFold(string(protocol.Identify(f.SrcPort, f.DstPort)), cf.protoValue)

	case kindPayloadBytes:
		if cf.hasOffset {
			return matchAt(f.Payload, cf.pattern, cf.offset)
		}
		return containsBytes(f.Payload, cf.pattern)

	case kindMinLength:
		return len(f.Payload) >= cf.minLength

	case kindMacOUI:
		mac := f.DstMAC
		if cf.isSrcOUI {
			mac = f.SrcMAC
		}
		return strings.HasPrefix(strings.ToLower(mac), cf.ouiPrefix)
	}

	return false
}

// matchAt reports whether pattern occurs at the exact offset in payload.
// A negative offset means "anywhere" and falls back to containsBytes.
func matchAt(payload, pattern []byte, offset int) bool {
	if offset < 0 {
		return containsBytes(payload, pattern)
	}
	if offset+len(pattern) > len(payload) {
		return false
	}
	for i, b := range pattern {
		if payload[offset+i] != b {
			return false
		}
	}
	return true
}

// containsBytes is a naive sliding-window search for pattern within payload.
func containsBytes(payload, pattern []byte) bool {
	if len(pattern) == 0 || len(pattern) > len(payload) {
		return false
	}
	for i := 0; i+len(pattern) <= len(payload); i++ {
		match := true
		for j, b := range pattern {
			if payload[i+j] != b {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// Matches reports whether every compiled filter of sig holds for frame
// (AND-combined, per §4.6 — a signature with zero filters never matches).
func (sig CompiledSignature) Matches(frame *models.Frame) bool {
	if len(sig.Compiled) == 0 {
		return false
	}
	ctx := matchContext{frame: frame}
	for _, cf := range sig.Compiled {
		if !cf.matches(ctx) {
			return false
		}
	}
	return true
}
