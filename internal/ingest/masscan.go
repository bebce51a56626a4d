/**
 * Masscan Result-List Cleanup.
 *
 * Masscan's JSON output is a top-level array that Masscan itself never
 * closes cleanly on an interrupted scan: a trailing comma followed by a
 * literal {"finished":1} sentinel object, with no closing "]" written.
 * Resolves the open question in §9/§6 by requiring the sentinel to
 * directly follow a comma; anything else is reported as InvalidFormat
 * rather than guessed at.
 */

package ingest

import (
	"bytes"
	"encoding/json"

	"github.com/kusanaginokajiki/gridmonitor/internal/apperr"
	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

const masscanSentinel = `,{"finished"`

// CleanMasscanJSON truncates a raw Masscan JSON document at the
// comma-prefixed {"finished":...} sentinel (if present) and closes the
// array, producing a document encoding/json can parse as []rawMasscanEntry.
// Input with the sentinel text appearing anywhere other than immediately
// after a comma is rejected as InvalidFormat.
func CleanMasscanJSON(raw []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, apperr.New(apperr.InvalidFormat, "empty masscan output")
	}

	if bytes.Contains(trimmed, []byte(`"finished"`)) {
		sentinelStart := bytes.Index(trimmed, []byte(masscanSentinel))
		if sentinelStart < 0 {
			// "finished" appears, but not as the comma-prefixed sentinel form.
			return nil, apperr.New(apperr.InvalidFormat, "masscan sentinel not in expected position")
		}
		cleaned := make([]byte, 0, sentinelStart+1)
		cleaned = append(cleaned, trimmed[:sentinelStart]...)
		cleaned = append(cleaned, ']')
		return cleaned, nil
	}

	if trimmed[0] == '[' && trimmed[len(trimmed)-1] == ']' {
		return trimmed, nil
	}
	return nil, apperr.New(apperr.InvalidFormat, "masscan output is not a JSON array")
}

// rawMasscanEntry is one Masscan result list entry in its native shape:
// {"ip":"...", "ports":[{"port":502,"proto":"tcp", ...}]}.
type rawMasscanEntry struct {
	IP    string `json:"ip"`
	Ports []struct {
		Port  int    `json:"port"`
		Proto string `json:"proto"`
	} `json:"ports"`
}

// ParseMasscanJSON cleans and decodes a raw Masscan JSON document into the
// flat merge-contract shape MergeMasscan consumes.
func ParseMasscanJSON(raw []byte) ([]models.MasscanResult, error) {
	cleaned, err := CleanMasscanJSON(raw)
	if err != nil {
		return nil, err
	}

	var entries []rawMasscanEntry
	if err := json.Unmarshal(cleaned, &entries); err != nil {
		return nil, apperr.Wrap(apperr.InvalidFormat, "failed to decode masscan JSON", err)
	}

	var out []models.MasscanResult
	for _, e := range entries {
		for _, p := range e.Ports {
			out = append(out, models.MasscanResult{IPAddress: e.IP, Port: p.Port, Proto: p.Proto})
		}
	}
	return out, nil
}
