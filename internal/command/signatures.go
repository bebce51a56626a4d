/**
 * Signature Operations.
 *
 * get_signatures, reload_signatures, test_signature(yaml) — the fingerprint
 * engine's slice of the command surface.
 */

package command

import (
	"github.com/kusanaginokajiki/gridmonitor/internal/models"
	"github.com/kusanaginokajiki/gridmonitor/internal/signature"
)

// GetSignatures answers get_signatures.
func (s *Surface) GetSignatures() ([]signature.CompiledSignature, error) {
	return s.engine.Signatures(), nil
}

// ReloadSignatures answers reload_signatures: re-walks the signatures
// directory and hot-swaps the engine's compiled set, returning any
// per-file load errors without aborting the ones that parsed fine.
func (s *Surface) ReloadSignatures() []error {
	return signature.ReloadSignatures(s.paths.SignaturesDir, s.engine)
}

// TestSignature answers test_signature(yaml): compiles yamlText in
// isolation and matches it against frame, without touching the live engine.
func (s *Surface) TestSignature(yamlText string, frame *models.Frame) (*models.Match, error) {
	return signature.TestSignature(yamlText, frame)
}
