package report

import (
	"bytes"
	"os"
	"testing"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

func TestWritePDFProducesValidHeaderAndTrailer(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/report.pdf"

	snapshot := models.Snapshot{Assets: []models.Asset{{IPAddress: "10.0.0.1", DeviceType: models.DeviceTypePLC}}}
	findings := []models.Finding{{Type: models.FindingPurdueViolation, Severity: models.SeverityMedium, Title: "test finding", Description: "desc"}}

	if err := WritePDF(path, Config{Title: "Test Report", IncludeAssets: true, IncludeFindings: true}, snapshot, findings); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-1.4")) {
		t.Fatal("expected PDF header")
	}
	if !bytes.Contains(data, []byte("%%EOF")) {
		t.Fatal("expected PDF trailer")
	}
}

func TestWriteSBOMCycloneDX(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sbom.json"

	assets := []models.Asset{{IPAddress: "10.0.0.5", DeviceType: models.DeviceTypeRTU, Vendor: "Schneider"}}
	if err := WriteSBOM(path, "cyclonedx", assets); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !bytes.Contains(data, []byte("CycloneDX")) {
		t.Fatal("expected CycloneDX bomFormat in output")
	}
}

func TestWriteSTIXBundle(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/stix.json"

	findings := []models.Finding{{Type: models.FindingUnauthorizedCommand, Severity: models.SeverityCritical, TechniqueID: "T0855", Title: "unauthorized command", SourceIP: "10.0.0.9"}}
	if err := WriteSTIXBundle(path, findings); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !bytes.Contains(data, []byte("T0855")) {
		t.Fatal("expected technique id to appear in stix labels")
	}
}
