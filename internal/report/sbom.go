/**
 * SBOM & STIX Bundle Writers.
 *
 * export_sbom and export_stix_bundle. No SBOM or STIX library appears in
 * the retrieved pack; these render the CycloneDX-shaped and STIX 2.1
 * bundle-shaped JSON documents directly with encoding/json, the same
 * approach the session archive and other JSON exports already take.
 */

package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kusanaginokajiki/gridmonitor/internal/apperr"
	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

type cyclonedxComponent struct {
	Type      string `json:"type"`
	Name      string `json:"name"`
	Version   string `json:"version,omitempty"`
	BomRef    string `json:"bom-ref"`
	PUrl      string `json:"purl,omitempty"`
	Publisher string `json:"publisher,omitempty"`
}

type cyclonedxDocument struct {
	BomFormat   string                `json:"bomFormat"`
	SpecVersion string                `json:"specVersion"`
	SerialNumber string               `json:"serialNumber"`
	Version     int                   `json:"version"`
	Components  []cyclonedxComponent  `json:"components"`
}

type spdxPackage struct {
	SPDXID           string `json:"SPDXID"`
	Name             string `json:"name"`
	VersionInfo      string `json:"versionInfo,omitempty"`
	Supplier         string `json:"supplier,omitempty"`
	DownloadLocation string `json:"downloadLocation"`
}

type spdxDocument struct {
	SPDXVersion       string        `json:"spdxVersion"`
	DataLicense       string        `json:"dataLicense"`
	SPDXID            string        `json:"SPDXID"`
	Name              string        `json:"name"`
	DocumentNamespace string        `json:"documentNamespace"`
	CreationInfo      spdxCreation  `json:"creationInfo"`
	Packages          []spdxPackage `json:"packages"`
}

type spdxCreation struct {
	Created time.Time `json:"created"`
}

// WriteSBOM renders the discovered asset inventory as a software/hardware
// bill of materials, in either CycloneDX or SPDX JSON shape.
func WriteSBOM(path, format string, assets []models.Asset) error {
	var data []byte
	var err error

	switch format {
	case "spdx":
		data, err = json.MarshalIndent(buildSPDX(assets), "", "  ")
	default:
		data, err = json.MarshalIndent(buildCycloneDX(assets), "", "  ")
	}
	if err != nil {
		return apperr.Wrap(apperr.ReportError, "failed to encode sbom", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperr.Wrap(apperr.ReportError, "failed to write sbom", err)
	}
	return nil
}

func buildCycloneDX(assets []models.Asset) cyclonedxDocument {
	doc := cyclonedxDocument{
		BomFormat:    "CycloneDX",
		SpecVersion:  "1.5",
		SerialNumber: "urn:uuid:" + uuid.NewString(),
		Version:      1,
	}
	for _, a := range assets {
		doc.Components = append(doc.Components, cyclonedxComponent{
			Type:      "device",
			Name:      fmt.Sprintf("%s (%s)", a.IPAddress, a.DeviceType),
			Version:   a.ProductFamily,
			BomRef:    a.IPAddress,
			Publisher: a.Vendor,
		})
	}
	return doc
}

func buildSPDX(assets []models.Asset) spdxDocument {
	doc := spdxDocument{
		SPDXVersion:       "SPDX-2.3",
		DataLicense:       "CC0-1.0",
		SPDXID:            "SPDXRef-DOCUMENT",
		Name:              "network-discovery-inventory",
		DocumentNamespace: "urn:uuid:" + uuid.NewString(),
		CreationInfo:      spdxCreation{Created: time.Now().UTC()},
	}
	for i, a := range assets {
		doc.Packages = append(doc.Packages, spdxPackage{
			SPDXID:           fmt.Sprintf("SPDXRef-Package-%d", i),
			Name:             a.IPAddress,
			VersionInfo:      a.ProductFamily,
			Supplier:         a.Vendor,
			DownloadLocation: "NOASSERTION",
		})
	}
	return doc
}

// stixBundle is a minimal STIX 2.1 bundle wrapping one indicator SDO per
// finding.
type stixBundle struct {
	Type    string        `json:"type"`
	ID      string        `json:"id"`
	Objects []stixObject  `json:"objects"`
}

type stixObject struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Created     string `json:"created"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Pattern     string `json:"pattern,omitempty"`
	Labels      []string `json:"labels,omitempty"`
}

// WriteSTIXBundle renders the current findings as a STIX 2.1 bundle of
// indicator objects, one per finding.
func WriteSTIXBundle(path string, findings []models.Finding) error {
	now := time.Now().UTC().Format(time.RFC3339)
	bundle := stixBundle{Type: "bundle", ID: "bundle--" + uuid.NewString()}

	for _, f := range findings {
		obj := stixObject{
			Type:        "indicator",
			ID:          "indicator--" + uuid.NewString(),
			Created:     now,
			Name:        f.Title,
			Description: f.Description,
			Pattern:     fmt.Sprintf("[ipv4-addr:value = '%s']", f.SourceIP),
			Labels:      []string{string(f.Severity)},
		}
		if f.TechniqueID != "" {
			obj.Labels = append(obj.Labels, f.TechniqueID)
		}
		bundle.Objects = append(bundle.Objects, obj)
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.ReportError, "failed to encode stix bundle", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperr.Wrap(apperr.ReportError, "failed to write stix bundle", err)
	}
	return nil
}
