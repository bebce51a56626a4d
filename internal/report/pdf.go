/**
 * PDF Report Writer.
 *
 * No PDF library appears anywhere in the retrieved pack, so this writes a
 * minimal valid single-page PDF by hand: one page object, one content
 * stream of Tj text-showing operators, and the standard xref/trailer
 * structure. This is the ecosystem-minimal approach for ad hoc PDF
 * generation without a third-party dependency, recorded in DESIGN.md.
 */

package report

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kusanaginokajiki/gridmonitor/internal/apperr"
	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

// Config is the caller-supplied report configuration for generate_pdf_report.
type Config struct {
	Title           string
	IncludeFindings bool
	IncludeAssets   bool
}

// WritePDF renders a summary report (title, asset count, connection count,
// findings list) as a minimal single-page PDF document at path.
func WritePDF(path string, cfg Config, snapshot models.Snapshot, findings []models.Finding) error {
	lines := buildReportLines(cfg, snapshot, findings)
	doc := renderPDF(lines)

	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return apperr.Wrap(apperr.ReportError, "failed to write pdf report", err)
	}
	return nil
}

func buildReportLines(cfg Config, snapshot models.Snapshot, findings []models.Finding) []string {
	title := cfg.Title
	if title == "" {
		title = "Network Assessment Report"
	}

	lines := []string{
		title,
		"Generated " + time.Now().UTC().Format(time.RFC3339),
		fmt.Sprintf("Assets observed: %d", len(snapshot.Assets)),
		fmt.Sprintf("Connections observed: %d", len(snapshot.Connections)),
		"",
	}

	if cfg.IncludeAssets {
		lines = append(lines, "Assets:")
		for _, a := range snapshot.Assets {
			lines = append(lines, fmt.Sprintf("  %s  %s  %s", a.IPAddress, a.DeviceType, a.Vendor))
		}
		lines = append(lines, "")
	}

	if cfg.IncludeFindings {
		lines = append(lines, fmt.Sprintf("Findings (%d):", len(findings)))
		for _, f := range findings {
			lines = append(lines, fmt.Sprintf("  [%s] %s - %s", f.Severity, f.Title, f.Description))
		}
	}

	return lines
}

// renderPDF produces a minimal, valid single-page PDF with one Helvetica
// text block. Lines are escaped for PDF string literals and clipped to
// avoid overrunning the page.
func renderPDF(lines []string) []byte {
	var content bytes.Buffer
	content.WriteString("BT /F1 11 Tf 40 760 Td 14 TL\n")
	for _, line := range lines {
		content.WriteString("(" + escapePDFString(line) + ") Tj T*\n")
	}
	content.WriteString("ET")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects)+1)
	for i, obj := range objects {
		offsets[i+1] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF", len(objects)+1, xrefStart)

	return buf.Bytes()
}

func escapePDFString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "(", `\(`)
	s = strings.ReplaceAll(s, ")", `\)`)
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
