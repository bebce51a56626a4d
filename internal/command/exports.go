/**
 * Export Operations.
 *
 * export_assets_csv, export_connections_csv, export_topology_json,
 * export_assets_json, generate_pdf_report, export_sbom, export_stix_bundle,
 * save_topology_image. No CSV/PDF/SBOM/STIX library appears anywhere in
 * the retrieved pack, so these use encoding/csv and encoding/json, the
 * ecosystem-default choices for ad hoc structured exports (recorded in
 * DESIGN.md); save_topology_image takes already-rendered image bytes from
 * the GUI shell and only persists them, since no rendering library is in
 * scope here either.
 */

package command

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/kusanaginokajiki/gridmonitor/internal/apperr"
	"github.com/kusanaginokajiki/gridmonitor/internal/report"
	"github.com/kusanaginokajiki/gridmonitor/internal/topology"
)

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return apperr.Wrap(apperr.ReportError, "failed to create "+path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return apperr.Wrap(apperr.ReportError, "failed to write csv header", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return apperr.Wrap(apperr.ReportError, "failed to write csv rows", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return apperr.Wrap(apperr.ReportError, "failed to flush csv", err)
	}
	return nil
}

// ExportAssetsCSV answers export_assets_csv.
func (s *Surface) ExportAssetsCSV(path string) error {
	snapshot := s.snapshotLocked()
	header := []string{"ip_address", "mac_address", "hostname", "device_type", "vendor", "protocols", "confidence", "purdue_level", "country"}
	rows := make([][]string, 0, len(snapshot.Assets))
	for _, a := range snapshot.Assets {
		rows = append(rows, []string{
			a.IPAddress, a.MACAddress, a.Hostname, string(a.DeviceType), a.Vendor,
			joinComma(a.Protocols), strconv.Itoa(a.Confidence), strconv.Itoa(a.PurdueLevel), a.Country,
		})
	}
	return writeCSV(path, header, rows)
}

// ExportConnectionsCSV answers export_connections_csv.
func (s *Surface) ExportConnectionsCSV(path string) error {
	snapshot := s.snapshotLocked()
	header := []string{"src_ip", "src_port", "dst_ip", "dst_port", "protocol", "packet_count", "byte_count", "first_seen", "last_seen"}
	rows := make([][]string, 0, len(snapshot.Connections))
	for _, c := range snapshot.Connections {
		rows = append(rows, []string{
			c.Key.SrcIP, strconv.Itoa(int(c.Key.SrcPort)), c.Key.DstIP, strconv.Itoa(int(c.Key.DstPort)), c.Key.Protocol,
			strconv.FormatUint(c.PacketCount, 10), strconv.FormatUint(c.ByteCount, 10),
			c.FirstSeen.Format(time.RFC3339), c.LastSeen.Format(time.RFC3339),
		})
	}
	return writeCSV(path, header, rows)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.ReportError, "failed to encode json export", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperr.Wrap(apperr.ReportError, "failed to write "+path, err)
	}
	return nil
}

// ExportTopologyJSON answers export_topology_json.
func (s *Surface) ExportTopologyJSON(path string) error {
	snapshot := s.snapshotLocked()
	return writeJSON(path, topology.Build(snapshot.Assets, snapshot.Connections))
}

// ExportAssetsJSON answers export_assets_json.
func (s *Surface) ExportAssetsJSON(path string) error {
	snapshot := s.snapshotLocked()
	return writeJSON(path, snapshot.Assets)
}

// GeneratePDFReport answers generate_pdf_report(config, path).
func (s *Surface) GeneratePDFReport(cfg report.Config, path string) error {
	snapshot := s.snapshotLocked()
	s.mu.RLock()
	findings := s.findings
	s.mu.RUnlock()
	return report.WritePDF(path, cfg, snapshot, findings)
}

// ExportSBOM answers export_sbom(format, path): format is "cyclonedx" or
// "spdx"; both are rendered as their respective JSON document shape.
func (s *Surface) ExportSBOM(format, path string) error {
	snapshot := s.snapshotLocked()
	return report.WriteSBOM(path, format, snapshot.Assets)
}

// ExportSTIXBundle answers export_stix_bundle(path).
func (s *Surface) ExportSTIXBundle(path string) error {
	s.mu.RLock()
	findings := s.findings
	s.mu.RUnlock()
	return report.WriteSTIXBundle(path, findings)
}

// SaveTopologyImage answers save_topology_image(data, path): data is an
// already-rendered image produced by the GUI shell.
func (s *Surface) SaveTopologyImage(data []byte, path string) error {
	if len(data) == 0 {
		return apperr.New(apperr.ReportError, "empty topology image data")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperr.Wrap(apperr.ReportError, fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}

func joinComma(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ","
		}
		out += item
	}
	return out
}
