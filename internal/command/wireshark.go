/**
 * Wireshark Handoff Operations.
 *
 * detect_wireshark, open_in_wireshark(conn_id), open_wireshark_for_node(ip),
 * get_connection_frames(conn_id), export_frames_csv(conn_id),
 * save_frames_csv(conn_id, path). These operations never replace this
 * engine's own passive capture; they only launch the external wireshark
 * binary as a convenience, scoped to one connection or node via a display
 * filter.
 */

package command

import (
	"os/exec"
	"strconv"

	"github.com/kusanaginokajiki/gridmonitor/internal/apperr"
	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

// DetectWireshark answers detect_wireshark: reports whether a wireshark
// binary is reachable on PATH.
func (s *Surface) DetectWireshark() bool {
	_, err := exec.LookPath("wireshark")
	return err == nil
}

// OpenInWireshark answers open_in_wireshark(conn_id): launches wireshark
// with a display filter scoped to the named connection's 5-tuple.
func (s *Surface) OpenInWireshark(connID string) error {
	conn, err := s.findConnection(connID)
	if err != nil {
		return err
	}
	filter := connectionDisplayFilter(conn)
	return launchWireshark(filter)
}

// OpenWiresharkForNode answers open_wireshark_for_node(ip): launches
// wireshark with a display filter scoped to the named IP.
func (s *Surface) OpenWiresharkForNode(ip string) error {
	return launchWireshark("ip.addr == " + ip)
}

func launchWireshark(filter string) error {
	path, err := exec.LookPath("wireshark")
	if err != nil {
		return apperr.Wrap(apperr.NotFound, "wireshark is not installed or not on PATH", err)
	}
	cmd := exec.Command(path, "-Y", filter)
	if err := cmd.Start(); err != nil {
		return apperr.Wrap(apperr.ReportError, "failed to launch wireshark", err)
	}
	return nil
}

func connectionDisplayFilter(c models.Connection) string {
	portField := "tcp.port"
	if c.Transport == models.TransportUDP {
		portField = "udp.port"
	}
	return "ip.addr == " + c.Key.SrcIP + " && ip.addr == " + c.Key.DstIP +
		" && " + portField + " == " + strconv.Itoa(int(c.Key.SrcPort)) +
		" && " + portField + " == " + strconv.Itoa(int(c.Key.DstPort))
}

func (s *Surface) findConnection(connID string) (models.Connection, error) {
	snapshot := s.snapshotLocked()
	for _, c := range snapshot.Connections {
		if c.Key.String() == connID {
			return c, nil
		}
	}
	return models.Connection{}, apperr.New(apperr.NotFound, "connection not found: "+connID)
}

// GetConnectionFrames answers get_connection_frames(conn_id): the same
// bounded packet-sample drill-down get_connection_packets exposes, kept as
// a distinct named operation because the shell surfaces it alongside the
// wireshark handoff actions.
func (s *Surface) GetConnectionFrames(connID string) ([]models.PacketSummary, error) {
	conn, err := s.findConnection(connID)
	if err != nil {
		return nil, err
	}
	return conn.PacketSamples, nil
}

// ExportFramesCSV answers export_frames_csv(conn_id): renders the
// connection's packet samples as CSV text rather than a file.
func (s *Surface) ExportFramesCSV(connID string) (string, error) {
	conn, err := s.findConnection(connID)
	if err != nil {
		return "", err
	}
	return framesToCSV(conn.PacketSamples), nil
}

// SaveFramesCSV answers save_frames_csv(conn_id, path).
func (s *Surface) SaveFramesCSV(connID, path string) error {
	conn, err := s.findConnection(connID)
	if err != nil {
		return err
	}
	header := []string{"timestamp", "length", "frame_info"}
	rows := make([][]string, 0, len(conn.PacketSamples))
	for _, p := range conn.PacketSamples {
		rows = append(rows, []string{p.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"), strconv.Itoa(p.Length), p.FrameInfo})
	}
	return writeCSV(path, header, rows)
}

func framesToCSV(samples []models.PacketSummary) string {
	out := "timestamp,length,frame_info\n"
	for _, p := range samples {
		out += p.Timestamp.Format("2006-01-02T15:04:05.000Z07:00") + "," + strconv.Itoa(p.Length) + "," + p.FrameInfo + "\n"
	}
	return out
}
