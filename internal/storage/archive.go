/**
 * Session Archive Export/Import.
 *
 * A session archive is a ZIP containing manifest.json (version, app
 * version, timestamps, counts) and session.json (session metadata, assets,
 * connections), per §6 "Session archive". No third-party library in the
 * retrieved pack wraps zip archives; archive/zip plus encoding/json is the
 * ecosystem-default choice for this, recorded in DESIGN.md.
 */

package storage

import (
	"archive/zip"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kusanaginokajiki/gridmonitor/internal/apperr"
	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

// ArchiveFormatVersion is bumped whenever the archive's on-disk shape changes.
const ArchiveFormatVersion = 1

// AppVersion is stamped into every exported archive's manifest.
const AppVersion = "1.0.0"

// archiveManifest is the manifest.json contents.
type archiveManifest struct {
	Version          int       `json:"version"`
	AppVersion       string    `json:"app_version"`
	ExportedAt       time.Time `json:"exported_at"`
	AssetCount       int       `json:"asset_count"`
	ConnectionCount  int       `json:"connection_count"`
}

// archiveSession is the session.json contents.
type archiveSession struct {
	Session     *models.Session      `json:"session"`
	Assets      []models.Asset       `json:"assets"`
	Connections []models.Connection  `json:"connections"`
}

// connectionWire mirrors models.Connection but with OriginFiles as a slice
// so it survives JSON round-tripping (a Go map with struct{} values
// marshals fine, but comes back as map[string]interface{} on Unmarshal
// into a struct{} value type, which fails); this sidesteps that by always
// carrying origin files as a list.
type connectionWire struct {
	Key           models.ConnectionKey        `json:"key"`
	SrcMAC        string                      `json:"src_mac"`
	DstMAC        string                      `json:"dst_mac"`
	Transport     models.Transport            `json:"transport"`
	PacketCount   uint64                      `json:"packet_count"`
	ByteCount     uint64                      `json:"byte_count"`
	FirstSeen     time.Time                   `json:"first_seen"`
	LastSeen      time.Time                   `json:"last_seen"`
	OriginFiles   []string                    `json:"origin_files"`
	PacketSamples []models.PacketSummary      `json:"packet_samples,omitempty"`
}

func toConnectionWire(c models.Connection) connectionWire {
	files := make([]string, 0, len(c.OriginFiles))
	for f := range c.OriginFiles {
		files = append(files, f)
	}
	return connectionWire{
		Key: c.Key, SrcMAC: c.SrcMAC, DstMAC: c.DstMAC, Transport: c.Transport,
		PacketCount: c.PacketCount, ByteCount: c.ByteCount, FirstSeen: c.FirstSeen,
		LastSeen: c.LastSeen, OriginFiles: files, PacketSamples: c.PacketSamples,
	}
}

func fromConnectionWire(w connectionWire) models.Connection {
	files := make(map[string]struct{}, len(w.OriginFiles))
	for _, f := range w.OriginFiles {
		files[f] = struct{}{}
	}
	return models.Connection{
		Key: w.Key, SrcMAC: w.SrcMAC, DstMAC: w.DstMAC, Transport: w.Transport,
		PacketCount: w.PacketCount, ByteCount: w.ByteCount, FirstSeen: w.FirstSeen,
		LastSeen: w.LastSeen, OriginFiles: files, PacketSamples: w.PacketSamples,
	}
}

type archiveSessionWire struct {
	Session     *models.Session  `json:"session"`
	Assets      []models.Asset   `json:"assets"`
	Connections []connectionWire `json:"connections"`
}

// ExportArchive writes session's current saved state to a ZIP archive at
// path.
func ExportArchive(store Storage, sessionID, path string) error {
	session, snapshot, err := store.LoadSession(sessionID)
	if err != nil {
		return err
	}

	wire := archiveSessionWire{Session: session, Assets: snapshot.Assets}
	for _, c := range snapshot.Connections {
		wire.Connections = append(wire.Connections, toConnectionWire(c))
	}
	sessionJSON, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.ReportError, "failed to encode session for archive", err)
	}

	manifest := archiveManifest{
		Version: ArchiveFormatVersion, AppVersion: AppVersion, ExportedAt: time.Now(),
		AssetCount: len(snapshot.Assets), ConnectionCount: len(snapshot.Connections),
	}
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.ReportError, "failed to encode archive manifest", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return apperr.Wrap(apperr.ReportError, "failed to create archive file", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	if err := writeZipEntry(zw, "manifest.json", manifestJSON); err != nil {
		return err
	}
	if err := writeZipEntry(zw, "session.json", sessionJSON); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return apperr.Wrap(apperr.ReportError, "failed to finalize archive", err)
	}
	return nil
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return apperr.Wrap(apperr.ReportError, "failed to create archive entry "+name, err)
	}
	if _, err := w.Write(data); err != nil {
		return apperr.Wrap(apperr.ReportError, "failed to write archive entry "+name, err)
	}
	return nil
}

// ImportArchive reads a session archive, assigns it a fresh session id, and
// saves it into store, returning the new session.
func ImportArchive(store Storage, path string) (*models.Session, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidFormat, "failed to open session archive", err)
	}
	defer r.Close()

	var sessionJSON []byte
	foundManifest := false
	for _, f := range r.File {
		if f.Name == "manifest.json" {
			foundManifest = true
		}
		if f.Name == "session.json" {
			rc, err := f.Open()
			if err != nil {
				return nil, apperr.Wrap(apperr.InvalidFormat, "failed to read session.json", err)
			}
			sessionJSON, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return nil, apperr.Wrap(apperr.InvalidFormat, "failed to read session.json", err)
			}
		}
	}
	if !foundManifest || sessionJSON == nil {
		return nil, apperr.New(apperr.InvalidFormat, "archive missing manifest.json or session.json")
	}

	var wire archiveSessionWire
	if err := json.Unmarshal(sessionJSON, &wire); err != nil {
		return nil, apperr.Wrap(apperr.InvalidFormat, "failed to decode session.json", err)
	}
	if wire.Session == nil {
		return nil, apperr.New(apperr.InvalidFormat, "archive session.json missing session metadata")
	}

	session := *wire.Session
	session.ID = uuid.NewString()
	session.UpdatedAt = time.Now()

	conns := make([]models.Connection, 0, len(wire.Connections))
	for _, c := range wire.Connections {
		conns = append(conns, fromConnectionWire(c))
	}
	snapshot := models.Snapshot{Assets: wire.Assets, Connections: conns}

	if err := store.SaveSession(&session, snapshot); err != nil {
		return nil, err
	}
	return &session, nil
}
