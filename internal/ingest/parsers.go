/**
 * External Tool Log Parsers.
 *
 * Thin readers turning Zeek TSV, Suricata NDJSON, and Nmap XML into the
 * merge-contract records internal/ingest.Merge* consumes. These are
 * intentionally minimal: full parsing of every log field is out of scope
 * (§1), only the fields the merge step uses are extracted.
 */

package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/kusanaginokajiki/gridmonitor/internal/apperr"
	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

// ParseZeekConnLog reads a Zeek conn.log-style TSV stream: a block of
// "#fields" header comments naming tab-separated columns, followed by data
// rows. Only ts, id.orig_h, id.orig_p, id.resp_h, id.resp_p, proto, and
// service are used; a row missing either endpoint address is skipped
// rather than aborting the whole file, per §7's per-record decode policy,
// and a row whose port or ts value does not parse is kept with that field
// left zero.
func ParseZeekConnLog(raw []byte) ([]models.ZeekConnRecord, error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var fields []string
	var records []models.ZeekConnRecord

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#fields") {
			fields = strings.Split(strings.TrimPrefix(line, "#fields\t"), "\t")
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if fields == nil {
			continue
		}

		cols := strings.Split(line, "\t")
		row := make(map[string]string, len(fields))
		for i, name := range fields {
			if i < len(cols) {
				row[name] = cols[i]
			}
		}

		rec := models.ZeekConnRecord{
			SrcIP:   row["id.orig_h"],
			DstIP:   row["id.resp_h"],
			Proto:   row["proto"],
			Service: row["service"],
		}
		if rec.SrcIP == "" || rec.DstIP == "" {
			continue
		}
		if p, err := strconv.Atoi(row["id.orig_p"]); err == nil {
			rec.SrcPort = uint16(p)
		}
		if p, err := strconv.Atoi(row["id.resp_p"]); err == nil {
			rec.DstPort = uint16(p)
		}
		if ts, err := strconv.ParseFloat(row["ts"], 64); err == nil {
			rec.Timestamp = time.Unix(int64(ts), 0).UTC()
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperr.Wrap(apperr.InvalidFormat, "failed to read zeek log", err)
	}
	return records, nil
}

// rawSuricataEvent is the subset of Suricata's EVE JSON shape the merge
// step needs.
type rawSuricataEvent struct {
	Timestamp string `json:"timestamp"`
	EventType string `json:"event_type"`
	SrcIP     string `json:"src_ip"`
	DestIP    string `json:"dest_ip"`
	SrcPort   uint16 `json:"src_port"`
	DestPort  uint16 `json:"dest_port"`
	Proto     string `json:"proto"`
	Alert     *struct {
		Signature string `json:"signature"`
	} `json:"alert"`
}

// ParseSuricataEve reads a line-delimited EVE JSON stream, skipping lines
// that fail to decode (per §7, malformed records are counted/skipped, not
// fatal).
func ParseSuricataEve(raw []byte) ([]models.SuricataEvent, error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var events []models.SuricataEvent
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var raw rawSuricataEvent
		if err := json.Unmarshal(line, &raw); err != nil {
			continue
		}
		ev := models.SuricataEvent{
			EventType: raw.EventType,
			SrcIP:     raw.SrcIP,
			DstIP:     raw.DestIP,
			SrcPort:   raw.SrcPort,
			DstPort:   raw.DestPort,
			Proto:     strings.ToLower(raw.Proto),
		}
		if raw.Alert != nil {
			ev.AlertText = raw.Alert.Signature
		}
		if ts, err := time.Parse(time.RFC3339, raw.Timestamp); err == nil {
			ev.Timestamp = ts
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperr.Wrap(apperr.InvalidFormat, "failed to read suricata eve log", err)
	}
	return events, nil
}

// nmapXML mirrors the subset of an Nmap -oX document the merge step needs.
type nmapXML struct {
	Hosts []struct {
		Address []struct {
			Addr string `xml:"addr,attr"`
			Type string `xml:"addrtype,attr"`
		} `xml:"address"`
		Hostnames struct {
			Hostname []struct {
				Name string `xml:"name,attr"`
			} `xml:"hostname"`
		} `xml:"hostnames"`
		OS struct {
			OSMatch []struct {
				Name string `xml:"name,attr"`
			} `xml:"osmatch"`
		} `xml:"os"`
		Ports struct {
			Port []struct {
				PortID int `xml:"portid,attr"`
				State  struct {
					State string `xml:"state,attr"`
				} `xml:"state"`
			} `xml:"port"`
		} `xml:"ports"`
	} `xml:"host"`
}

// ParseNmapXML reads an Nmap -oX document into the merge-contract host list.
func ParseNmapXML(raw []byte) ([]models.NmapHost, error) {
	var doc nmapXML
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, apperr.Wrap(apperr.InvalidFormat, "failed to decode nmap xml", err)
	}

	var hosts []models.NmapHost
	for _, h := range doc.Hosts {
		var ip string
		for _, addr := range h.Address {
			if addr.Type == "ipv4" || addr.Type == "ipv6" {
				ip = addr.Addr
				break
			}
		}
		if ip == "" {
			continue
		}

		host := models.NmapHost{IPAddress: ip}
		if len(h.Hostnames.Hostname) > 0 {
			host.Hostname = h.Hostnames.Hostname[0].Name
		}
		if len(h.OS.OSMatch) > 0 {
			host.OSGuess = h.OS.OSMatch[0].Name
		}
		for _, p := range h.Ports.Port {
			if p.State.State == "open" {
				host.OpenPorts = append(host.OpenPorts, p.PortID)
			}
		}
		hosts = append(hosts, host)
	}
	return hosts, nil
}
