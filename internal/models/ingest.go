/**
 * Ingest Merge Contract.
 *
 * Shapes the external tool parsers (Zeek, Suricata, Nmap, Masscan — all
 * out of scope, §1) hand to the core data model. The parsers themselves
 * are external collaborators; only these merge-contract records and the
 * merge operation in internal/ingest are specified.
 */

package models

import "time"

// ZeekConnRecord is one row of a Zeek conn/modbus/dnp3/s7comm TSV log,
// reduced to the fields the merge step needs.
type ZeekConnRecord struct {
	Timestamp time.Time
	SrcIP     string
	DstIP     string
	SrcPort   uint16
	DstPort   uint16
	Proto     string
	Service   string
}

// SuricataEvent is one line-delimited JSON event (event_type in
// {flow, alert, dns, tls, http}) reduced to merge-relevant fields.
type SuricataEvent struct {
	Timestamp time.Time
	EventType string
	SrcIP     string
	DstIP     string
	SrcPort   uint16
	DstPort   uint16
	Proto     string
	AlertText string
}

// NmapHost is one host entry from an Nmap -oX scan, reduced to merge fields.
type NmapHost struct {
	IPAddress string
	Hostname  string
	OSGuess   string
	OpenPorts []int
}

// MasscanResult is one result entry from a Masscan JSON scan list.
type MasscanResult struct {
	IPAddress string
	Port      int
	Proto     string
}

// IngestSource tags which external tool contributed a merged record.
type IngestSource string

const (
	IngestZeek     IngestSource = "zeek"
	IngestSuricata IngestSource = "suricata"
	IngestNmap     IngestSource = "nmap"
	IngestMasscan  IngestSource = "masscan"
)
