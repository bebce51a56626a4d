package command

import (
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/kusanaginokajiki/gridmonitor/internal/apperr"
	"github.com/kusanaginokajiki/gridmonitor/internal/capture"
)

// writeRingBufferPCAP drains source's ring buffer and writes it to path as
// a standard PCAP file, satisfying the round-trip law that a ring-buffer
// save followed by a file import yields identical Frame records (§8).
func writeRingBufferPCAP(source *capture.LiveSource, path string) error {
	frames := source.Snapshot()

	f, err := os.Create(path)
	if err != nil {
		return apperr.Wrap(apperr.ReportError, "failed to create pcap file", err)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return apperr.Wrap(apperr.ReportError, "failed to write pcap header", err)
	}

	for _, raw := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     raw.Timestamp,
			CaptureLength: len(raw.Data),
			Length:        len(raw.Data),
		}
		if err := w.WritePacket(ci, raw.Data); err != nil {
			return apperr.Wrap(apperr.ReportError, "failed to write pcap packet", err)
		}
	}
	return nil
}
