/**
 * Packet Source.
 *
 * The single abstraction behind the two capture variants: a file reader
 * that iterates PCAP/PCAPNG records in file order, and a live reader that
 * opens an interface in promiscuous, receive-only mode. Both yield raw
 * frame bytes, a capture timestamp, and an origin tag until end of input
 * or an explicit stop.
 */

package capture

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
	"github.com/google/gopacket/pcapgo"

	"github.com/kusanaginokajiki/gridmonitor/internal/apperr"
)

// RawPacket is one captured frame as handed off the wire or out of a file,
// before frame slicing.
type RawPacket struct {
	Data      []byte
	Timestamp time.Time
	Origin    string
}

// FileResult summarizes one file's read, per §4.1 "reports per-file success
// with a packet count and per-file failure with an error message".
type FileResult struct {
	Path          string
	Status        string // "ok" or "error"
	PacketCount   int
	SkippedFrames int
	Error         string
}

// ReadFiles iterates PCAP/PCAPNG files in order, invoking handler for every
// decodable frame. Frames that fail to parse as Ethernet are skipped and
// counted, never aborting the batch.
func ReadFiles(paths []string, handler func(RawPacket)) ([]FileResult, error) {
	if len(paths) == 0 {
		return nil, apperr.New(apperr.InvalidFormat, "No packets could be parsed from the provided files")
	}

	results := make([]FileResult, 0, len(paths))
	totalPackets := 0

	for _, path := range paths {
		count, skipped, err := readOneFile(path, handler)
		result := FileResult{Path: path, PacketCount: count, SkippedFrames: skipped}
		if err != nil {
			result.Status = "error"
			result.Error = err.Error()
		} else {
			result.Status = "ok"
			totalPackets += count
		}
		results = append(results, result)
	}

	if totalPackets == 0 {
		return results, apperr.New(apperr.InvalidFormat, "No packets could be parsed from the provided files")
	}
	return results, nil
}

func readOneFile(path string, handler func(RawPacket)) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, apperr.Wrap(apperr.CaptureOpenFailed, "cannot open capture file "+path, err)
	}
	defer f.Close()

	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		return 0, 0, apperr.Wrap(apperr.CaptureOpenFailed, "cannot read file header for "+path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, 0, apperr.Wrap(apperr.CaptureOpenFailed, "cannot rewind "+path, err)
	}

	var packetSource *gopacket.PacketSource
	if bytes.Equal(magic, []byte{0x0A, 0x0D, 0x0D, 0x0A}) {
		r, err := pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return 0, 0, apperr.Wrap(apperr.CaptureOpenFailed, "invalid pcapng file "+path, err)
		}
		packetSource = gopacket.NewPacketSource(r, r.LinkType())
	} else {
		r, err := pcapgo.NewReader(f)
		if err != nil {
			return 0, 0, apperr.Wrap(apperr.CaptureOpenFailed, "invalid pcap file "+path, err)
		}
		packetSource = gopacket.NewPacketSource(r, r.LinkType())
	}
	packetSource.DecodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}

	count, skipped := 0, 0
	for {
		data, ci, err := packetSource.ZeroCopyReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			log.Printf("debug: frame decode skipped in %s: %v", path, err)
			continue
		}
		cp := make([]byte, len(data))
		copy(cp, data)
		handler(RawPacket{Data: cp, Timestamp: ci.Timestamp, Origin: path})
		count++
	}
	return count, skipped, nil
}

// LiveConfig configures the live packet source.
type LiveConfig struct {
	Interface      string
	SnapLen        int32
	Promiscuous    bool
	BPFFilter      string
	RingBufferSize int // default 1,000,000
}

// DefaultLiveConfig returns sane defaults for the named interface.
func DefaultLiveConfig(iface string) LiveConfig {
	return LiveConfig{
		Interface:      iface,
		SnapLen:        65536,
		Promiscuous:    true,
		RingBufferSize: 1_000_000,
	}
}

// LiveSource opens an interface in promiscuous, receive-only mode and
// publishes frames into a bounded channel on its own scheduling unit. It
// never transmits a frame on the interface. Every captured raw frame is
// also retained in a bounded ring buffer for later file export.
type LiveSource struct {
	cfg     LiveConfig
	handle  *pcap.Handle
	frames  chan RawPacket
	ring    *RingBuffer
	stop    atomic.Bool
	pause   atomic.Bool
	errCh   chan error
}

// NewLiveSource opens the interface with the three guarantees required by
// §4.1: promiscuous receive mode, no transmission capability is ever used,
// and permission failures are translated into a platform-appropriate hint.
func NewLiveSource(cfg LiveConfig) (*LiveSource, error) {
	if cfg.RingBufferSize <= 0 {
		cfg.RingBufferSize = 1_000_000
	}
	if cfg.SnapLen <= 0 {
		cfg.SnapLen = 65536
	}

	inactive, err := pcap.NewInactiveHandle(cfg.Interface)
	if err != nil {
		return nil, translateOpenError(err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(int(cfg.SnapLen)); err != nil {
		return nil, apperr.Wrap(apperr.CaptureOpenFailed, "failed to set snaplen", err)
	}
	if err := inactive.SetPromisc(cfg.Promiscuous); err != nil {
		return nil, apperr.Wrap(apperr.CaptureOpenFailed, "failed to set promiscuous mode", err)
	}
	// 100ms internal timeout doubles as the stop/pause polling granularity (§5).
	if err := inactive.SetTimeout(100 * time.Millisecond); err != nil {
		return nil, apperr.Wrap(apperr.CaptureOpenFailed, "failed to set capture timeout", err)
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, translateOpenError(err)
	}

	if cfg.BPFFilter != "" {
		if err := handle.SetBPFFilter(cfg.BPFFilter); err != nil {
			handle.Close()
			return nil, apperr.Wrap(apperr.CaptureOpenFailed, "invalid BPF filter", err)
		}
	}

	return &LiveSource{
		cfg:    cfg,
		handle: handle,
		frames: make(chan RawPacket, 4096),
		ring:   NewRingBuffer(cfg.RingBufferSize),
		errCh:  make(chan error, 1),
	}, nil
}

// Frames exposes the bounded channel frames are published on.
func (s *LiveSource) Frames() <-chan RawPacket { return s.frames }

// Errors exposes fatal capture faults (CaptureReadFailed), matching the
// "capture-error" event per §6.
func (s *LiveSource) Errors() <-chan error { return s.errCh }

// Snapshot returns every frame currently retained in the ring buffer, in
// capture order, for PCAP export via stop_capture(save_path).
func (s *LiveSource) Snapshot() []RawPacket { return s.ring.Snapshot() }

// Pause stops pulling from the channel without draining the interface.
func (s *LiveSource) Pause() { s.pause.Store(true) }

// Resume resumes pulling from the channel after Pause.
func (s *LiveSource) Resume() { s.pause.Store(false) }

// Stop terminates the reader cleanly; it is safe to call more than once.
func (s *LiveSource) Stop() {
	s.stop.Store(true)
}

// Run blocks, pulling frames from the interface on its own scheduling unit
// until Stop is called or a fatal read error occurs. ZeroCopyReadPacketData
// blocks on the OS capture call with the interface's internal timeout,
// which is the sole point stop/pause are honored between reads.
func (s *LiveSource) Run() {
	defer close(s.frames)
	defer s.handle.Close()

	for {
		if s.stop.Load() {
			return
		}
		if s.pause.Load() {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		data, ci, err := s.handle.ZeroCopyReadPacketData()
		if err == pcap.NextErrorTimeoutExpired {
			continue
		}
		if err != nil {
			s.errCh <- apperr.Wrap(apperr.CaptureReadFailed, "live capture read failed", err)
			return
		}

		cp := make([]byte, len(data))
		copy(cp, data)
		raw := RawPacket{Data: cp, Timestamp: ci.Timestamp, Origin: s.cfg.Interface}
		s.ring.Push(raw)

		select {
		case s.frames <- raw:
		default:
			// Channel send blocks by contract; a full channel here means the
			// consumer is behind. Block rather than drop, per §5 back-pressure.
			s.frames <- raw
		}
	}
}

// RingBuffer retains frames in a true bounded deque with oldest-eviction,
// guarded by its own mutex so PCAP save can proceed without stalling
// processing (§5) -- a separate lock from the aggregator's state mutex.
type RingBuffer struct {
	mu       sync.Mutex
	capacity int
	buf      []RawPacket
	start    int
	size     int
}

// NewRingBuffer allocates a ring buffer of the given capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1_000_000
	}
	return &RingBuffer{capacity: capacity, buf: make([]RawPacket, capacity)}
}

// Push appends a frame, evicting the oldest entry on overflow.
func (r *RingBuffer) Push(p RawPacket) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := (r.start + r.size) % r.capacity
	r.buf[idx] = p
	if r.size < r.capacity {
		r.size++
	} else {
		r.start = (r.start + 1) % r.capacity
	}
}

// Snapshot returns a copy of all retained frames in capture order, for PCAP
// export.
func (r *RingBuffer) Snapshot() []RawPacket {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RawPacket, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%r.capacity]
	}
	return out
}

func translateOpenError(err error) error {
	hint := ""
	switch runtime.GOOS {
	case "linux":
		hint = "grant the capability with: sudo setcap cap_net_raw,cap_net_admin=eip <binary>"
	case "darwin":
		hint = "grant BPF device access: sudo chmod 660 /dev/bpf* or install ChmodBPF"
	case "windows":
		hint = "install Npcap (https://npcap.com) with WinPcap API compatibility enabled"
	}
	return apperr.Wrap(apperr.CaptureOpenFailed, fmt.Sprintf("failed to open interface: %v", err), err).WithRemediation(hint)
}
