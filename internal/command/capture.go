/**
 * Capture Lifecycle & PCAP Import.
 *
 * import_pcap and the start/stop/pause/resume/status operation group.
 * Live capture runs on its own goroutine (the producer, per §5); this
 * file's methods are the consumer-side control surface the shell calls
 * from its own goroutine, so captureMu serializes lifecycle transitions
 * while the state mutex (Surface.mu) guards the aggregator itself.
 */

package command

import (
	"log"
	"time"

	"github.com/kusanaginokajiki/gridmonitor/internal/apperr"
	"github.com/kusanaginokajiki/gridmonitor/internal/capture"
)

// CaptureStats mirrors the capture-stats event payload (§6), delivered to
// the shell at up to 10 Hz while a live capture runs.
type CaptureStats struct {
	PacketsCaptured   uint64
	PacketsPerSecond  float64
	BytesCaptured     uint64
	ActiveConnections int
	AssetCount        int
	ElapsedSeconds    float64
}

// CaptureStatus answers get_capture_status.
type CaptureStatus struct {
	Running bool
	Paused  bool
	Interface string
	Stats   CaptureStats
}

// liveCaptureState tracks one running live capture plus its counters.
type liveCaptureState struct {
	source    *capture.LiveSource
	iface     string
	startedAt time.Time
	packets   uint64
	bytes     uint64
	paused    bool
	events    chan<- CaptureStats
	errors    chan<- error
}

// ImportPCAP answers import_pcap(paths[]): reads every file through the
// slicer into the aggregator, returning the teacher-style per-file result
// list.
func (s *Surface) ImportPCAP(paths []string) ([]capture.FileResult, error) {
	results, err := capture.ReadFiles(paths, func(raw capture.RawPacket) {
		frame := capture.Slice(raw)
		if frame == nil {
			return
		}
		s.mu.Lock()
		s.agg.Ingest(frame)
		s.mu.Unlock()
	})
	if err != nil {
		return results, err
	}
	s.mu.Lock()
	for _, p := range paths {
		s.importedFiles = append(s.importedFiles, p)
	}
	s.mu.Unlock()
	return results, nil
}

// ListInterfaces answers list_interfaces.
func (s *Surface) ListInterfaces() ([]capture.NetworkInterface, error) {
	return capture.ListInterfaces()
}

// StartCapture answers start_capture(interface, bpf_filter?, promiscuous,
// ring_buffer_size, snaplen). events/errorsCh, if non-nil, receive
// capture-stats/capture-error events for the shell's event channel (§6);
// callers that only need synchronous semantics may pass nil for either.
func (s *Surface) StartCapture(cfg capture.LiveConfig, events chan<- CaptureStats, errorsCh chan<- error) error {
	s.captureMu.Lock()
	defer s.captureMu.Unlock()

	if s.capture != nil {
		return apperr.New(apperr.CaptureOpenFailed, "a capture is already running")
	}

	source, err := capture.NewLiveSource(cfg)
	if err != nil {
		return err
	}

	state := &liveCaptureState{source: source, iface: cfg.Interface, startedAt: time.Now(), events: events, errors: errorsCh}
	s.capture = state

	go source.Run()
	go s.pumpCapture(state)
	go s.watchCaptureErrors(state)

	return nil
}

// pumpCapture drains frames off the live source into the aggregator and
// emits capture-stats at roughly 10Hz, matching §6's rate ceiling.
func (s *Surface) pumpCapture(state *liveCaptureState) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case raw, ok := <-state.source.Frames():
			if !ok {
				return
			}
			frame := capture.Slice(raw)
			state.packets++
			state.bytes += uint64(len(raw.Data))
			if frame == nil {
				continue
			}

			s.mu.Lock()
			s.agg.Ingest(frame)
			s.mu.Unlock()

		case <-ticker.C:
			if state.events == nil {
				continue
			}
			snapshot := s.snapshotLocked()
			elapsed := time.Since(state.startedAt).Seconds()
			pps := 0.0
			if elapsed > 0 {
				pps = float64(state.packets) / elapsed
			}
			select {
			case state.events <- CaptureStats{
				PacketsCaptured:   state.packets,
				PacketsPerSecond:  pps,
				BytesCaptured:     state.bytes,
				ActiveConnections: len(snapshot.Connections),
				AssetCount:        len(snapshot.Assets),
				ElapsedSeconds:    elapsed,
			}:
			default:
			}
		}
	}
}

func (s *Surface) watchCaptureErrors(state *liveCaptureState) {
	err, ok := <-state.source.Errors()
	if !ok || err == nil {
		return
	}
	log.Printf("warning: live capture terminated: %v", err)
	if state.errors != nil {
		select {
		case state.errors <- err:
		default:
		}
	}
}

// StopCapture answers stop_capture(save_path?): stops the live source and,
// if savePath is non-empty, writes the ring buffer's retained frames out as
// a PCAP file.
func (s *Surface) StopCapture(savePath string) error {
	s.captureMu.Lock()
	state := s.capture
	s.captureMu.Unlock()

	if state == nil {
		return apperr.New(apperr.NotFound, "no capture is running")
	}
	state.source.Stop()

	if savePath != "" {
		if err := writeRingBufferPCAP(state.source, savePath); err != nil {
			return err
		}
	}

	s.captureMu.Lock()
	s.capture = nil
	s.captureMu.Unlock()
	return nil
}

// PauseCapture answers pause_capture: the consumer stops pulling frames,
// but the aggregator's existing state is left intact and queryable per §5.
func (s *Surface) PauseCapture() error {
	s.captureMu.Lock()
	defer s.captureMu.Unlock()
	if s.capture == nil {
		return apperr.New(apperr.NotFound, "no capture is running")
	}
	s.capture.source.Pause()
	s.capture.paused = true
	return nil
}

// ResumeCapture answers resume_capture.
func (s *Surface) ResumeCapture() error {
	s.captureMu.Lock()
	defer s.captureMu.Unlock()
	if s.capture == nil {
		return apperr.New(apperr.NotFound, "no capture is running")
	}
	s.capture.source.Resume()
	s.capture.paused = false
	return nil
}

// GetCaptureStatus answers get_capture_status.
func (s *Surface) GetCaptureStatus() (CaptureStatus, error) {
	s.captureMu.Lock()
	state := s.capture
	s.captureMu.Unlock()

	if state == nil {
		return CaptureStatus{Running: false}, nil
	}

	snapshot := s.snapshotLocked()
	elapsed := time.Since(state.startedAt).Seconds()
	pps := 0.0
	if elapsed > 0 {
		pps = float64(state.packets) / elapsed
	}
	return CaptureStatus{
		Running:   true,
		Paused:    state.paused,
		Interface: state.iface,
		Stats: CaptureStats{
			PacketsCaptured:   state.packets,
			PacketsPerSecond:  pps,
			BytesCaptured:     state.bytes,
			ActiveConnections: len(snapshot.Connections),
			AssetCount:        len(snapshot.Assets),
			ElapsedSeconds:    elapsed,
		},
	}, nil
}
