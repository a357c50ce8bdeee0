// Package capture implements the optional capture sink of spec §4.5's
// enable_capture operation: a teed write of raw frame bytes to a
// PCAP-compatible file, capped at a configured frame count. Only the frame
// bytes are written; the derived feature record is not stored in the
// capture.
//
// Grounded on the pcapgo writer usage in
// Decade-qiu-Go2NetSpectra's persistent capture worker.
package capture

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Sink writes steered frames to a PCAP file, stopping once maxFrames have
// been written. Safe for concurrent use by multiple drainer goroutines.
type Sink struct {
	mu        sync.Mutex
	w         *pcapgo.Writer
	closer    io.Closer
	maxFrames int
	written   int
}

// New wraps wc with a PCAP file header and caps captured frames at
// maxFrames (0 = unlimited).
func New(wc io.WriteCloser, snapLen uint32, maxFrames int) (*Sink, error) {
	w := pcapgo.NewWriter(wc)
	if err := w.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		wc.Close()
		return nil, fmt.Errorf("capture: write pcap header: %w", err)
	}
	return &Sink{w: w, closer: wc, maxFrames: maxFrames}, nil
}

// Write tees a single frame into the capture file. Returns false once the
// configured cap has been reached, at which point the sink stops
// accepting further frames but does not error.
func (s *Sink) Write(frame []byte, ts time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxFrames > 0 && s.written >= s.maxFrames {
		return false, nil
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(frame),
		Length:        len(frame),
	}
	if err := s.w.WritePacket(ci, frame); err != nil {
		return false, fmt.Errorf("capture: write packet: %w", err)
	}
	s.written++
	return true, nil
}

// Written returns the number of frames captured so far.
func (s *Sink) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Close flushes and closes the underlying file.
func (s *Sink) Close() error {
	return s.closer.Close()
}
