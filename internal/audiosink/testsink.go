// ABOUTME: Synchronous in-memory sink used by pipeline and player tests
// ABOUTME: Drains its ring immediately on Transfer instead of via a real callback
package audiosink

import (
	"sync/atomic"

	"github.com/resonate-protocol/playd/internal/audio"
	"github.com/resonate-protocol/playd/internal/ring"
)

// TestSink is a deterministic audio.Sink: every Transfer is immediately
// "played" (the bytes are dropped, the consumed counter advances) rather
// than waiting on a realtime callback, so tests don't need real audio
// hardware or a clock. It still exercises the same ring buffer and
// StoppedToken discipline as OtoSink.
type TestSink struct {
	format    audio.Format
	ring      *ring.Buffer
	frameSize int

	consumed  atomic.Int64
	state     atomic.Int32
	sourceOut atomic.Bool

	// Autoplay, when true, makes Transfer immediately consume the bytes it
	// accepted (simulating an always-draining realtime callback). When
	// false, bytes sit in the ring until DrainOnce is called, which is
	// useful for ring-full / short-transfer tests.
	Autoplay bool
}

// NewTestSink constructs a TestSink for the given format.
func NewTestSink(format audio.Format) *TestSink {
	s := &TestSink{
		format:    format,
		ring:      ring.New(14), // 16KiB
		frameSize: format.FrameSize(),
		Autoplay:  true,
	}
	s.state.Store(int32(audio.Stopped))
	return s
}

func (s *TestSink) Format() audio.Format { return s.format }

func (s *TestSink) Start() error {
	s.state.Store(int32(audio.Playing))
	return nil
}

func (s *TestSink) Stop() (ring.StoppedToken, error) {
	s.state.Store(int32(audio.Stopped))
	return ring.NewStoppedToken(), nil
}

func (s *TestSink) State() audio.State { return audio.State(s.state.Load()) }

func (s *TestSink) SamplesConsumed() int64 { return s.consumed.Load() }

func (s *TestSink) Transfer(bytes []byte) int {
	n := s.ring.Write(bytes)
	if s.Autoplay {
		s.DrainOnce()
	}
	return n
}

// DrainOnce simulates one realtime-callback pull: it empties whatever is
// currently in the ring and advances the consumed counter accordingly.
func (s *TestSink) DrainOnce() int {
	buf := make([]byte, s.ring.ReadCapacity())
	n := s.ring.Read(buf)
	if n > 0 {
		s.consumed.Add(int64(n / s.frameSize))
	} else if s.sourceOut.Load() && audio.State(s.state.Load()) == audio.Playing {
		s.state.Store(int32(audio.AtEnd))
	}
	return n
}

func (s *TestSink) SourceOut() {
	s.sourceOut.Store(true)
	if s.Autoplay {
		s.DrainOnce()
	}
}

func (s *TestSink) SetPosition(sampleIndex int64, _ ring.StoppedToken) {
	s.consumed.Store(sampleIndex)
	s.sourceOut.Store(false)
}

func (s *TestSink) FlushRing(tok ring.StoppedToken) {
	s.ring.Flush(tok)
}

func (s *TestSink) Close() error { return nil }

// BuildTestSink adapts NewTestSink to the sink-builder function shape the
// Player expects (format, deviceID) -> (Sink, error); deviceID is ignored.
func BuildTestSink(format audio.Format, _ int) (audio.Sink, error) {
	return NewTestSink(format), nil
}
