package pipeline

import (
	"testing"

	"github.com/resonate-protocol/playd/internal/audio"
	"github.com/resonate-protocol/playd/internal/audiosink"
)

// fakeSource serves a fixed number of frames from an in-memory buffer,
// one Decode call at a time, tagging the final call EOF.
type fakeSource struct {
	format  audio.Format
	samples []byte
	cursor  int
	chunk   int
	closed  bool
}

func newFakeSource(frames, chunkFrames int, format audio.Format) *fakeSource {
	return &fakeSource{
		format:  format,
		samples: make([]byte, frames*format.FrameSize()),
		chunk:   chunkFrames * format.FrameSize(),
	}
}

func (s *fakeSource) File() string         { return "fake.raw" }
func (s *fakeSource) Format() audio.Format { return s.format }
func (s *fakeSource) Length() int64        { return int64(len(s.samples) / s.format.FrameSize()) }

func (s *fakeSource) Decode() (audio.DecodeResult, error) {
	if s.cursor >= len(s.samples) {
		return audio.DecodeResult{Status: audio.EOF}, nil
	}
	end := s.cursor + s.chunk
	status := audio.Decoding
	if end >= len(s.samples) {
		end = len(s.samples)
		status = audio.EOF
	}
	bytes := s.samples[s.cursor:end]
	s.cursor = end
	return audio.DecodeResult{Status: status, Bytes: bytes}, nil
}

func (s *fakeSource) Seek(sampleIndex int64) (int64, error) {
	total := int64(len(s.samples) / s.format.FrameSize())
	if sampleIndex < 0 {
		sampleIndex = 0
	}
	if sampleIndex > total {
		sampleIndex = total
	}
	s.cursor = int(sampleIndex) * s.format.FrameSize()
	return sampleIndex, nil
}

func (s *fakeSource) Close() error { s.closed = true; return nil }

func testFormat() audio.Format {
	return audio.Format{Channels: 1, SampleRate: 1000, Sample: audio.S16}
}

func TestUpdateDecodesAndTransfersUntilEOF(t *testing.T) {
	src := newFakeSource(100, 10, testFormat())
	sink := audiosink.NewTestSink(testFormat())
	p := New(src, sink)

	if err := p.SetPlaying(true); err != nil {
		t.Fatalf("start: %v", err)
	}

	var state audio.State
	var err error
	for i := 0; i < 20; i++ {
		state, err = p.Update()
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if state == audio.AtEnd {
			break
		}
	}

	if state != audio.AtEnd {
		t.Fatalf("expected AtEnd after draining, got %v", state)
	}
	if p.Position() != p.Length() {
		t.Fatalf("position %d != length %d at end of file", p.Position(), p.Length())
	}
}

func TestSetPositionStopsFlushesAndSeeks(t *testing.T) {
	src := newFakeSource(100, 10, testFormat())
	sink := audiosink.NewTestSink(testFormat())
	p := New(src, sink)

	if err := p.SetPlaying(true); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := p.Update(); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := p.SetPosition(30_000); err != nil {
		t.Fatalf("set position: %v", err)
	}

	if p.State() != audio.Stopped {
		t.Fatalf("state after seek = %v, want Stopped", p.State())
	}
	if got, want := p.Position(), int64(30_000); got != want {
		t.Fatalf("position after seek = %d, want %d", got, want)
	}
}

func TestLengthUnknownPropagates(t *testing.T) {
	src := &unknownLengthSource{fakeSource: newFakeSource(10, 10, testFormat())}
	sink := audiosink.NewTestSink(testFormat())
	p := New(src, sink)

	if p.Length() != audio.UnknownLength {
		t.Fatalf("length = %d, want UnknownLength", p.Length())
	}
}

type unknownLengthSource struct {
	*fakeSource
}

func (u *unknownLengthSource) Length() int64 { return audio.UnknownLength }

func TestCloseReleasesSourceAndSink(t *testing.T) {
	src := newFakeSource(10, 10, testFormat())
	sink := audiosink.NewTestSink(testFormat())
	p := New(src, sink)

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !src.closed {
		t.Fatalf("expected source to be closed")
	}
}
