package player

import (
	"sync"
	"testing"

	"github.com/resonate-protocol/playd/internal/audio"
	"github.com/resonate-protocol/playd/internal/audiosink"
	"github.com/resonate-protocol/playd/internal/audiosource"
	"github.com/resonate-protocol/playd/internal/response"
)

// fakeSource is a fixed in-memory audio.Source used for player tests, so
// they don't depend on real codec files.
type fakeSource struct {
	path    string
	format  audio.Format
	samples []byte // raw PCM bytes
	cursor  int
	closed  bool
}

func newFakeSource(path string, frames int, format audio.Format) *fakeSource {
	return &fakeSource{
		path:    path,
		format:  format,
		samples: make([]byte, frames*format.FrameSize()),
	}
}

func (s *fakeSource) File() string         { return s.path }
func (s *fakeSource) Format() audio.Format { return s.format }
func (s *fakeSource) Length() int64        { return int64(len(s.samples) / s.format.FrameSize()) }

func (s *fakeSource) Decode() (audio.DecodeResult, error) {
	if s.cursor >= len(s.samples) {
		return audio.DecodeResult{Status: audio.EOF}, nil
	}
	chunk := s.samples[s.cursor:]
	s.cursor = len(s.samples)
	return audio.DecodeResult{Status: audio.EOF, Bytes: chunk}, nil
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

const testExt = "fake"

func newTestPlayer(t *testing.T) (*Player, *recordingSink) {
	t.Helper()
	registry := audiosource.Registry{
		testExt: func(path string) (audio.Source, error) {
			return newFakeSource(path, 100, testFormat()), nil
		},
	}
	p := New(0, registry, audiosink.BuildTestSink)
	rec := &recordingSink{}
	p.SetIO(rec)
	return p, rec
}

// recordingSink records every response it receives, in order.
type recordingSink struct {
	mu    sync.Mutex
	calls []recorded
}

type recorded struct {
	id response.ClientId
	r  response.Response
}

func (r *recordingSink) Respond(id response.ClientId, resp response.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recorded{id: id, r: resp})
}

func (r *recordingSink) codes() []response.Code {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]response.Code, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.r.Code
	}
	return out
}

func TestPlayRejectedWhenEjected(t *testing.T) {
	p, rec := newTestPlayer(t)

	got := p.Dispatch(1, "c1", []string{"play"})
	want := response.Failure("c1", "play", "no file loaded")
	if got.Pack() != want.Pack() {
		t.Fatalf("got %q, want %q", got.Pack(), want.Pack())
	}
	if len(rec.calls) != 0 {
		t.Fatalf("expected no broadcasts, got %v", rec.codes())
	}
}

func TestLoadThenPlay(t *testing.T) {
	p, rec := newTestPlayer(t)

	ack := p.Dispatch(1, "c2", []string{"load", "/tmp/t.fake"})
	if ack.Pack() != response.Success("c2", "load").Pack() {
		t.Fatalf("load ack = %q", ack.Pack())
	}

	codes := rec.codes()
	if len(codes) < 2 || codes[0] != response.FLOAD || codes[1] != response.LEN {
		t.Fatalf("expected FLOAD, LEN broadcasts first, got %v", codes)
	}

	ack = p.Dispatch(1, "c3", []string{"play"})
	if ack.Pack() != response.Success("c3", "play").Pack() {
		t.Fatalf("play ack = %q", ack.Pack())
	}
	if p.State() != audio.Playing {
		t.Fatalf("state = %v, want Playing", p.State())
	}
}

func TestUnknownExtension(t *testing.T) {
	p, _ := newTestPlayer(t)

	got := p.Dispatch(1, "c6", []string{"load", "/tmp/t.xyz"})
	want := response.Failure("c6", "load", "no decoder for extension: xyz")
	if got.Pack() != want.Pack() {
		t.Fatalf("got %q, want %q", got.Pack(), want.Pack())
	}
}

func TestMalformedPos(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Dispatch(1, "c2", []string{"load", "/tmp/t.fake"})

	got := p.Dispatch(1, "c7", []string{"pos", "abc"})
	want := response.Invalid("c7", "pos", "not an integer")
	if got.Pack() != want.Pack() {
		t.Fatalf("got %q, want %q", got.Pack(), want.Pack())
	}
}

func TestSeekWhilePlaying(t *testing.T) {
	p, rec := newTestPlayer(t)
	p.Dispatch(1, "c2", []string{"load", "/tmp/t.fake"})
	p.Dispatch(1, "c3", []string{"play"})

	ack := p.Dispatch(1, "c4", []string{"pos", "50"})
	if ack.Pack() != response.Success("c4", "pos").Pack() {
		t.Fatalf("pos ack = %q", ack.Pack())
	}
	if p.State() != audio.Stopped {
		t.Fatalf("state after seek = %v, want Stopped", p.State())
	}

	codes := rec.codes()
	last := codes[len(codes)-2:]
	if last[0] != response.STOP || last[1] != response.POS {
		t.Fatalf("expected trailing STOP,POS, got %v", codes)
	}
}

func TestDumpIsUnicastOnly(t *testing.T) {
	p, rec := newTestPlayer(t)
	p.Dispatch(1, "c2", []string{"load", "/tmp/t.fake"})

	rec.mu.Lock()
	rec.calls = nil
	rec.mu.Unlock()

	p.Dispatch(7, "c8", []string{"dump"})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, c := range rec.calls {
		if c.id != 7 {
			t.Fatalf("dump leaked a response to id %d: %v", c.id, c.r.Pack())
		}
	}
}

func TestUserEndStopsAndSeeksToZero(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Dispatch(1, "c2", []string{"load", "/tmp/t.fake"})
	p.Dispatch(1, "c3", []string{"play"})

	ack := p.Dispatch(1, "c9", []string{"end"})
	if ack.Pack() != response.Success("c9", "end").Pack() {
		t.Fatalf("end ack = %q", ack.Pack())
	}
	if p.State() != audio.Stopped {
		t.Fatalf("state after end = %v, want Stopped", p.State())
	}
}

func TestEjectWhenEjectedIsNoopSuccess(t *testing.T) {
	p, rec := newTestPlayer(t)

	got := p.Dispatch(1, "c1", []string{"eject"})
	if got.Pack() != response.Success("c1", "eject").Pack() {
		t.Fatalf("got %q", got.Pack())
	}
	if len(rec.calls) != 0 {
		t.Fatalf("expected no broadcast for no-op eject, got %v", rec.codes())
	}
}

func TestUnknownCommandIsWhatNotFail(t *testing.T) {
	p, _ := newTestPlayer(t)

	got := p.Dispatch(1, "c1", []string{"frobnicate"})
	if got.Code != response.ACK || len(got.Args) < 1 || got.Args[0] != "WHAT" {
		t.Fatalf("got %q, want ACK WHAT", got.Pack())
	}
}
