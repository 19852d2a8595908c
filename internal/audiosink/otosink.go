// ABOUTME: Realtime output sink backed by the oto library
// ABOUTME: oto's internal player goroutine is the "audio callback" pulling from our SPSC ring
package audiosink

import (
	"io"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"

	"github.com/resonate-protocol/playd/internal/audio"
	"github.com/resonate-protocol/playd/internal/playerr"
	"github.com/resonate-protocol/playd/internal/ring"
)

// ringCapacityPow2 sizes the SPSC ring to roughly 1.4s of stereo 16-bit
// audio at 48kHz; §4.A requires a power-of-two byte capacity.
const ringCapacityPow2 = 18 // 256KiB

// sharedOtoContext holds the one oto.Context a process may create.
var sharedOtoContext struct {
	ctx   *oto.Context
	ready chan struct{}
}

// OtoSink is the realtime audio.Sink backend used by cmd/playd.
type OtoSink struct {
	format    audio.Format
	ring      *ring.Buffer
	player    *oto.Player
	frameSize int

	consumed  atomic.Int64
	state     atomic.Int32 // audio.State
	sourceOut atomic.Bool
}

// New constructs a sink for the given output device and format. oto only
// accepts one context per process and only plays signed 16-bit PCM, so
// format.Sample must be audio.S16 — anything else is a BadFormat error,
// per spec.md §7.
func New(deviceID int, format audio.Format) (*OtoSink, error) {
	if format.Sample != audio.S16 {
		return nil, playerr.New(playerr.BadFormat,
			"sink only accepts s16 pcm, got %s", format.Sample)
	}
	if format.Channels < 1 {
		return nil, playerr.New(playerr.BadFormat, "invalid channel count: %d", format.Channels)
	}

	ctx, err := otoContext(format)
	if err != nil {
		return nil, playerr.Wrap(playerr.Internal, "failed to initialise audio device", err)
	}

	s := &OtoSink{
		format:    format,
		ring:      ring.New(ringCapacityPow2),
		frameSize: format.FrameSize(),
	}
	s.state.Store(int32(audio.Stopped))

	s.player = ctx.NewPlayer(&ringReader{sink: s})
	return s, nil
}

// otoContext lazily creates the process-wide oto context. oto forbids
// creating a second context, so subsequent calls reuse it (matching
// pkg/audio/output/oto.go's Open in the teacher, which hits the same
// limitation).
func otoContext(format audio.Format) (*oto.Context, error) {
	if sharedOtoContext.ctx != nil {
		return sharedOtoContext.ctx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	sharedOtoContext.ctx = ctx
	sharedOtoContext.ready = ready
	return ctx, nil
}

func (s *OtoSink) Format() audio.Format { return s.format }

func (s *OtoSink) Start() error {
	if audio.State(s.state.Load()) == audio.None {
		return playerr.New(playerr.NoAudio, "no sink to start")
	}
	s.player.Play()
	s.state.Store(int32(audio.Playing))
	return nil
}

func (s *OtoSink) Stop() (ring.StoppedToken, error) {
	if audio.State(s.state.Load()) == audio.None {
		return ring.StoppedToken{}, playerr.New(playerr.NoAudio, "no sink to stop")
	}
	s.player.Pause()
	s.state.Store(int32(audio.Stopped))
	return ring.NewStoppedToken(), nil
}

func (s *OtoSink) State() audio.State {
	return audio.State(s.state.Load())
}

func (s *OtoSink) SamplesConsumed() int64 {
	return s.consumed.Load()
}

func (s *OtoSink) Transfer(bytes []byte) int {
	return s.ring.Write(bytes)
}

func (s *OtoSink) SourceOut() {
	s.sourceOut.Store(true)
}

func (s *OtoSink) SetPosition(sampleIndex int64, _ ring.StoppedToken) {
	s.consumed.Store(sampleIndex)
	s.sourceOut.Store(false)
}

func (s *OtoSink) FlushRing(tok ring.StoppedToken) {
	s.ring.Flush(tok)
}

func (s *OtoSink) Close() error {
	s.player.Close()
	return nil
}

// Build adapts New to the sink-builder function shape the Player expects:
// (format, deviceID) -> (audio.Sink, error).
func Build(format audio.Format, deviceID int) (audio.Sink, error) {
	return New(deviceID, format)
}

// ringReader adapts OtoSink's ring buffer to the io.Reader oto's internal
// playback goroutine pulls from. This goroutine is the spec's "realtime
// thread": it must not block or allocate per spec.md §5, so a drained ring
// simply yields zero bytes this round rather than blocking for more.
type ringReader struct {
	sink *OtoSink
}

func (r *ringReader) Read(p []byte) (int, error) {
	n := r.sink.ring.Read(p)
	if n > 0 {
		frames := n / r.sink.frameSize
		r.sink.consumed.Add(int64(frames))
		return n, nil
	}

	if r.sink.sourceOut.Load() {
		r.sink.state.Store(int32(audio.AtEnd))
		return 0, io.EOF
	}

	return 0, nil
}
