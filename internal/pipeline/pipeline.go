// ABOUTME: Pipeline bridges a pull-style Source to a callback-driven Sink
// ABOUTME: Update() is the per-tick decode-then-transfer step the reactor drives
package pipeline

import (
	"github.com/resonate-protocol/playd/internal/audio"
	"github.com/resonate-protocol/playd/internal/playerr"
)

// Pipeline owns one loaded file's Source and Sink and shuttles decoded
// frames between them each tick. It is the direct counterpart of the
// original BasicAudio: a source decodes frames, a sink plays them out,
// and Update() is the one place that moves bytes from one to the other.
type Pipeline struct {
	src  audio.Source
	sink audio.Sink

	// pending holds whatever the last Decode call produced that hasn't
	// yet been fully accepted by the sink's ring buffer.
	pending      []byte
	pendingFinal bool // true once the source has reported EOF
}

// New constructs a Pipeline over an already-open source and sink. The
// sink is expected to already be Started or Stopped as the caller wants;
// Pipeline starts or stops it only when asked through SetPlaying, and
// stops it as part of SetPosition.
func New(src audio.Source, sink audio.Sink) *Pipeline {
	return &Pipeline{src: src, sink: sink}
}

// File returns the path of the currently loaded source.
func (p *Pipeline) File() string {
	return p.src.File()
}

// State returns the underlying sink's state.
func (p *Pipeline) State() audio.State {
	return p.sink.State()
}

// Update performs one decode-and-transfer step: if there is no pending
// frame, it decodes one; it then pushes as much of the pending frame as
// the sink's ring will accept. Once the source has reported EOF and the
// last frame has been fully accepted, it tells the sink no more input is
// coming. It returns the sink's state afterwards.
func (p *Pipeline) Update() (audio.State, error) {
	if err := p.decodeIfEmpty(); err != nil {
		return p.sink.State(), err
	}
	p.transferPending()
	if p.pendingFinal && len(p.pending) == 0 {
		p.sink.SourceOut()
	}
	return p.sink.State(), nil
}

// decodeIfEmpty pulls a new frame from the source if the current one has
// been fully transferred.
func (p *Pipeline) decodeIfEmpty() error {
	if len(p.pending) > 0 || p.pendingFinal {
		return nil
	}

	result, err := p.src.Decode()
	if err != nil {
		return playerr.Wrap(playerr.Internal, "decode", err)
	}

	p.pending = result.Bytes
	if result.Status == audio.EOF {
		p.pendingFinal = true
	}
	return nil
}

// transferPending offers as much of the pending frame as the sink will
// accept, keeping whatever is left over for the next tick.
func (p *Pipeline) transferPending() {
	if len(p.pending) == 0 {
		return
	}

	n := p.sink.Transfer(p.pending)
	p.pending = p.pending[n:]
}

// SetPlaying starts or stops the sink.
func (p *Pipeline) SetPlaying(playing bool) error {
	if playing {
		return p.sink.Start()
	}
	_, err := p.sink.Stop()
	return err
}

// Position returns the sink's current playback position in microseconds.
func (p *Pipeline) Position() int64 {
	return p.src.Format().SamplesToMicros(p.sink.SamplesConsumed())
}

// Length returns the source's total length in microseconds, or
// audio.UnknownLength if it cannot be determined.
func (p *Pipeline) Length() int64 {
	samples := p.src.Length()
	if samples == audio.UnknownLength {
		return audio.UnknownLength
	}
	return p.src.Format().SamplesToMicros(samples)
}

// SetPosition stops the sink, flushes its ring and any pending decoded
// frame, seeks the source, and resets the sink's consumed counter — in
// that order, since flushing and repositioning both require proof
// playback is stopped.
func (p *Pipeline) SetPosition(micros int64) error {
	tok, err := p.sink.Stop()
	if err != nil {
		return err
	}

	p.sink.FlushRing(tok)
	p.pending = nil
	p.pendingFinal = false

	target := p.src.Format().MicrosToSamples(micros)
	reached, err := p.src.Seek(target)
	if err != nil {
		return err
	}

	p.sink.SetPosition(reached, tok)
	return nil
}

// Close releases the source and sink.
func (p *Pipeline) Close() error {
	srcErr := p.src.Close()
	sinkErr := p.sink.Close()
	if srcErr != nil {
		return srcErr
	}
	return sinkErr
}
