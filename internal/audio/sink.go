// ABOUTME: Sink is the callback-driven output device contract the pipeline feeds
// ABOUTME: Concrete device backends (package internal/audiosink) implement it
package audio

import "github.com/resonate-protocol/playd/internal/ring"

// State is a Sink's (and therefore a pipeline's) playback state.
type State uint8

const (
	// None means no sink exists (the player is ejected).
	None State = iota
	// Stopped means a sink exists but its callback isn't consuming the ring.
	Stopped
	// Playing means the sink's callback is actively draining the ring.
	Playing
	// AtEnd means the source is drained and the ring has emptied.
	AtEnd
)

func (s State) String() string {
	switch s {
	case None:
		return "NONE"
	case Stopped:
		return "STOPPED"
	case Playing:
		return "PLAYING"
	case AtEnd:
		return "AT_END"
	default:
		return "UNKNOWN"
	}
}

// Sink is a callback-driven audio output device.
//
// Its realtime callback (owned by the OS audio backend, not by the
// reactor) reads PCM bytes out of an internal ring.Buffer and advances an
// atomic samples-consumed counter. Every Sink field other than the ring
// buffer, the consumed counter, and the state word must be touched only
// while the callback is stopped — see Stop.
type Sink interface {
	// Format returns the format this sink was constructed for.
	Format() Format

	// Start begins (or resumes) the realtime callback.
	Start() error

	// Stop pauses the realtime callback and returns a token proving it is
	// no longer running, which FlushRing and SetPosition require.
	Stop() (ring.StoppedToken, error)

	// State returns the sink's current state. Safe to call from any
	// goroutine.
	State() State

	// SamplesConsumed returns the sample index given to the last
	// SetPosition plus the frames the callback has delivered to the device
	// since then. Safe to call from any goroutine.
	SamplesConsumed() int64

	// Transfer offers bytes to the sink's ring buffer and returns how many
	// were accepted; a short transfer (ring full) is normal.
	Transfer(bytes []byte) int

	// SourceOut signals that no more input is coming; once the ring
	// empties, the sink transitions to AtEnd on its own.
	SourceOut()

	// SetPosition sets the consumed counter to sampleIndex after a seek. Requires proof
	// the callback is stopped.
	SetPosition(sampleIndex int64, tok ring.StoppedToken)

	// FlushRing empties the ring buffer. Requires proof the callback is
	// stopped.
	FlushRing(tok ring.StoppedToken)

	// Close releases the sink's device resources.
	Close() error
}
