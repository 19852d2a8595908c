// ABOUTME: Error taxonomy for playd's command and audio subsystems
// ABOUTME: Wraps plain errors with a Kind so the player can map them to ACK codes
package playerr

import "fmt"

// Kind classifies an error for the purposes of ACK response generation.
type Kind int

const (
	// NoAudio is returned when a state-requiring command arrives while ejected.
	NoAudio Kind = iota
	// BadFormat is returned when a loaded file's format can't be accepted by the sink.
	BadFormat
	// DecoderBuild is returned when a source builder refuses a file.
	DecoderBuild
	// NoDecoder is returned when no builder is registered for an extension.
	NoDecoder
	// SeekRange is returned when a seek produces an unusable position.
	SeekRange
	// BadCommand is returned for an unknown verb, wrong arity, or malformed argument.
	BadCommand
	// Network is returned for bind/listen failures.
	Network
	// Internal is returned for invariant violations.
	Internal
)

func (k Kind) String() string {
	switch k {
	case NoAudio:
		return "no audio loaded"
	case BadFormat:
		return "unsupported format"
	case DecoderBuild:
		return "decoder build failed"
	case NoDecoder:
		return "no decoder"
	case SeekRange:
		return "seek out of range"
	case BadCommand:
		return "bad command"
	case Network:
		return "network error"
	default:
		return "internal error"
	}
}

// Error is a Kind-tagged error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given Kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given Kind around an underlying error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// As extracts a *Error from err when err itself is one. It does not
// unwrap: a *Error wrapped inside another error is not found.
func As(err error) (*Error, bool) {
	if e, ok := err.(*Error); ok {
		return e, true
	}
	return nil, false
}
