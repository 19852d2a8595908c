// ABOUTME: Player is the command-driven state machine owning at most one pipeline
// ABOUTME: It validates transitions, drives the per-tick update, and emits protocol responses
package player

import (
	"errors"
	"log"
	"strconv"
	"sync"

	"github.com/resonate-protocol/playd/internal/audio"
	"github.com/resonate-protocol/playd/internal/audiosource"
	"github.com/resonate-protocol/playd/internal/pipeline"
	"github.com/resonate-protocol/playd/internal/response"
)

// Protocol identity announced in the OHAI/IAMA greeting.
const (
	ProtocolVersion = "2"
	ServerName      = "playd"
	ServerVersion   = "1.0.0"
	RoleToken       = "player"
)

// SinkBuilder constructs the output device for a newly loaded source; it
// receives the source's format and the device id the Player was
// constructed with.
type SinkBuilder func(format audio.Format, deviceID int) (audio.Sink, error)

// Player owns an optional Pipeline (absent means "ejected") and is the
// sole entry point for the command surface: load, play, stop, pos, eject,
// end, dump, quit. Every exported method is safe to call concurrently:
// the reactor calls them from its accept loop, its update ticker, and one
// reader goroutine per connection, and the internal mutex runs one
// command at a time.
type Player struct {
	mu sync.Mutex

	deviceID  int
	sources   audiosource.Registry
	buildSink SinkBuilder
	io        response.Sink

	pipe *pipeline.Pipeline

	lastBroadcastSecond int64
	haveBroadcastSecond bool

	dead bool
}

// New constructs an ejected Player. SetIO must be called before any
// command can produce visible output, though commands are safe to run
// without it (responses are simply dropped).
func New(deviceID int, sources audiosource.Registry, buildSink SinkBuilder) *Player {
	return &Player{
		deviceID:  deviceID,
		sources:   sources,
		buildSink: buildSink,
	}
}

// SetIO attaches the response sink (invariably the reactor) that receives
// every response this Player emits from here on.
func (p *Player) SetIO(io response.Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.io = io
}

// State returns the Player's current state as a Sink state; an ejected
// Player reports audio.None.
func (p *Player) State() audio.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

func (p *Player) stateLocked() audio.State {
	if p.pipe == nil {
		return audio.None
	}
	return p.pipe.State()
}

// Update advances the pipeline one tick, detects end-of-file transitions,
// and broadcasts a throttled position update. It returns false once the
// Player has been told to quit, signalling the reactor to begin shutdown.
func (p *Player) Update() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pipe == nil {
		return !p.dead, nil
	}

	wasPlaying := p.pipe.State() == audio.Playing

	state, err := p.pipe.Update()
	if err != nil {
		return !p.dead, err
	}

	if state == audio.AtEnd && wasPlaying {
		p.broadcast(response.END)
		p.broadcast(response.STOP)
	}

	p.maybeBroadcastPos()

	return !p.dead, nil
}

// Load ejects any currently loaded file (silently; no EJECT broadcast,
// per the "eject-then-load" rule) and loads path, building a source from
// the extension registry and a sink via buildSink.
func (p *Player) Load(tag, path string) response.Response {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closePipelineLocked()

	src, err := p.sources.Open(path)
	if err != nil {
		return response.Failure(tag, "load", err.Error())
	}

	sink, err := p.buildSink(src.Format(), p.deviceID)
	if err != nil {
		_ = src.Close()
		return response.Failure(tag, "load", err.Error())
	}

	p.pipe = pipeline.New(src, sink)
	p.haveBroadcastSecond = false

	p.broadcast(response.FLOAD, path)
	if length := p.pipe.Length(); length != audio.UnknownLength {
		p.broadcast(response.LEN, strconv.FormatInt(length, 10))
	}

	return response.Success(tag, "load")
}

// Eject releases the current pipeline, if any. Ejecting while already
// ejected is a no-op success, not a failure.
func (p *Player) Eject(tag string) response.Response {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pipe == nil {
		return response.Success(tag, "eject")
	}

	p.closePipelineLocked()
	p.broadcast(response.EJECT)
	return response.Success(tag, "eject")
}

// SetPlaying implements both play (playing=true) and stop (playing=false).
func (p *Player) SetPlaying(tag string, playing bool) response.Response {
	p.mu.Lock()
	defer p.mu.Unlock()

	cmd := "stop"
	if playing {
		cmd = "play"
	}

	if p.pipe == nil {
		return response.Failure(tag, cmd, "no file loaded")
	}

	state := p.pipe.State()

	switch {
	case state == audio.AtEnd:
		return response.Failure(tag, cmd, "at end of file")
	case playing && state == audio.Playing:
		return response.Success(tag, cmd)
	case !playing && state == audio.Stopped:
		return response.Success(tag, cmd)
	case playing:
		if err := p.pipe.SetPlaying(true); err != nil {
			return response.Failure(tag, cmd, err.Error())
		}
		p.broadcast(response.PLAY)
		return response.Success(tag, cmd)
	default:
		if err := p.pipe.SetPlaying(false); err != nil {
			return response.Failure(tag, cmd, err.Error())
		}
		p.broadcast(response.STOP)
		return response.Success(tag, cmd)
	}
}

// Pos seeks to the microsecond offset encoded in posStr, stopping
// playback across the seek (resuming is left to a subsequent play).
func (p *Player) Pos(tag, posStr string) response.Response {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pipe == nil {
		return response.Failure(tag, "pos", "no file loaded")
	}

	micros, err := parsePos(posStr)
	if err != nil {
		return response.Invalid(tag, "pos", err.Error())
	}

	wasPlaying := p.pipe.State() == audio.Playing

	if err := p.pipe.SetPosition(micros); err != nil {
		return response.Failure(tag, "pos", err.Error())
	}

	if wasPlaying {
		p.broadcast(response.STOP)
	}
	p.broadcastPos(p.pipe.Position())

	return response.Success(tag, "pos")
}

// End implements the user-facing end command: stop and seek to 0. The
// internal end transition (observed when the pipeline runs dry during
// playback) is handled inline in Update and is not reachable via this
// method.
func (p *Player) End(tag string) response.Response {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pipe == nil {
		return response.Failure(tag, "end", "no file loaded")
	}

	wasPlaying := p.pipe.State() == audio.Playing

	if err := p.pipe.SetPosition(0); err != nil {
		return response.Failure(tag, "end", err.Error())
	}

	if wasPlaying {
		p.broadcast(response.STOP)
	}
	p.broadcastPos(0)

	return response.Success(tag, "end")
}

// Dump sends the Player's full current state to id alone, then returns
// the ACK for tag.
func (p *Player) Dump(id response.ClientId, tag string) response.Response {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.dumpTo(id)
	return response.Success(tag, "dump")
}

// Greet sends the connection-opening OHAI/IAMA handshake followed by a
// full dump, all addressed only to id.
func (p *Player) Greet(id response.ClientId) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.unicast(id, response.OHAI, ProtocolVersion, ServerName, ServerVersion)
	p.unicast(id, response.IAMA, RoleToken)
	p.dumpTo(id)
}

// Quit marks the Player dead; the next Update return tells the reactor to
// begin shutdown.
func (p *Player) Quit(tag string) response.Response {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.dead = true
	return response.Success(tag, "quit")
}

func (p *Player) dumpTo(id response.ClientId) {
	if p.pipe == nil {
		p.unicast(id, response.EJECT)
		return
	}

	p.unicast(id, response.FLOAD, p.pipe.File())
	if length := p.pipe.Length(); length != audio.UnknownLength {
		p.unicast(id, response.LEN, strconv.FormatInt(length, 10))
	}
	p.unicast(id, stateCode(p.pipe.State()))
	p.unicast(id, response.POS, strconv.FormatInt(p.pipe.Position(), 10))
}

func stateCode(state audio.State) response.Code {
	switch state {
	case audio.Playing:
		return response.PLAY
	case audio.AtEnd:
		return response.END
	default:
		return response.STOP
	}
}

// canBroadcastPos reports whether pos's whole-second component exceeds
// the last broadcast second, or no broadcast has happened yet.
func (p *Player) canBroadcastPos(pos int64) bool {
	sec := pos / 1_000_000
	return !p.haveBroadcastSecond || sec > p.lastBroadcastSecond
}

// broadcastPos unconditionally emits a POS broadcast and updates the
// throttle state; used both by the tick-driven path (after the throttle
// check passes) and by seeks (which always emit one POS).
func (p *Player) broadcastPos(pos int64) {
	p.broadcast(response.POS, strconv.FormatInt(pos, 10))
	p.lastBroadcastSecond = pos / 1_000_000
	p.haveBroadcastSecond = true
}

func (p *Player) maybeBroadcastPos() {
	if p.pipe == nil || p.pipe.State() == audio.AtEnd {
		// The final POS coincides with END; no further broadcasts follow.
		return
	}

	pos := p.pipe.Position()
	if p.canBroadcastPos(pos) {
		p.broadcastPos(pos)
	}
}

func (p *Player) closePipelineLocked() {
	if p.pipe == nil {
		return
	}
	if err := p.pipe.Close(); err != nil {
		log.Printf("player: error closing pipeline: %v", err)
	}
	p.pipe = nil
	p.haveBroadcastSecond = false
}

func (p *Player) broadcast(code response.Code, args ...string) {
	p.respond(response.Broadcast, response.NoRequest, code, args...)
}

func (p *Player) unicast(id response.ClientId, code response.Code, args ...string) {
	p.respond(id, response.NoRequest, code, args...)
}

func (p *Player) respond(id response.ClientId, tag string, code response.Code, args ...string) {
	if p.io == nil {
		return
	}
	r := response.New(tag, code)
	for _, a := range args {
		r = r.AddArg(a)
	}
	p.io.Respond(id, r)
}

func parsePos(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.New("not an integer")
	}
	if v < 0 {
		return 0, errors.New("not an integer")
	}
	return v, nil
}
