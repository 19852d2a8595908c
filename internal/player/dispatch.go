// ABOUTME: Dispatch routes one tokenised command line to the matching Player method
// ABOUTME: Arity and unknown-verb failures are reported as ACK WHAT, not ACK FAIL
package player

import "github.com/resonate-protocol/playd/internal/response"

// Dispatch executes one already-tokenised command line. tag is the
// line's first word (already split off by the caller); rest is the
// command verb followed by its arguments. id is used only by dump, to
// address its state lines back to the requester.
func (p *Player) Dispatch(id response.ClientId, tag string, rest []string) response.Response {
	if len(rest) == 0 {
		return response.Invalid(tag, "", "empty command")
	}

	cmd, args := rest[0], rest[1:]

	switch cmd {
	case "play":
		if len(args) != 0 {
			return response.Invalid(tag, cmd, "wrong number of arguments")
		}
		return p.SetPlaying(tag, true)
	case "stop":
		if len(args) != 0 {
			return response.Invalid(tag, cmd, "wrong number of arguments")
		}
		return p.SetPlaying(tag, false)
	case "end":
		if len(args) != 0 {
			return response.Invalid(tag, cmd, "wrong number of arguments")
		}
		return p.End(tag)
	case "eject":
		if len(args) != 0 {
			return response.Invalid(tag, cmd, "wrong number of arguments")
		}
		return p.Eject(tag)
	case "load":
		if len(args) != 1 {
			return response.Invalid(tag, cmd, "wrong number of arguments")
		}
		return p.Load(tag, args[0])
	case "pos":
		if len(args) != 1 {
			return response.Invalid(tag, cmd, "wrong number of arguments")
		}
		return p.Pos(tag, args[0])
	case "dump":
		if len(args) != 0 {
			return response.Invalid(tag, cmd, "wrong number of arguments")
		}
		return p.Dump(id, tag)
	case "quit":
		if len(args) != 0 {
			return response.Invalid(tag, cmd, "wrong number of arguments")
		}
		return p.Quit(tag)
	default:
		return response.Invalid(tag, cmd, "unknown command")
	}
}
