package emulator

import (
	"crypto/subtle"
	"strings"

	"github.com/aio-mgr/aiomgr/internal/version"
	"github.com/aio-mgr/aiomgr/internal/wire"
)

// Responder decides how the emulator answers a session.
type Responder interface {
	// Name is the device name announced to discovery probes.
	Name() string

	// Authenticate reports whether token opens a session.
	Authenticate(token string) bool

	// HandleCommand answers one command of an authenticated session.
	HandleCommand(command string) wire.Response
}

type defaultResponder struct {
	name  string
	token string
}

// NewDefaultResponder returns a Responder that accepts token and supports:
//
//	auth <token>   OKAY when the token matches, DENIED otherwise
//	ping           OKAY reply=pong
//	info           OKAY name=<name> version=<version>
//	echo <text>    OKAY echo=<text>
//
// Anything else is answered with ERROR.
func NewDefaultResponder(name, token string) Responder {
	return &defaultResponder{name: name, token: token}
}

func (r *defaultResponder) Name() string { return r.name }

func (r *defaultResponder) Authenticate(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), []byte(r.token)) == 1
}

func (r *defaultResponder) HandleCommand(command string) wire.Response {
	verb, arg, _ := strings.Cut(strings.TrimSpace(command), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(verb) {
	case "auth":
		if r.Authenticate(arg) {
			return wire.OK()
		}
		return wire.NewResponse(wire.StatusDenied, wire.KeyError, "invalid token")
	case "ping":
		return wire.OK("reply", "pong")
	case "info":
		return wire.OK("name", r.name, "version", version.Version)
	case "echo":
		return wire.OK("echo", arg)
	case "":
		return wire.Errorf("empty command")
	default:
		return wire.Errorf("unknown command %q", verb)
	}
}
