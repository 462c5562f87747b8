package wire

import (
	"errors"
	"fmt"
	"reflect"
)

const (
	// Version is the protocol version carried in discovery datagrams.
	Version = 1

	// DefaultDiscoveryPort is the UDP port devices listen on for probes.
	DefaultDiscoveryPort = 5311

	// DefaultSessionPort is the conventional TCP session port.
	DefaultSessionPort = 5312

	// MaxDatagramSize bounds probe and announcement datagrams (stays under MTU).
	MaxDatagramSize = 1024
)

const (
	kindProbe    = "probe"
	kindAnnounce = "announce"
)

var mapStringAnyType = reflect.TypeOf(map[string]any(nil))

// Wire errors.
var (
	// ErrMalformed indicates data that cannot be decoded as a protocol message.
	ErrMalformed = errors.New("malformed message")

	// ErrUnexpectedKind indicates a datagram of the wrong message kind.
	ErrUnexpectedKind = errors.New("unexpected message kind")
)

// Probe is the discovery request broadcast by clients.
type Probe struct {
	Kind    string `cbor:"kind"`
	Version int    `cbor:"v"`
	ID      string `cbor:"id"`
	Pattern string `cbor:"pattern"`
	Fold    bool   `cbor:"fold,omitempty"` // case-insensitive match
}

// NewProbe builds a probe for pattern with the given nonce.
func NewProbe(id, pattern string, caseSensitive bool) *Probe {
	return &Probe{
		Kind:    kindProbe,
		Version: Version,
		ID:      id,
		Pattern: pattern,
		Fold:    !caseSensitive,
	}
}

// Announcement is a device's answer to a probe.
type Announcement struct {
	Kind    string `cbor:"kind"`
	Version int    `cbor:"v"`
	ID      string `cbor:"id"`
	Name    string `cbor:"name"`
	Host    string `cbor:"host,omitempty"`
	Port    int    `cbor:"port"`
}

// NewAnnouncement builds the reply to the probe with the given id.
func NewAnnouncement(id, name, host string, port int) *Announcement {
	return &Announcement{
		Kind:    kindAnnounce,
		Version: Version,
		ID:      id,
		Name:    name,
		Host:    host,
		Port:    port,
	}
}

// EncodeProbe encodes a probe datagram.
func EncodeProbe(p *Probe) ([]byte, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("invalid probe: empty id")
	}
	return Marshal(p)
}

// DecodeProbe decodes and validates a probe datagram.
func DecodeProbe(data []byte) (*Probe, error) {
	var p Probe
	if err := Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p.Kind != kindProbe {
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedKind, p.Kind)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%w: probe without id", ErrMalformed)
	}
	return &p, nil
}

// EncodeAnnouncement encodes an announcement datagram.
func EncodeAnnouncement(a *Announcement) ([]byte, error) {
	if a.Port <= 0 || a.Port > 65535 {
		return nil, fmt.Errorf("invalid announcement: port %d out of range", a.Port)
	}
	return Marshal(a)
}

// DecodeAnnouncement decodes and validates an announcement datagram.
func DecodeAnnouncement(data []byte) (*Announcement, error) {
	var a Announcement
	if err := Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if a.Kind != kindAnnounce {
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedKind, a.Kind)
	}
	if a.Port <= 0 || a.Port > 65535 {
		return nil, fmt.Errorf("%w: port %d out of range", ErrMalformed, a.Port)
	}
	return &a, nil
}

// Op identifies a session request.
type Op string

const (
	OpConnect    Op = "connect"
	OpCommand    Op = "command"
	OpDisconnect Op = "disconnect"
)

// Request is a client-to-device session message.
type Request struct {
	Op      Op     `cbor:"op"`
	ID      uint32 `cbor:"id"`
	Token   string `cbor:"token,omitempty"`
	Command string `cbor:"command,omitempty"`
}

// Validate checks that the request is well formed for its op.
func (r *Request) Validate() error {
	switch r.Op {
	case OpConnect, OpDisconnect:
		return nil
	case OpCommand:
		if r.Command == "" {
			return fmt.Errorf("command request without command")
		}
		return nil
	case "":
		return fmt.Errorf("request without op")
	default:
		return fmt.Errorf("unknown op %q", r.Op)
	}
}

// EncodeRequest encodes a session request.
func EncodeRequest(r *Request) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return Marshal(r)
}

// DecodeRequest decodes and validates a session request.
func DecodeRequest(data []byte) (*Request, error) {
	var r Request
	if err := Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &r, nil
}
