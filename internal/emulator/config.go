package emulator

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/aio-mgr/aiomgr/internal/wire"
)

const (
	// DefaultName is the name announced when Config.Name is empty.
	DefaultName = "aio-emulator"

	// DefaultHost is the session listener address.
	DefaultHost = "127.0.0.1"

	// DefaultDiscoveryHost is the probe listener address.
	DefaultDiscoveryHost = "0.0.0.0"

	// DefaultIdleTimeout closes sessions that send nothing for this long.
	DefaultIdleTimeout = 5 * time.Minute

	// MDNSService is the service type advertised when Config.Advertise is set.
	MDNSService = "_aio._tcp"

	// MDNSDomain is the mDNS domain.
	MDNSDomain = "local."

	// EphemeralPort asks Start to bind any free port. Port 0 means the
	// same for the session listener; DiscoveryPort 0 means
	// wire.DefaultDiscoveryPort, where real devices listen.
	EphemeralPort = -1

	shutdownTimeout = 10 * time.Second
)

// Server errors.
var (
	// ErrNoToken is returned by New when Config.Token is empty.
	ErrNoToken = errors.New("emulator token is required")

	// ErrAlreadyRunning is returned by Start on a running server.
	ErrAlreadyRunning = errors.New("emulator already running")
)

// Config holds the emulator configuration.
type Config struct {
	Name          string
	Token         string
	Host          string // session listener IPv4 address
	Port          int    // 0 or EphemeralPort picks a free port on each Start
	DiscoveryHost string
	DiscoveryPort int // 0 means wire.DefaultDiscoveryPort; EphemeralPort picks a free port

	// Responder handles commands. Defaults to NewDefaultResponder(Name, Token).
	Responder Responder

	IdleTimeout time.Duration
	Advertise   bool   // register MDNSService via zeroconf
	CaptureDir  string // write session frames as JSONL (empty = disabled)
	MonitorAddr string // serve the WebSocket event feed (empty = disabled)
}

// withDefaults validates c and fills in defaults.
func (c Config) withDefaults() (Config, error) {
	if c.Token == "" {
		return c, ErrNoToken
	}
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.DiscoveryHost == "" {
		c.DiscoveryHost = DefaultDiscoveryHost
	}
	for _, h := range []string{c.Host, c.DiscoveryHost} {
		ip := net.ParseIP(h)
		if ip == nil || ip.To4() == nil {
			return c, fmt.Errorf("invalid IPv4 address %q", h)
		}
	}
	if c.Port < EphemeralPort || c.Port > 65535 {
		return c, fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DiscoveryPort < EphemeralPort || c.DiscoveryPort > 65535 {
		return c, fmt.Errorf("invalid discovery port %d", c.DiscoveryPort)
	}
	switch c.DiscoveryPort {
	case 0:
		c.DiscoveryPort = wire.DefaultDiscoveryPort
	case EphemeralPort:
		c.DiscoveryPort = 0
	}
	if c.Port == EphemeralPort {
		c.Port = 0
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.Responder == nil {
		c.Responder = NewDefaultResponder(c.Name, c.Token)
	}
	return c, nil
}
