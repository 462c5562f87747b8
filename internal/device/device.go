package device

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aio-mgr/aiomgr/internal/logging"
	"github.com/aio-mgr/aiomgr/internal/transport"
	"github.com/aio-mgr/aiomgr/internal/wire"
)

// State errors.
var (
	// ErrNotConnected is returned by Send when no session is open.
	ErrNotConnected = errors.New("device not connected")

	// ErrAlreadyConnected is returned by Connect when a session is open.
	ErrAlreadyConnected = errors.New("device already connected")
)

// Device is a handle on one AIO endpoint. Its address never changes.
// All operations on a Device are serialized.
type Device struct {
	addr netip.AddrPort
	opts options

	mu     sync.Mutex
	conn   *transport.Conn
	nextID uint32
}

// New returns a handle for the device at host:port. host must be an IPv4
// address and port must be in 1..65535. No connection is made.
func New(host string, port int, opts ...Option) (*Device, error) {
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return nil, fmt.Errorf("invalid device host %q: %w", host, err)
	}
	ip = ip.Unmap()
	if !ip.Is4() {
		return nil, fmt.Errorf("invalid device host %q: not an IPv4 address", host)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid device port %d: must be 1-65535", port)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Device{
		addr: netip.AddrPortFrom(ip, uint16(port)),
		opts: o,
	}, nil
}

// Parse builds a Device from "host:port".
func Parse(hostport string, opts ...Option) (*Device, error) {
	host, p, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, fmt.Errorf("invalid device address %q: %w", hostport, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return nil, fmt.Errorf("invalid device port %q: %w", p, err)
	}
	return New(host, port, opts...)
}

// Addr returns the device address.
func (d *Device) Addr() netip.AddrPort { return d.addr }

// Host returns the device IPv4 address as a string.
func (d *Device) Host() string { return d.addr.Addr().String() }

// Port returns the device TCP port.
func (d *Device) Port() int { return int(d.addr.Port()) }

// Name returns the advertised name, or "" when the device was addressed directly.
func (d *Device) Name() string { return d.opts.name }

// String returns "name@host:port", or "host:port" for unnamed devices.
func (d *Device) String() string {
	if d.opts.name == "" {
		return d.addr.String()
	}
	return d.opts.name + "@" + d.addr.String()
}

// Connected reports whether a session is open.
func (d *Device) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn != nil
}

// Connect opens a session and authenticates with token. On OKAY the session
// is kept; on any other status the connection is closed and the response is
// returned with a nil error.
func (d *Device) Connect(ctx context.Context, token string) (wire.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		return nil, ErrAlreadyConnected
	}

	conn, err := d.dial(ctx)
	if err != nil {
		return nil, err
	}
	logging.LogConnection(conn.RemoteAddr(), "dialed")

	d.conn = conn
	d.nextID = 0

	resp, err := d.roundTrip(ctx, &wire.Request{Op: wire.OpConnect, Token: token})
	if err != nil {
		d.dropLocked()
		return nil, err
	}
	if !resp.OK() {
		logging.Warn("Connect rejected",
			zap.String("device", d.String()),
			zap.String("status", string(resp.Status())))
		d.dropLocked()
		return resp, nil
	}

	logging.Info("Session established",
		zap.String("device", d.String()),
		zap.String("session", resp.String(wire.KeySession)))
	return resp, nil
}

// dial connects with exponential backoff between retryable failures.
func (d *Device) dial(ctx context.Context) (*transport.Conn, error) {
	delay := d.opts.retryDelay
	for attempt := 1; ; attempt++ {
		conn, err := transport.Dial(ctx, d.addr.String(), d.opts.dialTimeout, d.opts.maxMessageSize)
		if err == nil || attempt >= d.opts.dialAttempts || !transport.IsRetryable(err) {
			return conn, err
		}

		logging.Debug("Dial failed, retrying",
			zap.String("device", d.String()),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
		delay = min(delay*2, MaxRetryDelay)
	}
}

// Send transmits command and returns the device's single response.
func (d *Device) Send(ctx context.Context, command string) (wire.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil, ErrNotConnected
	}

	resp, err := d.roundTrip(ctx, &wire.Request{Op: wire.OpCommand, Command: command})
	if err != nil {
		d.dropLocked()
		return nil, err
	}
	return resp, nil
}

// Disconnect ends the session. It is idempotent: without a session it
// returns a local OKAY response with detail "not connected".
func (d *Device) Disconnect(ctx context.Context) (wire.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return wire.OK(wire.KeyDetail, "not connected"), nil
	}

	resp, err := d.roundTrip(ctx, &wire.Request{Op: wire.OpDisconnect})
	d.dropLocked()
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// roundTrip sends req on the open session and decodes the reply.
// Caller must hold d.mu.
func (d *Device) roundTrip(ctx context.Context, req *wire.Request) (wire.Response, error) {
	d.nextID++
	req.ID = d.nextID

	data, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	reply, err := d.conn.RoundTrip(ctx, data, d.opts.ioTimeout)
	if err != nil {
		return nil, err
	}

	resp, err := wire.DecodeResponse(reply)
	if err != nil {
		return nil, transport.NewProtocolError(string(req.Op), d.conn.RemoteAddr(), err)
	}
	if id, ok := resp.Uint(wire.KeyID); ok && id != uint64(req.ID) {
		return nil, transport.NewProtocolError(string(req.Op), d.conn.RemoteAddr(),
			fmt.Errorf("response id %d does not match request id %d", id, req.ID))
	}

	logging.Debug("Exchange complete",
		zap.String("device", d.String()),
		zap.String("op", string(req.Op)),
		zap.Uint32("id", req.ID),
		zap.String("response", resp.Summary()))
	return resp, nil
}

// dropLocked closes the session connection. Caller must hold d.mu.
func (d *Device) dropLocked() {
	if d.conn == nil {
		return
	}
	logging.LogConnection(d.conn.RemoteAddr(), "closed")
	_ = d.conn.Close()
	d.conn = nil
}
