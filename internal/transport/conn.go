package transport

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/aio-mgr/aiomgr/internal/logging"
)

// Conn is a framed, deadline-aware session connection.
type Conn struct {
	conn   net.Conn
	framer *Framer
	addr   string

	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps an established connection with length-prefixed framing.
func NewConn(conn net.Conn, maxMessageSize uint32) *Conn {
	return &Conn{
		conn:   conn,
		framer: NewFramer(conn, maxMessageSize),
		addr:   conn.RemoteAddr().String(),
	}
}

// Dial opens a TCP connection to addr. The dial is bounded by timeout and ctx.
func Dial(ctx context.Context, addr string, timeout time.Duration, maxMessageSize uint32) (*Conn, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp4", addr)
	if err != nil {
		return nil, ClassifyNetworkError(err, "dial", addr)
	}
	return NewConn(conn, maxMessageSize), nil
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() string {
	return c.addr
}

// LocalAddr returns the local socket address.
func (c *Conn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// WriteFrame sends one frame, failing after timeout (0 = no deadline).
func (c *Conn) WriteFrame(data []byte, timeout time.Duration) error {
	if err := c.conn.SetWriteDeadline(deadlineFor(timeout)); err != nil {
		return ClassifyNetworkError(err, "write", c.addr)
	}
	if err := c.framer.WriteFrame(data); err != nil {
		return ClassifyNetworkError(err, "write", c.addr)
	}
	logging.LogFrame(c.addr, "out", data)
	return nil
}

// ReadFrame receives one frame, failing after timeout (0 = no deadline).
func (c *Conn) ReadFrame(timeout time.Duration) ([]byte, error) {
	if err := c.conn.SetReadDeadline(deadlineFor(timeout)); err != nil {
		return nil, ClassifyNetworkError(err, "read", c.addr)
	}
	data, err := c.framer.ReadFrame()
	if err != nil {
		return nil, ClassifyNetworkError(err, "read", c.addr)
	}
	logging.LogFrame(c.addr, "in", data)
	return data, nil
}

// RoundTrip writes req and waits for exactly one reply frame. The exchange
// is bounded by timeout and by ctx; cancelling ctx unblocks a pending read.
func (c *Conn) RoundTrip(ctx context.Context, req []byte, timeout time.Duration) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout = effectiveTimeout(ctx, timeout)
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := c.WriteFrame(req, timeout); err != nil {
		return nil, c.ctxErr(ctx, err)
	}
	resp, err := c.ReadFrame(timeout)
	if err != nil {
		return nil, c.ctxErr(ctx, err)
	}
	return resp, nil
}

// ctxErr prefers the context error when cancellation caused the failure.
func (c *Conn) ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &Error{Type: ErrTypeTimeout, Op: "roundtrip", Addr: c.addr, Err: ctxErr}
	}
	return err
}

// Close closes the connection. Safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func deadlineFor(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

// effectiveTimeout shortens timeout to the context deadline, if earlier.
func effectiveTimeout(ctx context.Context, timeout time.Duration) time.Duration {
	dl, ok := ctx.Deadline()
	if !ok {
		return timeout
	}
	remaining := time.Until(dl)
	if remaining <= 0 {
		remaining = time.Nanosecond
	}
	if timeout <= 0 || remaining < timeout {
		return remaining
	}
	return timeout
}
