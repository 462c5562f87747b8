package transport

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer answers every frame with the same payload until the peer closes.
func echoServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				f := NewFramer(c, 0)
				for {
					data, err := f.ReadFrame()
					if err != nil {
						return
					}
					if err := f.WriteFrame(data); err != nil {
						return
					}
				}
			}(c)
		}
	}()
	return ln.Addr().String()
}

// silentServer accepts connections and never replies.
func silentServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	return ln.Addr().String()
}

func TestConnRoundTrip(t *testing.T) {
	addr := echoServer(t)

	c, err := Dial(context.Background(), addr, time.Second, 0)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, addr, c.RemoteAddr())

	resp, err := c.RoundTrip(context.Background(), []byte("hello"), time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), resp)

	resp, err = c.RoundTrip(context.Background(), []byte("again"), time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("again"), resp)
}

func TestConnReadTimeout(t *testing.T) {
	addr := silentServer(t)

	c, err := Dial(context.Background(), addr, time.Second, 0)
	require.NoError(t, err)
	defer c.Close()

	start := time.Now()
	_, err = c.RoundTrip(context.Background(), []byte("ping"), 100*time.Millisecond)
	require.Error(t, err)
	assert.True(t, IsTimeout(err), "expected timeout, got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestConnRoundTripContextCancel(t *testing.T) {
	addr := silentServer(t)

	c, err := Dial(context.Background(), addr, time.Second, 0)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err = c.RoundTrip(ctx, []byte("ping"), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestConnRoundTripCancelledBefore(t *testing.T) {
	addr := echoServer(t)

	c, err := Dial(context.Background(), addr, time.Second, 0)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.RoundTrip(ctx, []byte("ping"), time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConnPeerClosed(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		c.Close()
	}()

	c, err := Dial(context.Background(), ln.Addr().String(), time.Second, 0)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.ReadFrame(time.Second)
	require.Error(t, err)
	assert.True(t, IsClosed(err), "expected closed, got %v", err)
}

func TestDialRefused(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = Dial(context.Background(), addr, time.Second, 0)
	require.Error(t, err)

	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, ErrTypeConnectionRefused, terr.Type)
	assert.Equal(t, "dial", terr.Op)
}

func TestConnCloseTwice(t *testing.T) {
	addr := echoServer(t)

	c, err := Dial(context.Background(), addr, time.Second, 0)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestEffectiveTimeout(t *testing.T) {
	assert.Equal(t, time.Second, effectiveTimeout(context.Background(), time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	got := effectiveTimeout(ctx, time.Minute)
	assert.LessOrEqual(t, got, 50*time.Millisecond)
	assert.Greater(t, got, time.Duration(0))

	got = effectiveTimeout(ctx, 0)
	assert.LessOrEqual(t, got, 50*time.Millisecond)
}

func TestListenProbeLoopback(t *testing.T) {
	responder, err := ListenResponder("127.0.0.1", 0)
	require.NoError(t, err)
	defer responder.Close()
	port := responder.LocalAddr().(*net.UDPAddr).Port

	ep := Endpoint{Name: "lo", Local: net.IPv4(127, 0, 0, 1), Target: net.IPv4(127, 0, 0, 1)}
	probe, err := ListenProbe(ep)
	require.NoError(t, err)
	defer probe.Close()

	_, err = probe.WriteToUDP([]byte("probe"), ep.TargetAddr(port))
	require.NoError(t, err)

	buf := make([]byte, 64)
	n, from, err := ReadDatagram(responder, buf, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "probe", string(buf[:n]))

	_, err = responder.WriteToUDP([]byte("answer"), from)
	require.NoError(t, err)

	n, _, err = ReadDatagram(probe, buf, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "answer", string(buf[:n]))
}

func TestReadDatagramDeadline(t *testing.T) {
	conn, err := ListenResponder("127.0.0.1", 0)
	require.NoError(t, err)
	defer conn.Close()

	_, _, err = ReadDatagram(conn, make([]byte, 16), time.Now().Add(50*time.Millisecond))
	require.Error(t, err)
	assert.True(t, IsTimeout(ClassifyNetworkError(err, "read", "")))
}

func TestListenResponderBadHost(t *testing.T) {
	_, err := ListenResponder("not-an-ip", 0)
	assert.Error(t, err)
	_, err = ListenResponder("::1", 0)
	assert.Error(t, err)
}
