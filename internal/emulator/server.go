package emulator

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/aio-mgr/aiomgr/internal/logging"
	"github.com/aio-mgr/aiomgr/internal/monitor"
	"github.com/aio-mgr/aiomgr/internal/transport"
)

// Server is an emulated AIO device.
type Server struct {
	config    Config
	responder Responder

	mu       sync.Mutex
	running  bool
	listener net.Listener
	udp      *net.UDPConn
	mdns     *zeroconf.Server
	hub      *monitor.Hub
	httpSrv  *http.Server
	capture  *captureWriter
	sessions map[string]*session
	wg       sync.WaitGroup

	port          int
	discoveryPort int
	monitorAddr   string
}

// New validates config and returns a stopped server.
func New(config Config) (*Server, error) {
	cfg, err := config.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Server{
		config:    cfg,
		responder: cfg.Responder,
		sessions:  make(map[string]*session),
	}, nil
}

// Start binds the session listener and the discovery socket, then the
// optional mDNS registration and monitor. On any failure everything already
// opened is closed again. A stopped server can be started again.
func (s *Server) Start() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	var (
		ln      net.Listener
		udp     *net.UDPConn
		mdns    *zeroconf.Server
		hub     *monitor.Hub
		httpSrv *http.Server
		mon     net.Listener
		capture *captureWriter
	)
	defer func() {
		if err == nil {
			return
		}
		if httpSrv != nil {
			_ = httpSrv.Close()
		} else if mon != nil {
			_ = mon.Close()
		}
		if hub != nil {
			hub.Close()
		}
		if mdns != nil {
			mdns.Shutdown()
		}
		if udp != nil {
			_ = udp.Close()
		}
		if ln != nil {
			_ = ln.Close()
		}
	}()

	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	ln, err = net.Listen("tcp4", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	udp, err = transport.ListenResponder(s.config.DiscoveryHost, s.config.DiscoveryPort)
	if err != nil {
		return err
	}
	discoveryPort := udp.LocalAddr().(*net.UDPAddr).Port

	if s.config.Advertise {
		mdns, err = zeroconf.Register(s.config.Name, MDNSService, MDNSDomain, port, s.txtRecords(), nil)
		if err != nil {
			return fmt.Errorf("failed to register mDNS service: %w", err)
		}
	}

	if s.config.CaptureDir != "" {
		capture, err = newCaptureWriter(s.config.CaptureDir)
		if err != nil {
			return err
		}
	}

	monitorAddr := ""
	if s.config.MonitorAddr != "" {
		mon, err = net.Listen("tcp", s.config.MonitorAddr)
		if err != nil {
			return fmt.Errorf("failed to listen for monitor on %s: %w", s.config.MonitorAddr, err)
		}
		monitorAddr = mon.Addr().String()
		hub = monitor.NewHub()
		mux := http.NewServeMux()
		mux.Handle("/events", hub)
		httpSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	s.listener = ln
	s.udp = udp
	s.mdns = mdns
	s.hub = hub
	s.httpSrv = httpSrv
	s.capture = capture
	s.port = port
	s.discoveryPort = discoveryPort
	s.monitorAddr = monitorAddr
	s.running = true

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(ln)
	}()
	go func() {
		defer s.wg.Done()
		s.discoveryLoop(udp)
	}()
	if httpSrv != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := httpSrv.Serve(mon); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Monitor server failed", zap.Error(err))
			}
		}()
	}

	logging.Info("Emulator started",
		zap.String("name", s.config.Name),
		zap.String("addr", s.addressLocked()),
		zap.Int("discovery_port", discoveryPort),
		zap.Bool("mdns", mdns != nil),
		zap.String("monitor", monitorAddr),
	)
	return nil
}

// Stop closes every socket and session and waits for the server goroutines.
// It is safe to call on a server that is not running.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false

	var errs error
	errs = multierr.Append(errs, s.listener.Close())
	errs = multierr.Append(errs, s.udp.Close())
	for id, sess := range s.sessions {
		logging.Debug("Closing active session", zap.String("session", id))
		_ = sess.conn.Close()
	}
	mdns, hub, httpSrv, capture := s.mdns, s.hub, s.httpSrv, s.capture
	s.listener, s.udp, s.mdns, s.hub, s.httpSrv = nil, nil, nil, nil, nil
	s.mu.Unlock()

	if mdns != nil {
		mdns.Shutdown()
	}
	if httpSrv != nil {
		errs = multierr.Append(errs, httpSrv.Close())
	}
	if hub != nil {
		hub.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		logging.Warn("Emulator shutdown timeout, abandoning goroutines")
	}

	if capture != nil {
		errs = multierr.Append(errs, capture.Close())
	}

	s.mu.Lock()
	s.capture = nil
	s.mu.Unlock()

	logging.Info("Emulator stopped", zap.String("name", s.config.Name))
	return errs
}

// Running reports whether the server is started.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Name returns the announced device name.
func (s *Server) Name() string { return s.responder.Name() }

// Token returns the session token.
func (s *Server) Token() string { return s.config.Token }

// Host returns the session listener address.
func (s *Server) Host() string { return s.config.Host }

// Port returns the bound session port, or the configured port before the
// first Start.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == 0 {
		return s.config.Port
	}
	return s.port
}

// DiscoveryPort returns the bound probe port, or the configured port before
// the first Start.
func (s *Server) DiscoveryPort() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.discoveryPort == 0 {
		return s.config.DiscoveryPort
	}
	return s.discoveryPort
}

// Address returns the session endpoint as host:port.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addressLocked()
}

func (s *Server) addressLocked() string {
	port := s.port
	if port == 0 {
		port = s.config.Port
	}
	return net.JoinHostPort(s.config.Host, strconv.Itoa(port))
}

// MonitorAddr returns the bound monitor address, or "" when disabled.
func (s *Server) MonitorAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.monitorAddr
}

// ActiveSessions returns the number of open sessions.
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// isLocalAddr is replaced in tests.
var isLocalAddr = transport.IsLocalAddr

// announceHost is the address placed in an announcement answering a probe
// from src (nil for mDNS, whose audience is unknown). An empty host tells
// the client to use the datagram source. That happens for an unspecified
// listener address, and for a loopback listener answering a peer on
// another machine.
func (s *Server) announceHost(src net.IP) string {
	ip := net.ParseIP(s.config.Host)
	switch {
	case ip == nil:
		return s.config.Host
	case ip.IsUnspecified():
		return ""
	case ip.IsLoopback() && !isLocalAddr(src):
		return ""
	}
	return s.config.Host
}

func (s *Server) txtRecords() []string {
	return []string{
		"name=" + s.responder.Name(),
		"host=" + s.announceHost(nil),
	}
}

// publish forwards ev to the monitor, if enabled.
func (s *Server) publish(ev monitor.Event) {
	s.mu.Lock()
	hub := s.hub
	s.mu.Unlock()
	if hub != nil {
		hub.Publish(ev)
	}
}

// acceptLoop accepts sessions until ln is closed.
func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			continue
		}

		sess := newSession(s, conn)
		if !s.track(sess) {
			_ = conn.Close()
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(sess)
			sess.serve()
		}()
	}
}

// track registers sess unless the server is stopping.
func (s *Server) track(sess *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	s.sessions[sess.id] = sess
	return true
}

func (s *Server) untrack(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
}

// recordFrame appends a frame to the capture file, if enabled.
func (s *Server) recordFrame(sess *session, direction, op string, payload []byte) {
	s.mu.Lock()
	capture := s.capture
	s.mu.Unlock()
	if capture != nil {
		capture.Record(sess.id, sess.remote, direction, op, payload)
	}
}
