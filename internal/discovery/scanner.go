package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/aio-mgr/aiomgr/internal/device"
	"github.com/aio-mgr/aiomgr/internal/logging"
	"github.com/aio-mgr/aiomgr/internal/pattern"
	"github.com/aio-mgr/aiomgr/internal/transport"
	"github.com/aio-mgr/aiomgr/internal/wire"
)

const (
	// DefaultTimeout is how long each attempt waits for announcements.
	DefaultTimeout = time.Second

	// DefaultTries is the number of probe attempts.
	DefaultTries = 3
)

// Scanner holds discovery settings.
type Scanner struct {
	// Interfaces selects where to probe. Empty means every up,
	// broadcast-capable IPv4 interface.
	Interfaces []string

	// Timeout is the wait per attempt.
	Timeout time.Duration

	// Tries is the number of attempts.
	Tries int

	// Port is the UDP port devices listen on for probes.
	Port int

	// CaseSensitive selects case-sensitive name matching.
	CaseSensitive bool

	// MDNS also browses for _aio._tcp services and merges the results.
	MDNS bool

	// DeviceOptions are applied to every discovered device.
	DeviceOptions []device.Option
}

// NewScanner creates a scanner with default settings.
func NewScanner() *Scanner {
	return &Scanner{
		Timeout:       DefaultTimeout,
		Tries:         DefaultTries,
		Port:          wire.DefaultDiscoveryPort,
		CaseSensitive: true,
	}
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithInterfaces restricts probing to the given interface selectors.
func WithInterfaces(ifaces ...string) Option {
	return func(s *Scanner) { s.Interfaces = ifaces }
}

// WithTimeout sets the per-attempt wait.
func WithTimeout(d time.Duration) Option {
	return func(s *Scanner) { s.Timeout = d }
}

// WithTries sets the number of attempts.
func WithTries(n int) Option {
	return func(s *Scanner) { s.Tries = n }
}

// WithPort sets the destination UDP port for probes.
func WithPort(port int) Option {
	return func(s *Scanner) { s.Port = port }
}

// WithCaseSensitive selects case-sensitive (true) or case-insensitive matching.
func WithCaseSensitive(cs bool) Option {
	return func(s *Scanner) { s.CaseSensitive = cs }
}

// WithMDNS enables merging mDNS browse results.
func WithMDNS(enabled bool) Option {
	return func(s *Scanner) { s.MDNS = enabled }
}

// WithDeviceOptions sets options applied to every discovered device.
func WithDeviceOptions(opts ...device.Option) Option {
	return func(s *Scanner) { s.DeviceOptions = opts }
}

// Discover runs a scan with default settings adjusted by opts.
func Discover(ctx context.Context, pattern string, opts ...Option) ([]*device.Device, error) {
	s := NewScanner()
	for _, opt := range opts {
		opt(s)
	}
	return s.Discover(ctx, pattern)
}

func (s *Scanner) validate() error {
	if s.Timeout <= 0 {
		return fmt.Errorf("invalid discovery timeout %s", s.Timeout)
	}
	if s.Tries < 1 {
		return fmt.Errorf("invalid discovery tries %d", s.Tries)
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("invalid discovery port %d", s.Port)
	}
	return nil
}

// probeSocket is one open endpoint.
type probeSocket struct {
	ep   transport.Endpoint
	conn *net.UDPConn
}

// Discover finds devices whose name matches the glob pattern. An empty
// result is not an error; an error is returned only for invalid settings or
// when no probe socket could be opened.
func (s *Scanner) Discover(ctx context.Context, pat string) ([]*device.Device, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	matcher, err := pattern.Compile(pat, s.CaseSensitive)
	if err != nil {
		return nil, err
	}

	endpoints, err := transport.ResolveEndpoints(s.Interfaces)
	if err != nil {
		return nil, err
	}

	var (
		sockets []probeSocket
		errs    error
	)
	for _, ep := range endpoints {
		conn, err := transport.ListenProbe(ep)
		if err != nil {
			logging.Warn("Skipping interface", zap.String("endpoint", ep.String()), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		sockets = append(sockets, probeSocket{ep: ep, conn: conn})
	}
	defer func() {
		for _, ps := range sockets {
			_ = ps.conn.Close()
		}
	}()
	if len(sockets) == 0 {
		return nil, fmt.Errorf("%w: %w", transport.ErrNoInterfaces, errs)
	}

	// Every attempt's nonce stays valid for the whole call, so a late answer
	// to an earlier attempt still counts.
	nonces := make(map[string]struct{}, s.Tries)
	order := make([]string, s.Tries)
	for i := range order {
		order[i] = uuid.NewString()
		nonces[order[i]] = struct{}{}
	}

	logging.Debug("Starting discovery",
		zap.String("pattern", matcher.String()),
		zap.Bool("case_sensitive", s.CaseSensitive),
		zap.Int("sockets", len(sockets)),
		zap.Int("tries", s.Tries),
		zap.Duration("timeout", s.Timeout))

	results := newResultSet()
	var errMu sync.Mutex

	for attempt, nonce := range order {
		if ctx.Err() != nil {
			break
		}

		data, err := wire.EncodeProbe(wire.NewProbe(nonce, pat, s.CaseSensitive))
		if err != nil {
			return nil, err
		}
		deadline := time.Now().Add(s.Timeout)

		var wg sync.WaitGroup
		for _, ps := range sockets {
			wg.Add(1)
			go func(ps probeSocket) {
				defer wg.Done()
				if err := s.attempt(ctx, ps, data, deadline, nonces, matcher, results); err != nil {
					errMu.Lock()
					errs = multierr.Append(errs, err)
					errMu.Unlock()
				}
			}(ps)
		}
		wg.Wait()

		logging.Debug("Discovery attempt finished",
			zap.Int("attempt", attempt+1),
			zap.Int("found", len(results.list())))
	}

	if errs != nil {
		logging.Debug("Discovery completed with interface errors", zap.Error(errs))
	}

	if s.MDNS && ctx.Err() == nil {
		found, err := BrowseMDNS(ctx, pat, s.CaseSensitive, s.Timeout, s.DeviceOptions...)
		if err != nil {
			logging.Warn("mDNS browse failed", zap.Error(err))
		}
		for _, dev := range found {
			results.add(dev)
		}
	}

	return results.list(), nil
}

// attempt sends one probe on ps and gathers answers until deadline.
func (s *Scanner) attempt(ctx context.Context, ps probeSocket, probe []byte, deadline time.Time,
	nonces map[string]struct{}, matcher *pattern.Matcher, results *resultSet) error {

	target := ps.ep.TargetAddr(s.Port)
	if _, err := ps.conn.WriteToUDP(probe, target); err != nil {
		err = transport.ClassifyNetworkError(err, "probe", target.String())
		logging.Warn("Failed to send probe", zap.String("endpoint", ps.ep.String()), zap.Error(err))
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = ps.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, wire.MaxDatagramSize)
	for {
		n, from, err := transport.ReadDatagram(ps.conn, buf, deadline)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if transport.IsTimeout(transport.ClassifyNetworkError(err, "read", "")) {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return transport.ClassifyNetworkError(err, "read", ps.ep.String())
		}

		ann, err := wire.DecodeAnnouncement(buf[:n])
		if err != nil {
			logging.Debug("Ignoring datagram", zap.String("from", from.String()), zap.Error(err))
			continue
		}
		if _, ok := nonces[ann.ID]; !ok {
			logging.Debug("Ignoring stale announcement", zap.String("from", from.String()))
			continue
		}
		if !matcher.Match(ann.Name) {
			continue
		}

		dev, err := s.deviceFor(ann, from)
		if err != nil {
			logging.Debug("Ignoring announcement", zap.String("from", from.String()), zap.Error(err))
			continue
		}
		if results.add(dev) {
			logging.Info("Discovered device",
				zap.String("device", dev.String()),
				zap.String("endpoint", ps.ep.Name))
		}
	}
}

// deviceFor builds the device an announcement describes. An empty host
// means the datagram source address.
func (s *Scanner) deviceFor(ann *wire.Announcement, from *net.UDPAddr) (*device.Device, error) {
	host := ann.Host
	if host == "" {
		host = from.IP.String()
	}
	opts := append([]device.Option{device.WithName(ann.Name)}, s.DeviceOptions...)
	return device.New(host, ann.Port, opts...)
}
