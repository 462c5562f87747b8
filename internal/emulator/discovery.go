package emulator

import (
	"errors"
	"net"

	"go.uber.org/zap"

	"github.com/aio-mgr/aiomgr/internal/logging"
	"github.com/aio-mgr/aiomgr/internal/monitor"
	"github.com/aio-mgr/aiomgr/internal/pattern"
	"github.com/aio-mgr/aiomgr/internal/transport"
	"github.com/aio-mgr/aiomgr/internal/wire"
)

// discoveryLoop answers probes on conn until it is closed.
func (s *Server) discoveryLoop(conn *net.UDPConn) {
	buf := make([]byte, wire.MaxDatagramSize)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logging.Warn("Discovery read failed", zap.Error(err))
			continue
		}

		probe, err := wire.DecodeProbe(buf[:n])
		if err != nil {
			logging.Debug("Ignoring datagram",
				zap.String("from", from.String()),
				zap.Error(err))
			continue
		}

		s.answerProbe(conn, from, probe)
	}
}

func (s *Server) answerProbe(conn *net.UDPConn, from *net.UDPAddr, probe *wire.Probe) {
	name := s.responder.Name()
	matched := pattern.Match(probe.Pattern, name, !probe.Fold)

	logging.Debug("Probe received",
		zap.String("from", from.String()),
		zap.String("pattern", probe.Pattern),
		zap.Bool("fold", probe.Fold),
		zap.Bool("matched", matched))
	s.publish(monitor.Event{
		Kind:       monitor.KindProbe,
		RemoteAddr: from.String(),
		Detail:     probe.Pattern,
	})

	if !matched {
		return
	}

	s.mu.Lock()
	port := s.port
	s.mu.Unlock()

	data, err := wire.EncodeAnnouncement(wire.NewAnnouncement(probe.ID, name, s.announceHost(from.IP), port))
	if err != nil {
		logging.Error("Failed to encode announcement", zap.Error(err))
		return
	}
	if _, err := conn.WriteToUDP(data, from); err != nil {
		logging.Warn("Failed to send announcement",
			zap.String("to", from.String()),
			zap.Error(transport.ClassifyNetworkError(err, "announce", from.String())))
	}
}
