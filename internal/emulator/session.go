package emulator

import (
	"errors"
	"io"
	"maps"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aio-mgr/aiomgr/internal/logging"
	"github.com/aio-mgr/aiomgr/internal/monitor"
	"github.com/aio-mgr/aiomgr/internal/transport"
	"github.com/aio-mgr/aiomgr/internal/wire"
)

const replyTimeout = 5 * time.Second

// session is one accepted TCP connection.
type session struct {
	srv           *Server
	id            string
	remote        string
	conn          *transport.Conn
	authenticated bool
}

func newSession(srv *Server, conn net.Conn) *session {
	return &session{
		srv:    srv,
		id:     uuid.NewString(),
		remote: conn.RemoteAddr().String(),
		conn:   transport.NewConn(conn, 0),
	}
}

// serve handles requests until the peer leaves, a request ends the
// session, or the idle timeout expires.
func (s *session) serve() {
	defer func() {
		_ = s.conn.Close()
		logging.LogConnection(s.remote, "session_closed")
		s.publish(monitor.KindSessionClose, "")
	}()

	logging.LogConnection(s.remote, "session_opened")
	s.publish(monitor.KindSessionOpen, "")

	for {
		data, err := s.conn.ReadFrame(s.srv.config.IdleTimeout)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			case transport.IsTimeout(err):
				logging.Info("Session idle timeout", zap.String("session", s.id))
			default:
				logging.Warn("Session read failed",
					zap.String("session", s.id),
					zap.Error(err))
			}
			return
		}

		req, err := wire.DecodeRequest(data)
		if err != nil {
			s.srv.recordFrame(s, "in", "", data)
			logging.Warn("Malformed request, closing session",
				zap.String("session", s.id),
				zap.Error(err))
			return
		}
		s.srv.recordFrame(s, "in", string(req.Op), data)

		resp, keep := s.handle(req)
		if err := s.reply(req, resp); err != nil {
			logging.Warn("Session write failed",
				zap.String("session", s.id),
				zap.Error(err))
			return
		}
		if !keep {
			return
		}
	}
}

// handle applies the session state machine. keep is false when the
// connection must be closed after the reply.
func (s *session) handle(req *wire.Request) (resp wire.Response, keep bool) {
	switch req.Op {
	case wire.OpConnect:
		if s.authenticated {
			return wire.Errorf("already connected"), true
		}
		if !s.srv.responder.Authenticate(req.Token) {
			logging.Warn("Rejected session token", zap.String("session", s.id))
			s.publish(monitor.KindConnect, string(wire.StatusDenied))
			return wire.NewResponse(wire.StatusDenied, wire.KeyError, "invalid token"), false
		}
		s.authenticated = true
		s.publish(monitor.KindConnect, string(wire.StatusOkay))
		return wire.OK(wire.KeySession, s.id, "name", s.srv.responder.Name()), true

	case wire.OpCommand:
		if !s.authenticated {
			return wire.Errorf("not connected"), false
		}
		resp := s.srv.responder.HandleCommand(req.Command)
		if resp == nil {
			resp = wire.Errorf("no response")
		}
		s.publish(monitor.KindCommand, req.Command)
		return maps.Clone(resp), true

	case wire.OpDisconnect:
		if !s.authenticated {
			return wire.Errorf("not connected"), false
		}
		s.authenticated = false
		s.publish(monitor.KindDisconnect, "")
		return wire.OK(), false
	}
	return wire.Errorf("unknown op %q", req.Op), false
}

func (s *session) reply(req *wire.Request, resp wire.Response) error {
	resp[wire.KeyID] = req.ID
	data, err := wire.EncodeResponse(resp)
	if err != nil {
		return err
	}
	if err := s.conn.WriteFrame(data, replyTimeout); err != nil {
		return err
	}
	s.srv.recordFrame(s, "out", string(req.Op), data)
	logging.Debug("Replied",
		zap.String("session", s.id),
		zap.String("op", string(req.Op)),
		zap.String("response", resp.Summary()))
	return nil
}

func (s *session) publish(kind, detail string) {
	s.srv.publish(monitor.Event{
		Kind:       kind,
		RemoteAddr: s.remote,
		SessionID:  s.id,
		Detail:     detail,
	})
}
