package gateway

import (
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/soyeahso/switchboard/internal/agent"
	"github.com/soyeahso/switchboard/internal/hooks"
)

// handleStream authenticates a conversation stream, upgrades it and feeds
// its messages to a session until either side hangs up.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	callSid, ok := s.authenticateStream(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if _, open := s.streams.ByCall(callSid); open {
		s.log.Warn().Str("callSid", callSid).Msg("stream already open for call")
		http.Error(w, "stream already open", http.StatusConflict)
		return
	}

	if !s.track() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.active.Done()

	ctx := r.Context()
	bizID := r.URL.Query().Get("business")
	if bizID == "" {
		if sess, ok := s.machine.Sessions().Get(callSid); ok {
			bizID = sess.BusinessID
		}
	}
	biz, err := s.machine.Directory().Lookup(ctx, bizID)
	if err != nil {
		s.log.Error().Err(err).Str("callSid", callSid).Str("business", bizID).Msg("business lookup failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxStreamFrame)

	sc := NewStreamConn(conn, callSid, biz.ID)
	if !s.streams.Add(sc) {
		sc.Close()
		return
	}
	if s.hooks != nil {
		s.hooks.EmitAsync(ctx, hooks.EventStreamOpened, map[string]any{
			hooks.KeyCallSid:    callSid,
			hooks.KeyBusinessID: biz.ID,
		})
	}

	sess := s.driver.Open(ctx, callSid, biz, sc)
	defer func() {
		sess.Close()
		s.streams.Remove(sc.ConnID)
		sc.Close()
	}()

	s.readLoop(sc, sess)
}

// readLoop hands each inbound frame to the session in arrival order.
func (s *Server) readLoop(sc *StreamConn, sess *agent.Session) {
	for {
		msg, err := sc.ReadInbound()
		if err != nil {
			switch {
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway),
				errors.Is(err, net.ErrClosed):
				s.log.Debug().Str("connId", sc.ConnID).Msg("stream closed")
			default:
				s.log.Warn().Err(err).Str("connId", sc.ConnID).Msg("stream read error")
			}
			return
		}
		if err := sess.Deliver(msg); err != nil {
			s.log.Debug().Err(err).Str("connId", sc.ConnID).Msg("session ended, dropping stream")
			return
		}
	}
}
