package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gridclash/arena/internal/authority"
	"github.com/gridclash/arena/internal/dispatcher"
	"github.com/gridclash/arena/internal/worker"
	"github.com/gridclash/arena/pkg/core"
	"github.com/gridclash/arena/pkg/protocol"
	"golang.org/x/time/rate"
)

var errSessionClosed = errors.New("session closed")

// session is one connected client. It is the client's authority.Endpoint.
type session struct {
	srv     *Server
	conn    *websocket.Conn
	limiter *rate.Limiter
	log     *slog.Logger

	writeMu   sync.Mutex
	closed    bool
	evictOnce sync.Once

	idMu     sync.Mutex
	playerID string
}

var (
	_ authority.Endpoint  = (*session)(nil)
	_ authority.Evictable = (*session)(nil)
)

func newSession(srv *Server, conn *websocket.Conn) *session {
	return &session{
		srv:     srv,
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(srv.cfg.RateLimit), srv.cfg.RateBurst),
		log:     srv.log.With("remote", conn.RemoteAddr().String()),
	}
}

// run reads frames until the connection fails, then detaches the session
// from the host.
func (s *session) run(ctx context.Context) {
	defer s.close(ctx)

	s.conn.SetReadLimit(s.srv.cfg.ReadLimit)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("Session read error", "playerId", s.player(), "error", err)
			}
			return
		}
		if !s.limiter.Allow() {
			s.sendError(ctx, "rate limit exceeded")
			continue
		}
		s.handleFrame(ctx, data)
	}
}

func (s *session) handleFrame(ctx context.Context, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		s.sendError(ctx, err.Error())
		return
	}

	switch env.Type {
	case protocol.TypeRegister:
		s.handleRegister(ctx, env)
	case protocol.TypeListPlayers:
		result, err := s.srv.dispatch(dispatcher.Event{Command: worker.CmdPlayers})
		if err != nil {
			s.sendError(ctx, "players unavailable")
			return
		}
		players, _ := result.([]core.Player)
		s.send(ctx, protocol.TypePlayers, protocol.PlayersPayload{Players: players})
	case protocol.TypeSubmitAction:
		var p protocol.ActionPayload
		if err := protocol.DecodePayload(env, &p); err != nil {
			s.sendError(ctx, err.Error())
			return
		}
		if _, err := s.srv.dispatch(dispatcher.Event{Command: worker.CmdAction, Payload: p.Data}); err != nil {
			s.log.Warn("Action not queued", "error", err)
		}
	default:
		s.sendError(ctx, fmt.Sprintf("unknown message type %q", env.Type))
	}
}

func (s *session) player() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return s.playerID
}

func (s *session) handleRegister(ctx context.Context, env protocol.Envelope) {
	if s.player() != "" {
		s.sendError(ctx, "already registered")
		return
	}
	var p protocol.RegisterPayload
	if err := protocol.DecodePayload(env, &p); err != nil {
		s.sendError(ctx, err.Error())
		return
	}

	result, err := s.srv.dispatch(dispatcher.Event{Command: worker.CmdRegister, Args: []string{p.ID}})
	if err != nil {
		s.send(ctx, protocol.TypeRejected, protocol.RejectedPayload{Reason: rejectReason(err)})
		return
	}
	player, ok := result.(core.Player)
	if !ok {
		s.sendError(ctx, "registration failed")
		return
	}

	s.idMu.Lock()
	s.playerID = player.ID
	s.idMu.Unlock()
	if err := s.send(ctx, protocol.TypeRegistered, protocol.RegisteredPayload{Player: player}); err != nil {
		return
	}
	s.srv.registry.RegisterEndpoint(ctx, player.ID, s)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, authority.ErrGameEnded):
		return "game has ended"
	case errors.Is(err, authority.ErrDuplicatePlayer):
		return "player id already taken"
	case errors.Is(err, authority.ErrInvalidPlayerID):
		return "invalid player id"
	default:
		return "registration failed"
	}
}

func (s *session) DeliverRawEvent(ctx context.Context, data []byte) error {
	return s.send(ctx, protocol.TypeRawEvent, protocol.ActionPayload{Data: data})
}

func (s *session) PushState(ctx context.Context, players []core.Player) error {
	return s.send(ctx, protocol.TypeState, protocol.PlayersPayload{Players: players})
}

func (s *session) NotifyDeath(ctx context.Context, playerID string) error {
	return s.send(ctx, protocol.TypeDeath, protocol.DeathPayload{PlayerID: playerID})
}

func (s *session) NotifyGameEnd(ctx context.Context, winnerID *string) error {
	return s.send(ctx, protocol.TypeGameEnd, protocol.GameEndPayload{WinnerID: winnerID})
}

// Evicted closes the connection once the host has dropped the session. It
// runs under the host lock, so the close happens on its own goroutine and
// skips writeMu, which a timed-out delivery may still hold. The read loop
// then fails and detaches the session as usual.
func (s *session) Evicted(reason string) {
	s.evictOnce.Do(func() {
		go func() {
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "evicted: "+reason)
			if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
				s.log.Debug("Failed to send close frame", "error", err)
			}
			s.conn.Close()
		}()
	})
}

func (s *session) sendError(ctx context.Context, msg string) {
	if err := s.send(ctx, protocol.TypeError, protocol.ErrorPayload{Message: msg}); err != nil {
		s.log.Debug("Failed to send error frame", "error", err)
	}
}

// send writes one frame. The write deadline is the earlier of the context
// deadline and the configured write timeout.
func (s *session) send(ctx context.Context, msgType string, payload any) error {
	frame, err := protocol.Encode(msgType, payload)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return errSessionClosed
	}

	deadline := time.Now().Add(s.srv.cfg.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write %s: %w", msgType, err)
	}
	return nil
}

func (s *session) close(ctx context.Context) {
	s.writeMu.Lock()
	already := s.closed
	s.closed = true
	s.writeMu.Unlock()
	if already {
		return
	}

	s.conn.Close()
	s.srv.forget(s)
	id := s.player()
	if id != "" {
		s.srv.registry.Disconnect(ctx, id, s)
	}
	s.log.Info("Session closed", "playerId", id)
}
