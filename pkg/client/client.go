// Package client is a Go SDK for joining an arena host over websockets.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gridclash/arena/internal/clock"
	"github.com/gridclash/arena/internal/wire"
	"github.com/gridclash/arena/pkg/core"
	"github.com/gridclash/arena/pkg/protocol"
)

const writeWait = 10 * time.Second

// ErrClosed is returned once the connection is gone.
var ErrClosed = errors.New("client closed")

// RejectedError is returned by Register when the host refuses the player.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return "registration rejected: " + e.Reason
}

// Handlers receive pushed updates. Any of them may be nil. They run on the
// read goroutine and must not block.
type Handlers struct {
	OnState    func(players []core.Player)
	OnRawEvent func(msg core.ActionMessage)
	OnDeath    func(playerID string)
	OnGameEnd  func(winnerID *string)
	OnError    func(message string)
}

// Options configures Dial.
type Options struct {
	ScrambleKey byte
	Handlers    Handlers
	Logger      *slog.Logger
}

// Client is one connection to a host.
type Client struct {
	conn     *websocket.Conn
	codec    wire.Codec
	clock    clock.Lamport
	handlers Handlers
	log      *slog.Logger

	writeMu sync.Mutex

	reqMu   sync.Mutex // one request/response exchange at a time
	pending sync.Mutex
	waiting bool
	replies chan protocol.Envelope

	idMu sync.RWMutex
	id   string

	done     chan struct{}
	closeErr error
	once     sync.Once
}

// Dial connects to the websocket endpoint at url and starts reading.
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	key := opts.ScrambleKey
	if key == 0 {
		key = wire.DefaultKey
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		conn:     conn,
		codec:    wire.NewCodec(key),
		handlers: opts.Handlers,
		log:      logger.With("component", "client"),
		replies:  make(chan protocol.Envelope, 1),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// ID returns the registered player id, or "" before Register succeeds.
func (c *Client) ID() string {
	c.idMu.RLock()
	defer c.idMu.RUnlock()
	return c.id
}

// Clock returns the current Lamport clock value.
func (c *Client) Clock() int {
	return c.clock.Now()
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Register joins the match as id.
func (c *Client) Register(ctx context.Context, id string) (core.Player, error) {
	env, err := c.request(ctx, protocol.TypeRegister, protocol.RegisterPayload{ID: id})
	if err != nil {
		return core.Player{}, err
	}

	switch env.Type {
	case protocol.TypeRegistered:
		var p protocol.RegisteredPayload
		if err := protocol.DecodePayload(env, &p); err != nil {
			return core.Player{}, err
		}
		c.idMu.Lock()
		c.id = p.Player.ID
		c.idMu.Unlock()
		return p.Player, nil
	case protocol.TypeRejected:
		var p protocol.RejectedPayload
		if err := protocol.DecodePayload(env, &p); err != nil {
			return core.Player{}, err
		}
		return core.Player{}, &RejectedError{Reason: p.Reason}
	default:
		return core.Player{}, unexpected(env)
	}
}

// ListPlayers asks the host for the current roster.
func (c *Client) ListPlayers(ctx context.Context) ([]core.Player, error) {
	env, err := c.request(ctx, protocol.TypeListPlayers, nil)
	if err != nil {
		return nil, err
	}
	if env.Type != protocol.TypePlayers {
		return nil, unexpected(env)
	}
	var p protocol.PlayersPayload
	if err := protocol.DecodePayload(env, &p); err != nil {
		return nil, err
	}
	return p.Players, nil
}

// Move submits a one-cell move.
func (c *Client) Move(ctx context.Context, dir core.Direction) error {
	return c.submit(ctx, core.ActionMessage{Action: core.ActionMove, Direction: dir})
}

// Shoot submits a shot at target.
func (c *Client) Shoot(ctx context.Context, target string) error {
	return c.submit(ctx, core.ActionMessage{Action: core.ActionShoot, TargetID: target})
}

// Heal submits a heal on target.
func (c *Client) Heal(ctx context.Context, target string) error {
	return c.submit(ctx, core.ActionMessage{Action: core.ActionHeal, TargetID: target})
}

// Close ends the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.done
	return err
}

func (c *Client) submit(ctx context.Context, msg core.ActionMessage) error {
	id := c.ID()
	if id == "" {
		return errors.New("not registered")
	}
	msg.SenderID = id
	msg.LogicalClock = c.clock.Tick()
	msg.SendTimestamp = time.Now().UnixMilli()
	if err := msg.Validate(); err != nil {
		return err
	}

	data, err := c.codec.Encode(msg)
	if err != nil {
		return err
	}
	return c.send(ctx, protocol.TypeSubmitAction, protocol.ActionPayload{Data: data})
}

func (c *Client) request(ctx context.Context, msgType string, payload any) (protocol.Envelope, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	c.pending.Lock()
	c.waiting = true
	c.pending.Unlock()
	defer func() {
		c.pending.Lock()
		c.waiting = false
		c.pending.Unlock()
		select {
		case <-c.replies:
		default:
		}
	}()

	if err := c.send(ctx, msgType, payload); err != nil {
		return protocol.Envelope{}, err
	}

	select {
	case env := <-c.replies:
		if env.Type == protocol.TypeError {
			var p protocol.ErrorPayload
			_ = protocol.DecodePayload(env, &p)
			return env, fmt.Errorf("host error: %s", p.Message)
		}
		return env, nil
	case <-c.done:
		return protocol.Envelope{}, ErrClosed
	case <-ctx.Done():
		return protocol.Envelope{}, ctx.Err()
	}
}

func (c *Client) send(ctx context.Context, msgType string, payload any) error {
	frame, err := protocol.Encode(msgType, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *Client) readLoop() {
	defer c.once.Do(func() { close(c.done) })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("Connection lost", "error", err)
			}
			return
		}
		env, err := protocol.Decode(data)
		if err != nil {
			c.log.Warn("Dropping malformed frame", "error", err)
			continue
		}
		c.route(env)
	}
}

func (c *Client) route(env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeRegistered, protocol.TypeRejected, protocol.TypePlayers:
		c.reply(env)
	case protocol.TypeError:
		if c.reply(env) {
			return
		}
		if c.handlers.OnError != nil {
			var p protocol.ErrorPayload
			if err := protocol.DecodePayload(env, &p); err == nil {
				c.handlers.OnError(p.Message)
			}
		}
	case protocol.TypeRawEvent:
		var p protocol.ActionPayload
		if err := protocol.DecodePayload(env, &p); err != nil {
			return
		}
		msg, err := c.codec.Decode(p.Data)
		if err != nil {
			c.log.Warn("Dropping undecodable relay", "error", err)
			return
		}
		c.clock.Observe(msg.LogicalClock)
		if c.handlers.OnRawEvent != nil {
			c.handlers.OnRawEvent(msg)
		}
	case protocol.TypeState:
		var p protocol.PlayersPayload
		if err := protocol.DecodePayload(env, &p); err == nil && c.handlers.OnState != nil {
			c.handlers.OnState(p.Players)
		}
	case protocol.TypeDeath:
		var p protocol.DeathPayload
		if err := protocol.DecodePayload(env, &p); err == nil && c.handlers.OnDeath != nil {
			c.handlers.OnDeath(p.PlayerID)
		}
	case protocol.TypeGameEnd:
		var p protocol.GameEndPayload
		if err := protocol.DecodePayload(env, &p); err == nil && c.handlers.OnGameEnd != nil {
			c.handlers.OnGameEnd(p.WinnerID)
		}
	default:
		c.log.Debug("Ignoring frame", "type", env.Type)
	}
}

// reply hands env to a waiting request. It reports false when nobody is
// waiting.
func (c *Client) reply(env protocol.Envelope) bool {
	c.pending.Lock()
	defer c.pending.Unlock()
	if !c.waiting {
		return false
	}
	select {
	case c.replies <- env:
	default:
	}
	return true
}

func unexpected(env protocol.Envelope) error {
	return fmt.Errorf("unexpected %s frame", env.Type)
}
