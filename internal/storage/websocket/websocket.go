// Package websocket streams the match journal to a remote viewer.
package websocket

import (
	"log/slog"

	"github.com/gridclash/arena/internal/storage"
	"github.com/gridclash/arena/pkg/core"
	"github.com/gridclash/arena/pkg/streaming"
)

var _ storage.Backend = (*Backend)(nil)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
	Logger *slog.Logger
}

// Backend streams match events over WebSocket to a viewer.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config) *Backend {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("component", "journal-ws")),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartMatch sends the match metadata and waits for the viewer's ack.
func (b *Backend) StartMatch(m *core.Match) error {
	data, err := streaming.Marshal(streaming.TypeStartMatch, streaming.StartMatchPayload{Match: m})
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	b.conn.mu.Lock()
	b.conn.cachedStartMsg = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeStartMatch, ackTimeout)
}

// EndMatch sends the result and waits for the viewer's ack.
func (b *Backend) EndMatch(r *core.MatchResult) error {
	data, err := streaming.Marshal(streaming.TypeEndMatch, r)
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndMatch, ackTimeout)

	// Clear cached state regardless of error.
	b.conn.mu.Lock()
	b.conn.cachedStartMsg = nil
	b.conn.mu.Unlock()

	return err
}

func (b *Backend) AddPlayer(p *core.Player) error {
	return b.sendEnvelope(streaming.TypeAddPlayer, p)
}

func (b *Backend) RecordAction(a *core.ActionRecord) error {
	return b.sendEnvelope(streaming.TypeAction, a)
}

func (b *Backend) RecordKill(k *core.KillEvent) error {
	return b.sendEnvelope(streaming.TypeKill, k)
}

func (b *Backend) RecordEviction(e *core.EvictionEvent) error {
	return b.sendEnvelope(streaming.TypeEviction, e)
}
