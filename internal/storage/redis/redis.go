// Package redisstorage mirrors the match journal onto redis: every record
// is published on the match channel and appended to the match log list so
// late subscribers can catch up.
package redisstorage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gridclash/arena/internal/storage"
	"github.com/gridclash/arena/pkg/core"
	"github.com/gridclash/arena/pkg/streaming"
	"github.com/redis/go-redis/v9"
)

var _ storage.Backend = (*Backend)(nil)

// ErrNoMatch is returned when events arrive before StartMatch.
var ErrNoMatch = errors.New("no match started")

const opTimeout = 2 * time.Second

// Client is the subset of *redis.Client the backend uses.
type Client interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	RPush(ctx context.Context, key string, values ...any) *redis.IntCmd
	Close() error
}

// Config holds redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Backend publishes journal envelopes to redis.
type Backend struct {
	cfg    Config
	client Client

	mu      sync.RWMutex
	matchID string
}

// New creates a backend that dials cfg.Addr on Init.
func New(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

// NewWithClient creates a backend on an existing client.
func NewWithClient(cfg Config, client Client) *Backend {
	return &Backend{cfg: cfg, client: client}
}

func (b *Backend) Init() error {
	if b.cfg.Prefix == "" {
		b.cfg.Prefix = "arena"
	}
	if b.client == nil {
		b.client = redis.NewClient(&redis.Options{
			Addr:     b.cfg.Addr,
			Password: b.cfg.Password,
			DB:       b.cfg.DB,
		})
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("could not connect to redis at %s: %w", b.cfg.Addr, err)
	}
	return nil
}

func (b *Backend) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

// Channel is the pub/sub channel for a match.
func (b *Backend) Channel(matchID string) string {
	return b.cfg.Prefix + ":" + matchID
}

// LogKey is the list holding every envelope of a match.
func (b *Backend) LogKey(matchID string) string {
	return b.Channel(matchID) + ":log"
}

func (b *Backend) StartMatch(m *core.Match) error {
	b.mu.Lock()
	b.matchID = m.ID
	b.mu.Unlock()
	return b.publish(streaming.TypeStartMatch, streaming.StartMatchPayload{Match: m})
}

func (b *Backend) EndMatch(r *core.MatchResult) error {
	return b.publish(streaming.TypeEndMatch, r)
}

func (b *Backend) AddPlayer(p *core.Player) error {
	return b.publish(streaming.TypeAddPlayer, p)
}

func (b *Backend) RecordAction(a *core.ActionRecord) error {
	return b.publish(streaming.TypeAction, a)
}

func (b *Backend) RecordKill(k *core.KillEvent) error {
	return b.publish(streaming.TypeKill, k)
}

func (b *Backend) RecordEviction(e *core.EvictionEvent) error {
	return b.publish(streaming.TypeEviction, e)
}

func (b *Backend) publish(msgType string, payload any) error {
	b.mu.RLock()
	id := b.matchID
	b.mu.RUnlock()
	if id == "" {
		return ErrNoMatch
	}

	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := b.client.RPush(ctx, b.LogKey(id), data).Err(); err != nil {
		return fmt.Errorf("append %s: %w", msgType, err)
	}
	if err := b.client.Publish(ctx, b.Channel(id), data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", msgType, err)
	}
	return nil
}
