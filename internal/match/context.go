package match

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gridclash/arena/pkg/core"
	"github.com/google/uuid"
)

// Context holds the metadata of the match hosted by this process.
type Context struct {
	mu      sync.RWMutex
	match   *core.Match
	ended   bool
	endTime time.Time
	winner  *string
}

// NewContext creates a Context for a fresh match with a random id.
func NewContext(hostName, version string, start time.Time) *Context {
	return &Context{
		match: &core.Match{
			ID:        uuid.NewString(),
			HostName:  hostName,
			GridSize:  core.GridSize,
			StartTime: start,
			Version:   version,
		},
	}
}

// GetMatch returns a copy of the match metadata.
func (c *Context) GetMatch() core.Match {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return *c.match
}

// ID returns the match id.
func (c *Context) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.match.ID
}

// MarkEnded records the end of the game. Only the first call has effect.
func (c *Context) MarkEnded(winner *string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended {
		return
	}
	c.ended = true
	c.endTime = at
	if winner != nil {
		w := *winner
		c.winner = &w
	}
}

// Ended reports whether the game has ended and who won.
func (c *Context) Ended() (ended bool, winner *string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.winner != nil {
		w := *c.winner
		return c.ended, &w
	}
	return c.ended, nil
}

// Duration is the elapsed match time, frozen once the game has ended.
func (c *Context) Duration(now time.Time) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ended {
		return c.endTime.Sub(c.match.StartTime)
	}
	return now.Sub(c.match.StartTime)
}

// LogAttrs returns attributes identifying the match for log records.
func (c *Context) LogAttrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return []slog.Attr{
		slog.String("matchId", c.match.ID),
		slog.Bool("ended", c.ended),
	}
}
