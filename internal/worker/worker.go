package worker

import (
	"context"
	"errors"
	"time"

	"github.com/gridclash/arena/internal/logging"
	"github.com/gridclash/arena/internal/storage"
	"github.com/gridclash/arena/pkg/core"
)

// ErrMissingArgument is returned when a command arrives without its argument.
var ErrMissingArgument = errors.New("missing argument")

// Authority is the part of the host the command handlers drive.
type Authority interface {
	Register(ctx context.Context, draft core.PlayerDraft) (core.Player, error)
	ListPlayers() []core.Player
	SubmitAction(ctx context.Context, data []byte)
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Host       Authority
	LogManager *logging.SlogManager
}

// Manager turns dispatched commands into host calls.
type Manager struct {
	deps    Dependencies
	backend storage.Backend
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

// DBWriteDurationProvider is an optional interface that backends can implement
// to expose their last DB write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.backend.(DBWriteDurationProvider); ok {
		return p.GetLastDBWriteDuration()
	}
	return 0
}
