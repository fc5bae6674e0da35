package worker

import (
	"context"
	"fmt"

	"github.com/gridclash/arena/internal/dispatcher"
	"github.com/gridclash/arena/pkg/core"
)

// Command names routed through the dispatcher.
const (
	CmdRegister = ":REGISTER:"
	CmdPlayers  = ":PLAYERS:"
	CmdAction   = ":ACTION:"
)

// RegisterHandlers registers the client command handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Registration and listing answer the caller - sync
	d.Register(CmdRegister, m.handleRegister, dispatcher.Logged())
	d.Register(CmdPlayers, m.handlePlayers)

	// Actions are fire-and-forget; one consumer keeps arrival order
	d.Register(CmdAction, m.handleAction, dispatcher.Buffered(4096), dispatcher.Blocking(), dispatcher.Logged())
}

func (m *Manager) handleRegister(e dispatcher.Event) (any, error) {
	if len(e.Args) < 1 {
		return nil, fmt.Errorf("register: %w", ErrMissingArgument)
	}
	p, err := m.deps.Host.Register(context.Background(), core.PlayerDraft{ID: e.Args[0]})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (m *Manager) handlePlayers(e dispatcher.Event) (any, error) {
	return m.deps.Host.ListPlayers(), nil
}

func (m *Manager) handleAction(e dispatcher.Event) (any, error) {
	if len(e.Payload) == 0 {
		return nil, fmt.Errorf("action: %w", ErrMissingArgument)
	}
	m.deps.Host.SubmitAction(context.Background(), e.Payload)
	return nil, nil
}
