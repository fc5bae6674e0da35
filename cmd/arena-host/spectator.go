package main

import (
	"context"
	"log/slog"

	"github.com/gridclash/arena/pkg/core"
)

// spectator is the host's own endpoint, registered under
// core.ReservedClientID. It never acts; it logs what the players see and
// reports the end of the game.
type spectator struct {
	log     *slog.Logger
	level   slog.Level
	gameEnd chan *string
}

func newSpectator(logger *slog.Logger, verbose bool) *spectator {
	level := slog.LevelDebug
	if verbose {
		level = slog.LevelInfo
	}
	return &spectator{
		log:     logger.With("component", "spectator"),
		level:   level,
		gameEnd: make(chan *string, 1),
	}
}

func (s *spectator) DeliverRawEvent(ctx context.Context, data []byte) error {
	s.log.Log(ctx, s.level, "Raw event", "bytes", len(data))
	return nil
}

func (s *spectator) PushState(ctx context.Context, players []core.Player) error {
	if !s.log.Enabled(ctx, s.level) {
		return nil
	}
	alive := 0
	for _, p := range players {
		if p.Alive() {
			alive++
		}
	}
	s.log.Log(ctx, s.level, "State", "players", len(players), "alive", alive)
	return nil
}

func (s *spectator) NotifyDeath(ctx context.Context, playerID string) error {
	s.log.Log(ctx, s.level, "Player died", "playerId", playerID)
	return nil
}

// NotifyGameEnd never blocks; the host calls it under its lock.
func (s *spectator) NotifyGameEnd(ctx context.Context, winnerID *string) error {
	if winnerID != nil {
		s.log.Info("Game over", "winnerId", *winnerID)
	} else {
		s.log.Info("Game over: no survivors")
	}
	select {
	case s.gameEnd <- winnerID:
	default:
	}
	return nil
}

// GameEnded is signalled once, when the host announces the end of the game.
func (s *spectator) GameEnded() <-chan *string {
	return s.gameEnd
}
