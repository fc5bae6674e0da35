package authority

import (
	"context"
	"errors"

	"github.com/gridclash/arena/pkg/core"
)

var errDeliveryTimeout = errors.New("delivery timed out")

type deliverFunc func(ctx context.Context, ep Endpoint) error

// fanOutLocked calls deliver for every endpoint, each bounded by the
// delivery timeout. Endpoints that fail or overrun are evicted after the
// whole pass, together with their player.
func (h *Host) fanOutLocked(ctx context.Context, kind string, deliver deliverFunc) {
	var failed []string
	for _, e := range h.endpoints {
		if err := h.deliverOne(ctx, e.ep, deliver); err != nil {
			h.log.Warn("Delivery failed", "kind", kind, "playerId", e.id, "error", err)
			failed = append(failed, e.id)
		}
	}
	for _, id := range failed {
		h.evictLocked(ctx, id, kind+" delivery failed")
	}
}

// deliverOne runs deliver in its own goroutine so an endpoint that ignores
// its context still cannot hold the host past the timeout.
func (h *Host) deliverOne(ctx context.Context, ep Endpoint, deliver deliverFunc) error {
	dctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- deliver(dctx, ep)
	}()

	select {
	case err := <-done:
		return err
	case <-dctx.Done():
		return errDeliveryTimeout
	}
}

func (h *Host) broadcastStateLocked(ctx context.Context) {
	snapshot := h.players.Snapshot()
	h.fanOutLocked(ctx, "state", func(ctx context.Context, ep Endpoint) error {
		return ep.PushState(ctx, cloneRoster(snapshot))
	})
}

func (h *Host) broadcastDeathLocked(ctx context.Context, playerID string) {
	h.fanOutLocked(ctx, "death", func(ctx context.Context, ep Endpoint) error {
		return ep.NotifyDeath(ctx, playerID)
	})
}

// evictLocked removes the endpoint registered under id and the player of
// the same id, if any, and tells an Evictable endpoint it is gone. It does
// not re-evaluate the end of the game.
func (h *Host) evictLocked(ctx context.Context, id, reason string) {
	var removed Endpoint
	for i, e := range h.endpoints {
		if e.id == id {
			removed = e.ep
			h.endpoints = append(h.endpoints[:i], h.endpoints[i+1:]...)
			break
		}
	}
	if ev, ok := removed.(Evictable); ok {
		ev.Evicted(reason)
	}

	var wasAlive bool
	if p := h.players.Find(id); p != nil {
		wasAlive = !p.IsDead
	}
	wasPlayer := h.players.Remove(id)
	if wasAlive {
		h.alive.Add(-1)
	}

	h.evicted++
	h.metrics.eviction(ctx, wasPlayer)
	h.log.Warn("Evicted endpoint", "playerId", id, "reason", reason, "wasPlayer", wasPlayer)

	ev := core.EvictionEvent{Time: h.now(), PlayerID: id, Reason: reason, WasPlayer: wasPlayer}
	if err := h.journal.RecordEviction(&ev); err != nil {
		h.log.Error("Failed to journal eviction", "playerId", id, "error", err)
	}
}

// each endpoint gets its own copy so one cannot alter what another sees
func cloneRoster(players []core.Player) []core.Player {
	out := make([]core.Player, len(players))
	copy(out, players)
	return out
}
