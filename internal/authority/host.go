// Package authority is the single source of truth for a hosted match. One
// mutex guards the roster, the pending queue, the endpoints and the
// end-of-game flag; every entry point takes it, and fan-out runs under it.
package authority

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gridclash/arena/internal/clock"
	"github.com/gridclash/arena/internal/game"
	"github.com/gridclash/arena/internal/match"
	"github.com/gridclash/arena/internal/queue"
	"github.com/gridclash/arena/internal/storage"
	"github.com/gridclash/arena/internal/wire"
	"github.com/gridclash/arena/pkg/core"
)

var (
	// ErrGameEnded is returned by Register once the game is over.
	ErrGameEnded = errors.New("game has ended")
	// ErrInvalidPlayerID is returned for blank or reserved ids.
	ErrInvalidPlayerID = errors.New("invalid player id")
	// ErrDuplicatePlayer is returned when the id is already registered.
	ErrDuplicatePlayer = errors.New("player already registered")
)

// DefaultDeliveryTimeout bounds a single endpoint call when none is configured.
const DefaultDeliveryTimeout = 2 * time.Second

// Dependencies holds everything the host needs. Only Codec is required to
// be meaningful; the rest fall back to defaults.
type Dependencies struct {
	Logger          *slog.Logger
	Codec           wire.Codec
	Journal         storage.Backend
	Match           *match.Context
	Rand            *rand.Rand
	Now             func() time.Time
	DeliveryTimeout time.Duration
}

// Stats is a point-in-time view of the host for monitoring.
type Stats struct {
	Players   int
	Alive     int
	Endpoints int
	Pending   int
	Applied   uint64
	Rejected  uint64
	Dropped   uint64
	Evicted   uint64
	GameEnded bool
	WinnerID  *string
}

// Host owns the authoritative game state.
type Host struct {
	log     *slog.Logger
	codec   wire.Codec
	journal storage.Backend
	match   *match.Context
	rng     *rand.Rand
	now     func() time.Time
	timeout time.Duration
	metrics *metrics

	mu          sync.Mutex
	players     game.Roster
	registered  int
	pending     *queue.PriorityQueue[core.ActionMessage]
	endpoints   []endpointEntry
	gameEnded   bool
	endNotified bool
	winner      *string
	journalDone bool
	seq         uint64

	applied, rejected, dropped, evicted uint64
	alive                               atomic.Int64
}

// New creates a Host with an empty roster.
func New(deps Dependencies) (*Host, error) {
	h := &Host{
		log:     deps.Logger,
		codec:   deps.Codec,
		journal: deps.Journal,
		match:   deps.Match,
		rng:     deps.Rand,
		now:     deps.Now,
		timeout: deps.DeliveryTimeout,
		pending: queue.NewPriority(game.Before),
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	h.log = h.log.With("component", "host")
	if h.journal == nil {
		h.journal = storage.Nop{}
	}
	if h.rng == nil {
		seed := uint64(time.Now().UnixNano())
		h.rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.timeout <= 0 {
		h.timeout = DefaultDeliveryTimeout
	}

	m, err := newMetrics(func() int { return int(h.alive.Load()) })
	if err != nil {
		return nil, fmt.Errorf("creating host metrics: %w", err)
	}
	h.metrics = m
	return h, nil
}

// Start records the beginning of the match in the journal.
func (h *Host) Start() {
	if h.match == nil {
		return
	}
	m := h.match.GetMatch()
	if err := h.journal.StartMatch(&m); err != nil {
		h.log.Error("Failed to journal match start", "error", err)
	}
	h.log.Info("Match started", "matchId", m.ID, "gridSize", m.GridSize)
}

// Register adds a player. The first player becomes host and spawns in the
// middle of the grid; everyone else spawns on a random cell.
func (h *Host) Register(ctx context.Context, draft core.PlayerDraft) (core.Player, error) {
	id := strings.TrimSpace(draft.ID)
	if id == "" || strings.EqualFold(id, core.ReservedClientID) {
		return core.Player{}, fmt.Errorf("%w: %q", ErrInvalidPlayerID, draft.ID)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.gameEnded {
		return core.Player{}, ErrGameEnded
	}
	if h.players.Find(id) != nil {
		return core.Player{}, fmt.Errorf("%w: %s", ErrDuplicatePlayer, id)
	}

	h.registered++
	p := core.NewPlayer(id)
	p.Symbol = core.SymbolFor(h.registered)
	if !h.players.HasHost() {
		p.IsHost = true
		p.X, p.Y = core.HostSpawnX, core.HostSpawnY
	} else {
		p.X, p.Y = h.rng.IntN(core.GridSize), h.rng.IntN(core.GridSize)
	}
	h.players = append(h.players, &p)
	h.alive.Add(1)

	if err := h.journal.AddPlayer(&p); err != nil {
		h.log.Error("Failed to journal player", "playerId", id, "error", err)
	}
	h.log.Info("Player registered", "playerId", id, "symbol", p.Symbol, "isHost", p.IsHost, "x", p.X, "y", p.Y)

	registered := p
	h.broadcastStateLocked(ctx)
	return registered, nil
}

// ListPlayers returns a copy of the roster in registration order.
func (h *Host) ListPlayers() []core.Player {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.players.Snapshot()
}

// RegisterEndpoint attaches ep under playerID, replacing any previous
// endpoint for that id, and pushes the current state to everyone.
func (h *Host) RegisterEndpoint(ctx context.Context, playerID string, ep Endpoint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	replaced := false
	for i := range h.endpoints {
		if h.endpoints[i].id == playerID {
			h.endpoints[i].ep = ep
			replaced = true
			break
		}
	}
	if !replaced {
		h.endpoints = append(h.endpoints, endpointEntry{id: playerID, ep: ep})
	}
	h.log.Debug("Endpoint registered", "playerId", playerID, "replaced", replaced)

	h.broadcastStateLocked(ctx)
}

// Disconnect evicts playerID if ep is still its registered endpoint. It is
// called by the transport when a session closes.
func (h *Host) Disconnect(ctx context.Context, playerID string, ep Endpoint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, e := range h.endpoints {
		if e.id == playerID && e.ep == ep {
			h.evictLocked(ctx, playerID, "disconnected")
			h.broadcastStateLocked(ctx)
			return
		}
	}
}

// SubmitAction accepts one scrambled action message. Undecodable payloads
// are logged and dropped; the caller never learns the outcome.
func (h *Host) SubmitAction(ctx context.Context, data []byte) {
	msg, err := h.codec.Decode(data)
	if err != nil {
		h.log.Warn("Dropping undecodable action", "bytes", len(data), "error", err)
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.acceptLocked(ctx, msg, data)
	h.drainLocked(ctx)
	h.broadcastStateLocked(ctx)
}

// SubmitBatch accepts several messages, then resolves them in one pass so
// they are applied in clock order rather than arrival order.
func (h *Host) SubmitBatch(ctx context.Context, batch [][]byte) {
	type decoded struct {
		msg core.ActionMessage
		raw []byte
	}
	valid := make([]decoded, 0, len(batch))
	var bad uint64
	for _, data := range batch {
		msg, err := h.codec.Decode(data)
		if err != nil {
			h.log.Warn("Dropping undecodable action", "bytes", len(data), "error", err)
			bad++
			continue
		}
		valid = append(valid, decoded{msg: msg, raw: data})
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.dropped += bad
	for _, d := range valid {
		h.acceptLocked(ctx, d.msg, d.raw)
	}
	h.drainLocked(ctx)
	h.broadcastStateLocked(ctx)
}

// Stats returns counters and sizes for monitoring.
func (h *Host) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := Stats{
		Players:   len(h.players),
		Alive:     len(h.players.Alive()),
		Endpoints: len(h.endpoints),
		Pending:   h.pending.Len(),
		Applied:   h.applied,
		Rejected:  h.rejected,
		Dropped:   h.dropped,
		Evicted:   h.evicted,
		GameEnded: h.gameEnded,
	}
	if h.winner != nil {
		w := *h.winner
		s.WinnerID = &w
	}
	return s
}

// Shutdown closes the journal entry for the match if the game never
// reached its end. It is safe to call more than once.
func (h *Host) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.endJournalLocked(false)
}

// acceptLocked runs the submit-time checks, merges the sender clock,
// enqueues the message and relays the raw bytes.
func (h *Host) acceptLocked(ctx context.Context, msg core.ActionMessage, raw []byte) {
	sender := h.players.Find(msg.SenderID)
	if sender == nil {
		h.log.Debug("Dropping action from unknown sender", "senderId", msg.SenderID)
		h.dropped++
		return
	}
	if sender.IsDead {
		h.log.Info("Action rejected: sender is dead", "senderId", sender.ID, "action", msg.Action)
		h.rejected++
		h.metrics.action(ctx, string(msg.Action), false, string(game.ReasonSenderDead))
		h.broadcastDeathLocked(ctx, sender.ID)
		return
	}

	sender.LogicalClock = clock.Merge(sender.LogicalClock, msg.LogicalClock)
	h.pending.Push(msg)

	h.fanOutLocked(ctx, "raw_event", func(ctx context.Context, ep Endpoint) error {
		return ep.DeliverRawEvent(ctx, raw)
	})
}

func (h *Host) drainLocked(ctx context.Context) {
	for {
		msg, ok := h.pending.Pop()
		if !ok {
			return
		}
		h.applyLocked(ctx, msg)
	}
}

func (h *Host) applyLocked(ctx context.Context, msg core.ActionMessage) {
	now := h.now()
	out := game.Resolve(h.players, msg, now)

	h.seq++
	rec := core.ActionRecord{Time: now, Seq: h.seq, Message: msg, Reason: string(out.Reason)}
	switch {
	case out.Applied:
		rec.Outcome = core.OutcomeApplied
		h.applied++
	case out.Reason == game.ReasonUnknownSender:
		rec.Outcome = core.OutcomeDropped
		h.dropped++
	default:
		rec.Outcome = core.OutcomeRejected
		h.rejected++
	}
	if out.Actor != nil {
		rec.ActorX, rec.ActorY = out.Actor.X, out.Actor.Y
	}
	if out.Target != nil {
		hp := out.Target.Health
		rec.TargetHealth = &hp
	}
	if rec.Outcome != core.OutcomeDropped {
		h.metrics.action(ctx, string(msg.Action), out.Applied, string(out.Reason))
	}
	if err := h.journal.RecordAction(&rec); err != nil {
		h.log.Error("Failed to journal action", "seq", rec.Seq, "error", err)
	}

	if out.Rejected() {
		h.log.Info("Action rejected", "senderId", msg.SenderID, "action", msg.Action,
			"targetId", msg.TargetID, "reason", out.Reason)
		if out.Reason == game.ReasonSenderDead {
			h.broadcastDeathLocked(ctx, msg.SenderID)
		}
		return
	}

	if out.Killed == "" {
		return
	}

	h.alive.Add(-1)
	h.log.Info("Player killed", "victimId", out.Killed, "killerId", msg.SenderID)
	kill := core.KillEvent{Time: now, Seq: h.seq, KillerID: msg.SenderID, VictimID: out.Killed, Distance: out.Distance}
	if err := h.journal.RecordKill(&kill); err != nil {
		h.log.Error("Failed to journal kill", "victimId", out.Killed, "error", err)
	}
	h.broadcastDeathLocked(ctx, out.Killed)
	h.checkEndLocked(ctx)
}

func (h *Host) checkEndLocked(ctx context.Context) {
	ended, winner := game.CheckEnd(h.players)
	if !ended {
		return
	}
	h.gameEnded = true
	if h.endNotified {
		return
	}
	h.endNotified = true
	h.winner = winner

	if winner != nil {
		h.log.Info("Game over", "winnerId", *winner)
	} else {
		h.log.Info("Game over: no survivors")
	}
	if h.match != nil {
		h.match.MarkEnded(winner, h.now())
	}
	h.endJournalLocked(true)

	h.fanOutLocked(ctx, "game_end", func(ctx context.Context, ep Endpoint) error {
		var w *string
		if winner != nil {
			id := *winner
			w = &id
		}
		return ep.NotifyGameEnd(ctx, w)
	})
}

func (h *Host) endJournalLocked(decided bool) {
	if h.journalDone {
		return
	}
	h.journalDone = true

	res := core.MatchResult{
		EndTime: h.now(),
		Decided: decided,
		Players: h.players.Snapshot(),
	}
	if h.match != nil {
		res.MatchID = h.match.ID()
	}
	if decided && h.winner != nil {
		w := *h.winner
		res.WinnerID = &w
	}
	if err := h.journal.EndMatch(&res); err != nil {
		h.log.Error("Failed to journal match end", "error", err)
	}
}
