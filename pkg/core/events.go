// pkg/core/events.go
package core

import "time"

// ActionOutcome classifies what the resolver did with an action.
type ActionOutcome string

const (
	OutcomeApplied  ActionOutcome = "applied"
	OutcomeRejected ActionOutcome = "rejected"
	OutcomeDropped  ActionOutcome = "dropped"
)

// ActionRecord is the journal entry for one resolved action message.
type ActionRecord struct {
	Time    time.Time
	Seq     uint64
	Message ActionMessage
	Outcome ActionOutcome
	Reason  string
	// Actor position and target health after the action, when applicable.
	ActorX       int
	ActorY       int
	TargetHealth *int
}

// KillEvent records a player reaching zero health.
type KillEvent struct {
	Time     time.Time
	Seq      uint64
	KillerID string
	VictimID string
	Distance float64
}

// EvictionEvent records a player or spectator removed after a failed
// delivery.
type EvictionEvent struct {
	Time     time.Time
	PlayerID string
	Reason   string
	// WasPlayer is false for endpoints that never had a player behind them.
	WasPlayer bool
}
