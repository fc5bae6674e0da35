// Package game holds the deterministic rules of the arena: ordering of
// pending actions, combat resolution and end-of-game detection. Nothing in
// here locks; callers own the roster.
package game

import (
	"math"
	"time"

	"github.com/gridclash/arena/pkg/core"
)

// RejectReason explains why an action had no effect.
type RejectReason string

const (
	ReasonNone             RejectReason = ""
	ReasonUnknownSender    RejectReason = "unknown sender"
	ReasonSenderDead       RejectReason = "sender dead"
	ReasonUnknownAction    RejectReason = "unknown action"
	ReasonUnknownDirection RejectReason = "unknown direction"
	ReasonUnknownTarget    RejectReason = "unknown target"
	ReasonTargetDead       RejectReason = "target dead"
	ReasonOutOfRange       RejectReason = "target out of range"
	ReasonSelfTarget       RejectReason = "cannot shoot self"
)

// Outcome describes what Resolve did.
type Outcome struct {
	Applied bool
	Reason  RejectReason
	// Killed is the id of a target brought to zero health by this action.
	Killed string
	// Distance between actor and target for shoot and heal.
	Distance float64
	Actor    *core.Player
	Target   *core.Player
}

// Rejected reports whether the action was discarded.
func (o Outcome) Rejected() bool {
	return !o.Applied
}

func rejected(reason RejectReason, actor, target *core.Player) Outcome {
	return Outcome{Reason: reason, Actor: actor, Target: target}
}

// Resolve applies msg to the roster. The actor is re-checked here because it
// may have died between submission and resolution.
func Resolve(r Roster, msg core.ActionMessage, now time.Time) Outcome {
	actor := r.Find(msg.SenderID)
	if actor == nil {
		return rejected(ReasonUnknownSender, nil, nil)
	}
	if actor.IsDead {
		return rejected(ReasonSenderDead, actor, nil)
	}

	switch msg.Action {
	case core.ActionMove:
		return move(actor, msg.Direction)
	case core.ActionShoot, core.ActionHeal:
		return targeted(r, actor, msg, now)
	default:
		return rejected(ReasonUnknownAction, actor, nil)
	}
}

func move(actor *core.Player, dir core.Direction) Outcome {
	dx, dy := dir.Delta()
	if dx == 0 && dy == 0 {
		return rejected(ReasonUnknownDirection, actor, nil)
	}
	if core.InBounds(actor.X+dx, actor.Y+dy) {
		actor.X += dx
		actor.Y += dy
	}
	return Outcome{Applied: true, Actor: actor}
}

func targeted(r Roster, actor *core.Player, msg core.ActionMessage, now time.Time) Outcome {
	target := r.Find(msg.TargetID)
	if target == nil {
		return rejected(ReasonUnknownTarget, actor, nil)
	}
	if msg.Action == core.ActionShoot && target.ID == actor.ID {
		return rejected(ReasonSelfTarget, actor, target)
	}
	if target.IsDead {
		return rejected(ReasonTargetDead, actor, target)
	}
	if !InRange(actor, target) {
		return rejected(ReasonOutOfRange, actor, target)
	}

	out := Outcome{Applied: true, Actor: actor, Target: target, Distance: Distance(actor, target)}
	if msg.Action == core.ActionHeal {
		target.Health = min(target.Health+core.HealAmount, core.MaxHealth)
		return out
	}

	target.Health -= core.ShotDamage
	if target.Health <= 0 {
		target.MarkDead(now)
		out.Killed = target.ID
	}
	return out
}

// InRange reports whether b is within action range of a. The comparison is
// done on squared integer distance so the boundary is exact.
func InRange(a, b *core.Player) bool {
	dx, dy := a.X-b.X, a.Y-b.Y
	limit := int(core.ActionRange)
	return dx*dx+dy*dy <= limit*limit
}

// Distance is the Euclidean distance between two players.
func Distance(a, b *core.Player) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
