// pkg/core/player.go
package core

import "time"

// Grid and combat tuning shared by the host and clients.
const (
	GridSize      = 10
	MaxHealth     = 100
	ActionRange   = 3.0
	ShotDamage    = 10
	HealAmount    = 10
	HostSpawnX    = 5
	HostSpawnY    = 5
	symbolsPerSet = 26
)

// ReservedClientID is the identifier the hosting process uses for its own
// spectator endpoint. Players may not register under it.
const ReservedClientID = "hostInternalClient"

// PlayerDraft is what a client submits when asking to join.
type PlayerDraft struct {
	ID string `json:"id"`
}

// Player is one participant in the match. The host owns every Player value;
// clients only ever see copies.
type Player struct {
	ID           string    `json:"id" msgpack:"id"`
	X            int       `json:"x" msgpack:"x"`
	Y            int       `json:"y" msgpack:"y"`
	Health       int       `json:"health" msgpack:"health"`
	IsHost       bool      `json:"isHost" msgpack:"isHost"`
	Symbol       string    `json:"symbol" msgpack:"symbol"`
	IsDead       bool      `json:"isDead" msgpack:"isDead"`
	DeathTime    time.Time `json:"deathTime,omitzero" msgpack:"deathTime,omitempty"`
	LogicalClock int       `json:"logicalClock" msgpack:"logicalClock"`
}

// NewPlayer returns a live player at full health.
func NewPlayer(id string) Player {
	return Player{ID: id, Health: MaxHealth}
}

// Alive reports whether the player can still act or be targeted.
func (p Player) Alive() bool {
	return !p.IsDead && p.Health > 0
}

// MarkDead pins health to zero and records the time of death.
// Calling it on an already dead player keeps the original death time.
func (p *Player) MarkDead(at time.Time) {
	p.Health = 0
	if !p.IsDead {
		p.IsDead = true
		p.DeathTime = at
	}
}

// SymbolFor returns the display symbol of the n-th registered player
// (1-based). 1..26 map to a..z, 27..52 to A..Z, and anything later wraps
// back into lowercase.
func SymbolFor(n int) string {
	switch {
	case n < 1:
		return "?"
	case n <= symbolsPerSet:
		return string(rune('a' + n - 1))
	case n <= 2*symbolsPerSet:
		return string(rune('A' + n - symbolsPerSet - 1))
	default:
		return string(rune('a' + (n-1)%symbolsPerSet))
	}
}

// InBounds reports whether (x, y) lies on the grid.
func InBounds(x, y int) bool {
	return x >= 0 && x < GridSize && y >= 0 && y < GridSize
}
