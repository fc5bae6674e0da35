package game

import "github.com/gridclash/arena/pkg/core"

// Roster is the ordered player set owned by the host. Entries are pointers
// so the resolver can mutate them in place.
type Roster []*core.Player

// Find returns the player with id, or nil.
func (r Roster) Find(id string) *core.Player {
	for _, p := range r {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Alive returns the players that are not dead, in registration order.
func (r Roster) Alive() []*core.Player {
	var alive []*core.Player
	for _, p := range r {
		if !p.IsDead {
			alive = append(alive, p)
		}
	}
	return alive
}

// Remove drops the player with id and reports whether it was present.
func (r *Roster) Remove(id string) bool {
	for i, p := range *r {
		if p.ID == id {
			*r = append((*r)[:i], (*r)[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns value copies in registration order.
func (r Roster) Snapshot() []core.Player {
	out := make([]core.Player, len(r))
	for i, p := range r {
		out[i] = *p
	}
	return out
}

// HasHost reports whether any registered player is the host.
func (r Roster) HasHost() bool {
	for _, p := range r {
		if p.IsHost {
			return true
		}
	}
	return false
}
