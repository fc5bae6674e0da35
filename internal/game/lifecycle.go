package game

// CheckEnd reports whether the game is over: at most one player is still
// alive. winner is the single survivor, or nil if nobody is left.
func CheckEnd(r Roster) (ended bool, winner *string) {
	alive := r.Alive()
	if len(alive) > 1 {
		return false, nil
	}
	if len(alive) == 1 {
		id := alive[0].ID
		return true, &id
	}
	return true, nil
}
