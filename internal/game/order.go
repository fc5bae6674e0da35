package game

import "github.com/gridclash/arena/pkg/core"

// Before is the resolution order of pending actions: lower Lamport clock
// first, then earlier send time, then sender id. It is a strict total order
// for any two messages from distinct senders, so the drained sequence does
// not depend on arrival order.
func Before(a, b core.ActionMessage) bool {
	if a.LogicalClock != b.LogicalClock {
		return a.LogicalClock < b.LogicalClock
	}
	if a.SendTimestamp != b.SendTimestamp {
		return a.SendTimestamp < b.SendTimestamp
	}
	return a.SenderID < b.SenderID
}
