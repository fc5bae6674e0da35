// Package clock implements the Lamport counters carried on every action.
package clock

import "sync"

// Merge returns the host-side update of a sender's counter after receiving a
// message stamped msg.
func Merge(current, msg int) int {
	return max(current, msg) + 1
}

// Lamport is a client-side logical clock. The zero value is ready to use.
type Lamport struct {
	mu  sync.Mutex
	now int
}

// Tick advances the clock for a local send and returns the stamp to put on
// the outgoing message.
func (l *Lamport) Tick() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now++
	return l.now
}

// Observe merges a received stamp into the local clock.
func (l *Lamport) Observe(msg int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = Merge(l.now, msg)
	return l.now
}

// Now returns the current value without advancing it.
func (l *Lamport) Now() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now
}
