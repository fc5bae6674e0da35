package queue

import (
	"container/heap"
	"sync"
)

// LessFunc reports whether a must be popped before b.
type LessFunc[T any] func(a, b T) bool

// PriorityQueue is a generic thread-safe min-heap ordered by a LessFunc.
// Pop always returns the smallest pending item regardless of push order.
type PriorityQueue[T any] struct {
	mu sync.Mutex
	h  *heapSlice[T]
}

// NewPriority creates an empty priority queue ordered by less.
func NewPriority[T any](less LessFunc[T]) *PriorityQueue[T] {
	return &PriorityQueue[T]{h: &heapSlice[T]{less: less}}
}

// Push adds items to the queue.
func (q *PriorityQueue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, item := range items {
		heap.Push(q.h, item)
	}
}

// Pop removes and returns the smallest item. The bool is false if the queue
// was empty.
func (q *PriorityQueue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.h.Len() == 0 {
		var zero T
		return zero, false
	}
	return heap.Pop(q.h).(T), true
}

// Peek returns the smallest item without removing it.
func (q *PriorityQueue[T]) Peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.h.Len() == 0 {
		var zero T
		return zero, false
	}
	return q.h.items[0], true
}

// Empty returns true if the queue has no items.
func (q *PriorityQueue[T]) Empty() bool {
	return q.Len() == 0
}

// Len returns the number of pending items.
func (q *PriorityQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.h.Len()
}

// Drain pops every pending item in order.
func (q *PriorityQueue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, 0, q.h.Len())
	for q.h.Len() > 0 {
		out = append(out, heap.Pop(q.h).(T))
	}
	return out
}

type heapSlice[T any] struct {
	items []T
	less  LessFunc[T]
}

func (h *heapSlice[T]) Len() int           { return len(h.items) }
func (h *heapSlice[T]) Less(i, j int) bool { return h.less(h.items[i], h.items[j]) }
func (h *heapSlice[T]) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *heapSlice[T]) Push(x any)         { h.items = append(h.items, x.(T)) }

func (h *heapSlice[T]) Pop() any {
	n := len(h.items)
	item := h.items[n-1]
	var zero T
	h.items[n-1] = zero
	h.items = h.items[:n-1]
	return item
}
