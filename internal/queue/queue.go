// Package queue provides a thread-safe FIFO with an optional capacity.
package queue

import (
	"sync"
)

// Queue is a generic thread-safe queue. When a capacity is set, pushing onto
// a full queue discards the oldest items.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	dropped  int
}

// New creates an empty queue. A capacity of zero or less means unbounded.
func New[T any](capacity int) *Queue[T] {
	return &Queue[T]{
		items:    make([]T, 0),
		capacity: capacity,
	}
}

// Push appends items and returns how many old items were discarded to make room.
func (q *Queue[T]) Push(items ...T) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
	if q.capacity <= 0 || len(q.items) <= q.capacity {
		return 0
	}
	over := len(q.items) - q.capacity
	clear(q.items[:over])
	q.items = append(q.items[:0], q.items[over:]...)
	q.dropped += over
	return over
}

// Pop removes and returns the first item. Returns zero value if empty.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many items have been discarded for capacity.
func (q *Queue[T]) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Snapshot returns a copy of the items, oldest first.
func (q *Queue[T]) Snapshot() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]T(nil), q.items...)
}

// Find returns the newest item matching fn.
func (q *Queue[T]) Find(fn func(T) bool) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := len(q.items) - 1; i >= 0; i-- {
		if fn(q.items[i]) {
			return q.items[i], true
		}
	}
	var zero T
	return zero, false
}

// Update applies fn to the newest item matching match and reports whether one was found.
func (q *Queue[T]) Update(match func(T) bool, fn func(*T)) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := len(q.items) - 1; i >= 0; i-- {
		if match(q.items[i]) {
			fn(&q.items[i])
			return true
		}
	}
	return false
}

// GetAndEmpty returns all items and clears the queue.
func (q *Queue[T]) GetAndEmpty() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := q.items
	q.items = make([]T, 0, cap(q.items))
	return result
}
