// Package ringbuffer provides a fixed capacity FIFO of reusable values
package ringbuffer

import "sync"

// Ring is a bounded FIFO safe for concurrent use. The lock is held for
// a single push or pop only.
type Ring[T any] struct {
	lock  sync.Mutex
	items []T
	head  int
	size  int
}

// New makes a ring holding at most capacity items, capacity below 1 is
// raised to 1
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends v, it reports false and drops v when the ring is full
func (r *Ring[T]) Push(v T) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.size == len(r.items) {
		return false
	}
	r.items[(r.head+r.size)%len(r.items)] = v
	r.size++
	return true
}

// Pop removes the oldest item
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.size == 0 {
		return zero, false
	}
	v := r.items[r.head]
	r.items[r.head] = zero
	r.head = (r.head + 1) % len(r.items)
	r.size--
	return v, true
}

// Len returns the number of items
func (r *Ring[T]) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.size
}

// Cap returns the capacity
func (r *Ring[T]) Cap() int {
	return len(r.items)
}
