package protocol

import "sync"

// Queue is an unbounded, non-blocking, multi-producer queue. Any number of
// goroutines may Push; a single consumer drains it with TryRecv or
// TryRecvAll. Ready signals (at most once per drain) that items are pending,
// for consumers that would rather block than poll.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	notify chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{notify: make(chan struct{}, 1)}
}

// Push appends v. It never blocks.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// TryRecv pops the oldest item, if any.
func (q *Queue[T]) TryRecv() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

// TryRecvAll pops every pending item, oldest first. An empty queue returns
// nil.
func (q *Queue[T]) TryRecvAll() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Len returns the number of pending items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Ready returns a channel that receives after a Push. It may fire spuriously
// (the items may already have been drained) and callers must re-check.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.notify
}
