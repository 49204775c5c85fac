package queue

import "sync"

// FIFO is an unbounded in-memory queue that preserves insertion order.
// Push never blocks; Ready is signalled whenever the queue becomes non-empty.
type FIFO[T any] struct {
	mu    sync.Mutex
	data  []T
	ready chan struct{}
}

func NewFIFO[T any](capacity int) *FIFO[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &FIFO[T]{
		data:  make([]T, 0, capacity),
		ready: make(chan struct{}, 1),
	}
}

func (q *FIFO[T]) Push(v T) {
	q.mu.Lock()
	q.data = append(q.data, v)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// DequeueBatch removes up to max items from the head. max <= 0 drains everything.
func (q *FIFO[T]) DequeueBatch(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil
	}
	if max <= 0 || max > len(q.data) {
		max = len(q.data)
	}
	out := make([]T, max)
	copy(out, q.data[:max])

	var zero T
	for i := range q.data[:max] {
		q.data[i] = zero
	}
	q.data = append(q.data[:0], q.data[max:]...)
	if len(q.data) > 0 {
		select {
		case q.ready <- struct{}{}:
		default:
		}
	}
	return out
}

func (q *FIFO[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

// Ready yields a value after a Push, or after a partial dequeue leaves items behind.
func (q *FIFO[T]) Ready() <-chan struct{} {
	return q.ready
}
