// Package queue provides the unbounded FIFO used wherever rxflow needs to
// hand values from producers on arbitrary goroutines to a single consumer:
// the engine's event queue, subscription buffers, and serial schedulers.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Dequeue once the queue is closed and drained.
var ErrClosed = errors.New("queue closed")

// FIFO is a thread-safe, unbounded first-in first-out queue.
//
// The queue is unbounded so producers (including effect callbacks that fire
// while the consumer is mid-step) never block.
//
// A buffered signal channel of size 1 lets consumers wait with select and a
// context instead of spinning.
type FIFO[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	signal chan struct{}
}

// New creates an empty queue.
func New[T any]() *FIFO[T] {
	return &FIFO[T]{
		items:  make([]T, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds v to the back of the queue.
// Safe from any goroutine. Returns false if the queue is closed.
func (q *FIFO[T]) Enqueue(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, v)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes and returns the front value without blocking.
// Returns false if the queue is empty.
func (q *FIFO[T]) TryDequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	v := q.items[0]

	// Clear the slot so the backing array does not pin the value.
	q.items[0] = zero

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return v, true
}

// Dequeue blocks until a value is available, the queue is closed and empty,
// or ctx is done.
func (q *FIFO[T]) Dequeue(ctx context.Context) (T, error) {
	var zero T
	for {
		if v, ok := q.TryDequeue(); ok {
			return v, nil
		}

		q.mu.Lock()
		done := q.closed && len(q.items) == 0
		q.mu.Unlock()
		if done {
			return zero, ErrClosed
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-q.signal:
		}
	}
}

// Wait returns a channel that signals when values may be available.
// The channel is closed when the queue is closed.
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // TryDequeue
//	}
func (q *FIFO[T]) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued values.
func (q *FIFO[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear drops every queued value and returns how many were dropped.
// The queue stays open.
func (q *FIFO[T]) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	clear(q.items)
	q.items = q.items[:0]
	return n
}

// Close signals that no more values will be enqueued and wakes any waiters.
// Values already queued can still be dequeued. Close is idempotent.
func (q *FIFO[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// Closed reports whether Close has been called.
func (q *FIFO[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
