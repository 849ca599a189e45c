package testutil

import (
	"context"
	"sync"
	"time"
)

// Stream is the read side of a state subscription.
type Stream[S any] interface {
	TryNext() (S, bool)
	Next(ctx context.Context) (S, error)
}

// ValueSpy collects every value delivered on a stream.
//
// Thread-safety: safe for concurrent use.
type ValueSpy[S any] struct {
	mu     sync.Mutex
	stream Stream[S]
	values []S
}

// NewValueSpy starts collecting from stream.
func NewValueSpy[S any](stream Stream[S]) *ValueSpy[S] {
	return &ValueSpy[S]{stream: stream}
}

// Values returns every value delivered so far, without blocking.
func (v *ValueSpy[S]) Values() []S {
	v.mu.Lock()
	defer v.mu.Unlock()

	for {
		s, ok := v.stream.TryNext()
		if !ok {
			break
		}
		v.values = append(v.values, s)
	}
	return append([]S(nil), v.values...)
}

// WaitFor blocks until at least n values were delivered or timeout elapses,
// then returns everything collected.
func (v *ValueSpy[S]) WaitFor(n int, timeout time.Duration) []S {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	v.mu.Lock()
	defer v.mu.Unlock()

	for len(v.values) < n {
		s, err := v.stream.Next(ctx)
		if err != nil {
			break
		}
		v.values = append(v.values, s)
	}
	return append([]S(nil), v.values...)
}
