package engine

import (
	"context"
	"errors"
	"iter"
	"sync"

	"github.com/roach88/rxflow/internal/queue"
)

// listener receives committed states. seq is the clock value of the commit.
type listener[S any] struct {
	id      uint64
	deliver func(seq int64, state S)
	close   func()
}

// broadcaster fans committed states out to listeners in registration order.
// publish is only ever called from the drain loop, so deliveries for one
// engine never overlap.
type broadcaster[S any] struct {
	mu        sync.Mutex
	nextID    uint64
	listeners []listener[S]
	closed    bool
}

func (b *broadcaster[S]) add(deliver func(int64, S), closeFn func()) (uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, false
	}
	b.nextID++
	b.listeners = append(b.listeners, listener[S]{id: b.nextID, deliver: deliver, close: closeFn})
	return b.nextID, true
}

func (b *broadcaster[S]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, l := range b.listeners {
		if l.id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return
		}
	}
}

func (b *broadcaster[S]) publish(seq int64, state S) {
	b.mu.Lock()
	snapshot := make([]listener[S], len(b.listeners))
	copy(snapshot, b.listeners)
	b.mu.Unlock()

	for _, l := range snapshot {
		l.deliver(seq, state)
	}
}

// closeAll removes every listener, running its close hook, and rejects
// further registrations.
func (b *broadcaster[S]) closeAll() {
	b.mu.Lock()
	snapshot := b.listeners
	b.listeners = nil
	b.closed = true
	b.mu.Unlock()

	for _, l := range snapshot {
		if l.close != nil {
			l.close()
		}
	}
}

// Subscription is a lazy, infinite, non-restartable stream of states.
//
// Values are buffered without bound so a slow reader never stalls the engine.
// The stream ends when the subscription is cancelled or the engine disposed;
// values buffered before that point can still be read.
type Subscription[S any] struct {
	buf    *queue.FIFO[S]
	cancel func()
	once   sync.Once
}

func newSubscription[S any]() *Subscription[S] {
	return &Subscription[S]{buf: queue.New[S]()}
}

// Next blocks until the next state is available.
// Returns ErrSubscriptionClosed once the stream has ended and been drained.
func (s *Subscription[S]) Next(ctx context.Context) (S, error) {
	v, err := s.buf.Dequeue(ctx)
	if errors.Is(err, queue.ErrClosed) {
		return v, ErrSubscriptionClosed
	}
	return v, err
}

// TryNext returns the next buffered state without blocking.
func (s *Subscription[S]) TryNext() (S, bool) {
	return s.buf.TryDequeue()
}

// Pending returns the number of buffered, unread states.
func (s *Subscription[S]) Pending() int {
	return s.buf.Len()
}

// All returns an iterator over the stream. Iteration stops when the stream
// ends, ctx is done, or the loop body breaks.
func (s *Subscription[S]) All(ctx context.Context) iter.Seq[S] {
	return func(yield func(S) bool) {
		for {
			v, err := s.Next(ctx)
			if err != nil {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Cancel ends the stream and detaches it from its source. Idempotent.
func (s *Subscription[S]) Cancel() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.buf.Close()
	})
}

// Closed reports whether the stream has ended.
func (s *Subscription[S]) Closed() bool {
	return s.buf.Closed()
}

// Feed is a multi-subscriber state stream with a current value. It is the
// building block for Engine subscriptions and for derived streams such as the
// observation adapter's.
type Feed[S any] struct {
	mu      sync.Mutex
	current S
	seq     int64
	out     broadcaster[S]
}

// NewFeed creates a feed holding initial.
func NewFeed[S any](initial S) *Feed[S] {
	return &Feed[S]{current: initial}
}

// Current returns the latest value.
func (f *Feed[S]) Current() S {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Publish stores state as the current value and delivers it to every
// subscriber and listener. Callers must serialize Publish calls.
func (f *Feed[S]) Publish(state S) {
	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.current = state
	f.mu.Unlock()

	f.out.publish(seq, state)
}

// Subscribe returns a stream whose first value is the current value, followed
// by every later Publish.
func (f *Feed[S]) Subscribe() *Subscription[S] {
	sub := newSubscription[S]()

	f.mu.Lock()
	seed, seedSeq := f.current, f.seq
	sub.buf.Enqueue(seed)
	id, ok := f.out.add(func(seq int64, s S) {
		if seq > seedSeq {
			sub.buf.Enqueue(s)
		}
	}, sub.buf.Close)
	f.mu.Unlock()

	if !ok {
		sub.buf.Close()
		return sub
	}
	sub.cancel = func() { f.out.remove(id) }
	return sub
}

// Listen registers fn to be called synchronously for every later Publish.
// The returned function unregisters it.
func (f *Feed[S]) Listen(fn func(S)) (cancel func()) {
	_, cancel = f.ListenFrom(fn)
	return cancel
}

// ListenFrom is Listen that also returns the current value. The value and the
// registration are taken together, so fn sees exactly the Publish calls that
// come after seed.
func (f *Feed[S]) ListenFrom(fn func(S)) (seed S, cancel func()) {
	f.mu.Lock()
	seed, seedSeq := f.current, f.seq
	id, ok := f.out.add(func(seq int64, s S) {
		if seq > seedSeq {
			fn(s)
		}
	}, nil)
	f.mu.Unlock()

	if !ok {
		return seed, func() {}
	}
	return seed, func() { f.out.remove(id) }
}

// Close ends every subscription. Later Subscribe calls return an already
// ended stream seeded with the final value.
func (f *Feed[S]) Close() {
	f.out.closeAll()
}
