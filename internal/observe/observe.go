// Package observe derives a secondary state stream from an engine, pairing
// every change with an observer callback and delivering it on a chosen
// scheduler.
//
// ARCHITECTURE:
//
//	Source.ListenFrom ──▶ scheduler.Schedule ──▶ observe(prev, next) ──▶ Feed.Publish
//
// The observer and the delivery run in the same scheduled task, observer
// first, so each observer call corresponds to exactly one delivered state.
//
// SEEDING:
// The adapter starts from the source's state at construction, taken together
// with the listener registration so no emission falls between the two. That
// value is the first "previous": the first observer call pairs it with the
// first real change. No observer call is made for the seed itself.
package observe

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/rxflow/internal/engine"
	"github.com/roach88/rxflow/internal/sched"
)

// Source is the part of an engine the adapter needs.
// *engine.Engine satisfies it.
//
// ListenFrom returns the current state and registers fn for every emission
// after it. fn must not be called on the caller's goroutine before
// ListenFrom returns.
type Source[S, E any] interface {
	ListenFrom(fn func(S)) (seed S, cancel func())
	Event(event E)
}

// ObserveFunc receives the previous and the new state of every change.
type ObserveFunc[S any] func(prev, next S)

// Adapter relays a Source's states on its own scheduler.
//
// Thread-safety: all methods are safe for concurrent use. The observer runs
// on the adapter's scheduler, never concurrently with itself when that
// scheduler is serial.
type Adapter[S, E any] struct {
	src       Source[S, E]
	observe   ObserveFunc[S]
	scheduler sched.Scheduler
	logger    *slog.Logger

	mu   sync.Mutex // serializes observe+publish
	prev S
	feed *engine.Feed[S]

	stop    func()
	onClose func()
	closed  atomic.Bool
}

type config struct {
	scheduler  sched.Scheduler
	logger     *slog.Logger
	engineOpts []engine.Option
}

// Option configures an Adapter.
type Option func(*config)

// WithScheduler sets where the observer runs and states are delivered.
// Default: sched.Immediate, i.e. on the source's drain goroutine.
func WithScheduler(s sched.Scheduler) Option {
	return func(c *config) {
		c.scheduler = s
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithEngineOptions passes options to the engine built by NewEngine.
// Ignored by New.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(c *config) {
		c.engineOpts = append(c.engineOpts, opts...)
	}
}

// New creates an adapter over src calling fn with every (prev, next) pair.
// fn may be nil.
func New[S, E any](src Source[S, E], fn ObserveFunc[S], opts ...Option) *Adapter[S, E] {
	cfg := config{scheduler: sched.Immediate}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	a := &Adapter[S, E]{
		src:       src,
		observe:   fn,
		scheduler: cfg.scheduler,
		logger:    cfg.logger,
	}

	// Deliveries racing construction wait on mu until the seed is in place.
	a.mu.Lock()
	seed, stop := src.ListenFrom(a.relay)
	a.prev = seed
	a.feed = engine.NewFeed(seed)
	a.stop = stop
	a.mu.Unlock()
	return a
}

// NewSingle creates an adapter whose observer only wants the new state.
func NewSingle[S, E any](src Source[S, E], fn func(S), opts ...Option) *Adapter[S, E] {
	var observe ObserveFunc[S]
	if fn != nil {
		observe = func(_, next S) { fn(next) }
	}
	return New(src, observe, opts...)
}

// NewEngine builds an engine and an adapter over it. The adapter owns the
// engine: Close disposes it.
func NewEngine[S, E, F any](
	initial S,
	reducer engine.Reducer[S, E, F],
	handler engine.EffectHandler[E, F],
	fn ObserveFunc[S],
	opts ...Option,
) *Adapter[S, E] {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	eng := engine.New(initial, reducer, handler, cfg.engineOpts...)
	a := New[S, E](eng, fn, opts...)
	a.onClose = eng.Dispose
	return a
}

// relay runs on the source's drain goroutine for every emission.
func (a *Adapter[S, E]) relay(next S) {
	if a.closed.Load() {
		return
	}
	a.scheduler.Schedule(func() { a.deliver(next) })
}

func (a *Adapter[S, E]) deliver(next S) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Close may have run between relay and now.
	if a.closed.Load() {
		return
	}
	prev := a.prev
	a.prev = next
	if a.observe != nil {
		a.callObserver(prev, next)
	}
	a.feed.Publish(next)
}

// callObserver contains an observer panic so the state is still delivered.
func (a *Adapter[S, E]) callObserver(prev, next S) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("observer panicked", "panic", r)
		}
	}()
	a.observe(prev, next)
}

// CurrentState returns the most recently delivered state.
func (a *Adapter[S, E]) CurrentState() S {
	return a.feed.Current()
}

// Subscribe returns an independent stream starting with the adapter's current
// state, followed by every later delivery.
func (a *Adapter[S, E]) Subscribe() *engine.Subscription[S] {
	return a.feed.Subscribe()
}

// Event forwards to the source.
func (a *Adapter[S, E]) Event(event E) {
	a.src.Event(event)
}

// Close detaches from the source and ends every subscription. Deliveries
// already scheduled are dropped. Idempotent.
func (a *Adapter[S, E]) Close() {
	if !a.closed.CompareAndSwap(false, true) {
		return
	}
	a.stop()

	a.mu.Lock()
	a.feed.Close()
	a.mu.Unlock()

	if a.onClose != nil {
		a.onClose()
	}
}
