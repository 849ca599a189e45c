package engine

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/roach88/rxflow/internal/queue"
	"github.com/roach88/rxflow/internal/sched"
)

// Transition records the outcome of one processed event. Exactly one is
// produced per dequeued event while the engine is alive.
type Transition[S, E, F any] struct {
	EngineID string
	Seq      int64
	Event    E
	Prev     S
	Next     S  // zero when Err is set
	Effect   *F // nil when the reducer requested no effect or Err is set
	Skipped  bool
	Err      error
}

// Committed reports whether the transition changed state and was emitted.
func (t Transition[S, E, F]) Committed() bool {
	return t.Err == nil && !t.Skipped
}

type transitionHook[S, E, F any] struct {
	id uint64
	fn func(Transition[S, E, F])
}

// Engine is the event-processing core.
//
// Thread-safety model:
//   - Event(), CurrentState(), Subscribe(), Listen(), ListenFrom(), Dispose():
//     safe from any goroutine
//   - Reducer, Predicate, listeners, transition hooks: called on the drain
//     goroutine, one step at a time
//   - EffectHandler: invoked on the drain goroutine; its work and its
//     dispatch calls may happen anywhere
//
// INVARIANTS:
//   - Events are reduced in one global FIFO order, effect-originated or not
//   - At most one drain loop runs per engine
//   - With a Predicate, no two consecutive emissions are equal by it
//   - After Dispose, nothing mutates state or emits
type Engine[S, E, F any] struct {
	id        string
	reducer   Reducer[S, E, F]
	try       TryReducer[S, E, F]
	handler   EffectHandler[E, F]
	predicate Predicate[S]
	scheduler sched.Scheduler
	errorSink func(error)
	logger    *slog.Logger

	clock *Clock
	queue *queue.FIFO[E]
	state *Feed[S]
	alive atomic.Bool

	mu       sync.Mutex
	draining bool

	hooksMu  sync.Mutex
	hooks    []transitionHook[S, E, F]
	nextHook uint64
}

// New creates an Engine holding initial.
//
// handler may be nil for reducers that never request effects; an effect
// produced anyway is logged and dropped.
//
// Options can be passed to configure the engine (e.g., WithPredicate).
func New[S, E, F any](initial S, reducer Reducer[S, E, F], handler EffectHandler[E, F], opts ...Option) *Engine[S, E, F] {
	st := settings{
		scheduler: sched.Immediate,
		idGen:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(&st)
	}
	if st.logger == nil {
		st.logger = slog.Default()
	}
	if st.id == "" {
		st.id = st.idGen.Generate()
	}

	e := &Engine[S, E, F]{
		id:        st.id,
		reducer:   reducer,
		handler:   handler,
		scheduler: st.scheduler,
		logger:    st.logger,
		clock:     NewClock(),
		queue:     queue.New[E](),
		state:     NewFeed(initial),
	}
	if tr, ok := reducer.(TryReducer[S, E, F]); ok {
		e.try = tr
	}
	if st.predicate != nil {
		p, ok := st.predicate.(Predicate[S])
		if !ok {
			panic(fmt.Sprintf("engine: predicate %T does not compare %v", st.predicate, reflect.TypeFor[S]()))
		}
		e.predicate = p
	}
	e.errorSink = st.errorSink
	if e.errorSink == nil {
		e.errorSink = e.logError
	}
	e.alive.Store(true)

	e.logger.Debug("engine created", "engine", e.id, "skip_equal", e.predicate != nil)
	return e
}

// NewDistinct creates an Engine that skips transitions producing a state
// equal (==) to the current one. Later options override the predicate.
func NewDistinct[S comparable, E, F any](initial S, reducer Reducer[S, E, F], handler EffectHandler[E, F], opts ...Option) *Engine[S, E, F] {
	equal := Predicate[S](func(prev, next S) bool { return prev == next })
	return New(initial, reducer, handler, append([]Option{WithPredicate(equal)}, opts...)...)
}

// ID returns the engine instance ID.
func (e *Engine[S, E, F]) ID() string {
	return e.id
}

// CurrentState returns the latest committed state.
func (e *Engine[S, E, F]) CurrentState() S {
	return e.state.Current()
}

// Subscribe returns a stream of states starting with the current state,
// followed by every later emission. Each call creates an independent stream.
func (e *Engine[S, E, F]) Subscribe() *Subscription[S] {
	return e.state.Subscribe()
}

// Updates is Subscribe as an iterator. The subscription is cancelled when the
// loop ends.
func (e *Engine[S, E, F]) Updates(ctx context.Context) iter.Seq[S] {
	return func(yield func(S) bool) {
		sub := e.Subscribe()
		defer sub.Cancel()
		for s := range sub.All(ctx) {
			if !yield(s) {
				return
			}
		}
	}
}

// Listen registers fn to be called synchronously on the drain goroutine with
// every later emission, in order. fn must not block. A panic in fn is
// reported to the error sink and does not stop the drain.
func (e *Engine[S, E, F]) Listen(fn func(S)) (cancel func()) {
	return e.state.Listen(e.guardListener(fn))
}

// ListenFrom is Listen that also returns the state current at registration.
// fn receives every emission after seed and nothing earlier.
func (e *Engine[S, E, F]) ListenFrom(fn func(S)) (seed S, cancel func()) {
	return e.state.ListenFrom(e.guardListener(fn))
}

func (e *Engine[S, E, F]) guardListener(fn func(S)) func(S) {
	return func(s S) {
		defer func() {
			if r := recover(); r != nil {
				e.errorSink(e.runtimeError(ErrCodeListenerPanic, e.clock.Current(), r))
			}
		}()
		fn(s)
	}
}

// OnTransition registers fn to receive a record of every processed event,
// including skipped and failed ones. Called on the drain goroutine after the
// commit and before the effect is handed off.
func (e *Engine[S, E, F]) OnTransition(fn func(Transition[S, E, F])) (cancel func()) {
	e.hooksMu.Lock()
	defer e.hooksMu.Unlock()

	e.nextHook++
	id := e.nextHook
	e.hooks = append(e.hooks, transitionHook[S, E, F]{id: id, fn: fn})

	return func() {
		e.hooksMu.Lock()
		defer e.hooksMu.Unlock()
		for i, h := range e.hooks {
			if h.id == id {
				e.hooks = append(e.hooks[:i:i], e.hooks[i+1:]...)
				return
			}
		}
	}
}

// Event submits an event for processing. It never returns an error and never
// waits for effects: failures go to the error sink, and events submitted
// after Dispose are dropped.
//
// When the engine is idle the caller's goroutine hands a drain to the
// scheduler; with sched.Immediate that drain runs before Event returns.
// Events submitted while a drain is running, including from inside an effect
// handler, are queued behind everything already waiting.
func (e *Engine[S, E, F]) Event(event E) {
	if !e.alive.Load() {
		e.logger.Debug("event dropped: engine disposed", "engine", e.id)
		return
	}
	if !e.queue.Enqueue(event) {
		return
	}

	e.mu.Lock()
	if e.draining {
		e.mu.Unlock()
		return
	}
	e.draining = true
	e.mu.Unlock()

	if ts, ok := e.scheduler.(sched.TryScheduler); ok {
		if !ts.TrySchedule(e.drain) {
			// The event stays queued for a later drain.
			e.mu.Lock()
			e.draining = false
			e.mu.Unlock()
			e.errorSink(e.runtimeError(ErrCodeScheduleRejected, e.clock.Current(), nil))
		}
		return
	}
	e.scheduler.Schedule(e.drain)
}

// Dispose stops the engine. Queued events are dropped, subscriptions end,
// and every outstanding dispatch callback becomes a no-op. Idempotent.
func (e *Engine[S, E, F]) Dispose() {
	if !e.alive.CompareAndSwap(true, false) {
		return
	}
	dropped := e.queue.Clear()
	e.queue.Close()
	e.state.Close()

	e.logger.Debug("engine disposed", "engine", e.id, "dropped_events", dropped)
}

// Disposed reports whether Dispose has been called.
func (e *Engine[S, E, F]) Disposed() bool {
	return !e.alive.Load()
}

// QueueLen returns the number of events waiting to be reduced.
func (e *Engine[S, E, F]) QueueLen() int {
	return e.queue.Len()
}

// Seq returns the clock value of the most recently processed event.
func (e *Engine[S, E, F]) Seq() int64 {
	return e.clock.Current()
}

// dispatcher returns the callback handed to the effect handler. It holds only
// a weak pointer to the engine, so a pending effect neither keeps a dropped
// engine reachable nor revives a disposed one.
func (e *Engine[S, E, F]) dispatcher() Dispatch[E] {
	ref := weak.Make(e)
	return func(event E) {
		eng := ref.Value()
		if eng == nil || !eng.alive.Load() {
			return
		}
		eng.Event(event)
	}
}

// drain processes queued events until the queue is empty.
// CRITICAL: at most one drain runs at a time (guarded by draining).
func (e *Engine[S, E, F]) drain() {
	defer func() {
		// Listener and hook panics are contained per call; this covers
		// anything else escaping step.
		if r := recover(); r != nil {
			e.mu.Lock()
			e.draining = false
			e.mu.Unlock()
			panic(r)
		}
	}()

	for {
		e.mu.Lock()
		event, ok := e.queue.TryDequeue()
		if !ok || !e.alive.Load() {
			e.draining = false
			e.mu.Unlock()
			return
		}
		e.mu.Unlock()

		e.step(event)
	}
}

// step runs one event through reduce, predicate, commit, and effect hand-off.
func (e *Engine[S, E, F]) step(event E) {
	seq := e.clock.Next()
	current := e.state.Current()

	e.logger.Debug("processing event", "engine", e.id, "seq", seq)

	next, effect, skip, err := e.compute(seq, current, event)
	tr := Transition[S, E, F]{
		EngineID: e.id,
		Seq:      seq,
		Event:    event,
		Prev:     current,
	}
	if err != nil {
		tr.Err = err
		e.errorSink(err)
		e.emitTransition(tr)
		return
	}

	// Disposed mid-reduce: discard the result entirely.
	if !e.alive.Load() {
		return
	}

	tr.Next = next
	tr.Effect = effect
	tr.Skipped = skip
	if skip {
		e.logger.Debug("transition skipped by predicate", "engine", e.id, "seq", seq)
	} else {
		e.state.Publish(next)
	}
	e.emitTransition(tr)

	if effect != nil && e.alive.Load() {
		e.handleEffect(seq, *effect)
	}
}

// compute calls the reducer and predicate, converting failures to
// RuntimeErrors.
func (e *Engine[S, E, F]) compute(seq int64, current S, event E) (next S, effect *F, skip bool, err error) {
	code := ErrCodeReducerPanic
	defer func() {
		if r := recover(); r != nil {
			var zero S
			next, effect, skip = zero, nil, false
			err = e.runtimeError(code, seq, r)
		}
	}()

	if e.try != nil {
		var rerr error
		next, effect, rerr = e.try.TryReduce(current, event)
		if rerr != nil {
			var zero S
			return zero, nil, false, e.runtimeError(ErrCodeReducerFailed, seq, rerr)
		}
	} else {
		next, effect = e.reducer.Reduce(current, event)
	}

	if e.predicate != nil {
		code = ErrCodePredicatePanic
		skip = e.predicate(current, next)
	}
	return next, effect, skip, nil
}

// handleEffect invokes the effect handler, containing a panic raised while
// starting the effect.
func (e *Engine[S, E, F]) handleEffect(seq int64, effect F) {
	if e.handler == nil {
		e.logger.Warn("effect dropped: no effect handler", "engine", e.id, "seq", seq)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.errorSink(e.runtimeError(ErrCodeEffectPanic, seq, r))
		}
	}()
	e.handler.HandleEffect(effect, e.dispatcher())
}

func (e *Engine[S, E, F]) emitTransition(tr Transition[S, E, F]) {
	e.hooksMu.Lock()
	hooks := make([]transitionHook[S, E, F], len(e.hooks))
	copy(hooks, e.hooks)
	e.hooksMu.Unlock()

	for _, h := range hooks {
		e.callHook(h.fn, tr)
	}
}

func (e *Engine[S, E, F]) callHook(fn func(Transition[S, E, F]), tr Transition[S, E, F]) {
	defer func() {
		if r := recover(); r != nil {
			e.errorSink(e.runtimeError(ErrCodeListenerPanic, tr.Seq, r))
		}
	}()
	fn(tr)
}

var runtimeErrorMessages = map[RuntimeErrorCode]string{
	ErrCodeReducerFailed:    "reducer failed, event dropped",
	ErrCodeReducerPanic:     "reducer panicked, event dropped",
	ErrCodePredicatePanic:   "predicate panicked, event dropped",
	ErrCodeEffectPanic:      "effect handler panicked",
	ErrCodeListenerPanic:    "listener panicked",
	ErrCodeScheduleRejected: "scheduler rejected drain, events remain queued",
}

func (e *Engine[S, E, F]) runtimeError(code RuntimeErrorCode, seq int64, cause any) *RuntimeError {
	re := newRuntimeError(code, runtimeErrorMessages[code], cause)
	re.EngineID = e.id
	re.Seq = seq
	return re
}

// logError is the default error sink.
func (e *Engine[S, E, F]) logError(err error) {
	e.logger.Error("event processing failed",
		"engine", e.id,
		"error", err,
	)
}
