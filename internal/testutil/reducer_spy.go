package testutil

import "sync"

// ReduceCall is one recorded Reduce invocation.
type ReduceCall[S, E any] struct {
	State S
	Event E
}

// Stub is one canned reducer result.
type Stub[S, F any] struct {
	State  S
	Effect *F
}

// ReducerSpy returns stubbed results in order and records every call.
//
// Panics when called more times than it has stubs, which means the test
// produced more transitions than it declared.
//
// Thread-safety: safe for concurrent use.
type ReducerSpy[S, E, F any] struct {
	mu    sync.Mutex
	stubs []Stub[S, F]
	calls []ReduceCall[S, E]
}

// NewReducerSpy creates a spy answering with stubs in order.
func NewReducerSpy[S, E, F any](stubs ...Stub[S, F]) *ReducerSpy[S, E, F] {
	return &ReducerSpy[S, E, F]{stubs: stubs}
}

// Reduce implements engine.Reducer.
func (r *ReducerSpy[S, E, F]) Reduce(state S, event E) (S, *F) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.calls) >= len(r.stubs) {
		panic("ReducerSpy: all stubs consumed")
	}
	stub := r.stubs[len(r.calls)]
	r.calls = append(r.calls, ReduceCall[S, E]{State: state, Event: event})
	return stub.State, stub.Effect
}

// Calls returns a copy of the recorded calls.
func (r *ReducerSpy[S, E, F]) Calls() []ReduceCall[S, E] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ReduceCall[S, E](nil), r.calls...)
}

// CallCount returns the number of Reduce calls.
func (r *ReducerSpy[S, E, F]) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// States returns the state argument of every call.
func (r *ReducerSpy[S, E, F]) States() []S {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]S, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.State
	}
	return out
}

// Events returns the event argument of every call.
func (r *ReducerSpy[S, E, F]) Events() []E {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]E, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.Event
	}
	return out
}
