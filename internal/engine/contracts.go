package engine

// Reducer computes the next state and an optional effect from the current
// state and an event. Implementations must be pure: no I/O, no blocking, no
// dependence on anything but the arguments. A nil effect means no further
// asynchronous work for this transition.
type Reducer[S, E, F any] interface {
	Reduce(state S, event E) (S, *F)
}

// ReducerFunc adapts a function to the Reducer interface.
type ReducerFunc[S, E, F any] func(state S, event E) (S, *F)

// Reduce calls f(state, event).
func (f ReducerFunc[S, E, F]) Reduce(state S, event E) (S, *F) {
	return f(state, event)
}

// TryReducer is implemented by reducers whose transitions can fail.
// When a Reducer also implements TryReducer the Engine calls TryReduce; a
// non-nil error drops the event and leaves state unchanged.
type TryReducer[S, E, F any] interface {
	TryReduce(state S, event E) (S, *F, error)
}

// TryReducerFunc adapts a fallible function to both Reducer and TryReducer.
type TryReducerFunc[S, E, F any] func(state S, event E) (S, *F, error)

// TryReduce calls f(state, event).
func (f TryReducerFunc[S, E, F]) TryReduce(state S, event E) (S, *F, error) {
	return f(state, event)
}

// Reduce calls f and panics on error. The Engine never takes this path; it
// exists so TryReducerFunc satisfies Reducer.
func (f TryReducerFunc[S, E, F]) Reduce(state S, event E) (S, *F) {
	next, effect, err := f(state, event)
	if err != nil {
		panic(err)
	}
	return next, effect
}

// ReduceInPlace applies r to *state, stores the next state there, and returns
// the effect.
func ReduceInPlace[S, E, F any](r Reducer[S, E, F], state *S, event E) *F {
	next, effect := r.Reduce(*state, event)
	*state = next
	return effect
}

// Dispatch delivers an event back into an Engine. It may be called any number
// of times, from any goroutine.
type Dispatch[E any] func(event E)

// EffectHandler performs the work an Effect describes and reports outcomes by
// calling dispatch zero or more times, synchronously or later.
//
// Handlers own their own timeouts: one that never calls dispatch leaves that
// chain pending forever.
type EffectHandler[E, F any] interface {
	HandleEffect(effect F, dispatch Dispatch[E])
}

// EffectHandlerFunc adapts a function to the EffectHandler interface.
type EffectHandlerFunc[E, F any] func(effect F, dispatch Dispatch[E])

// HandleEffect calls f(effect, dispatch).
func (f EffectHandlerFunc[E, F]) HandleEffect(effect F, dispatch Dispatch[E]) {
	f(effect, dispatch)
}

// Predicate reports whether next should be treated as equal to prev, in which
// case the transition is skipped: nothing is emitted and state is unchanged.
type Predicate[S any] func(prev, next S) bool
