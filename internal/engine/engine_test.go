package engine_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxflow/internal/engine"
	"github.com/roach88/rxflow/internal/sched"
	"github.com/roach88/rxflow/internal/testutil"
)

type state struct {
	Value string
}

type event struct {
	Kind  string
	Value string
}

type effect struct {
	Kind string
}

type (
	reducerSpy = testutil.ReducerSpy[state, event, effect]
	handlerSpy = testutil.EffectHandlerSpy[event, effect]
	stub       = testutil.Stub[state, effect]
)

func makeSUT(t *testing.T, initial state, stubs ...stub) (*engine.Engine[state, event, effect], *reducerSpy, *handlerSpy) {
	t.Helper()
	reducer := testutil.NewReducerSpy[state, event, effect](stubs...)
	handler := testutil.NewEffectHandlerSpy[event, effect]()
	sut := engine.New[state, event, effect](initial, reducer, handler, engine.WithID("test-engine"))
	t.Cleanup(sut.Dispose)
	return sut, reducer, handler
}

func load() *effect { return &effect{Kind: "load"} }

func TestEngine_New_DoesNotCallCollaborators(t *testing.T) {
	_, reducer, handler := makeSUT(t, state{"s0"})

	assert.Equal(t, 0, reducer.CallCount())
	assert.Equal(t, 0, handler.CallCount())
}

func TestEngine_New_IDDefaultsToUUID(t *testing.T) {
	e := engine.New[string, string, struct{}]("", engine.ReducerFunc[string, string, struct{}](
		func(s, _ string) (string, *struct{}) { return s, nil },
	), nil)
	assert.Len(t, e.ID(), 36)

	fixed := engine.New[string, string, struct{}]("", engine.ReducerFunc[string, string, struct{}](
		func(s, _ string) (string, *struct{}) { return s, nil },
	), nil, engine.WithIDGenerator(engine.NewFixedGenerator("engine-a")))
	assert.Equal(t, "engine-a", fixed.ID())
}

func TestEngine_Event_CallsReducerWithStateAndEvent(t *testing.T) {
	initial := state{"s0"}
	sut, reducer, _ := makeSUT(t, initial, stub{State: state{"s1"}})

	sut.Event(event{Kind: "reset"})

	assert.Equal(t, []state{initial}, reducer.States())
	assert.Equal(t, []event{{Kind: "reset"}}, reducer.Events())
	assert.Equal(t, state{"s1"}, sut.CurrentState())
}

func TestEngine_Event_NilEffectSkipsHandler(t *testing.T) {
	sut, _, handler := makeSUT(t, state{"s0"}, stub{State: state{"s1"}})

	sut.Event(event{Kind: "reset"})

	assert.Equal(t, 0, handler.CallCount())
}

func TestEngine_Event_NonNilEffectCallsHandler(t *testing.T) {
	sut, _, handler := makeSUT(t, state{"s0"}, stub{State: state{"s1"}, Effect: load()})

	sut.Event(event{Kind: "reset"})

	assert.Equal(t, []effect{{Kind: "load"}}, handler.Effects())
}

func TestEngine_EffectCompletion_ReducesFollowUpEvent(t *testing.T) {
	initial := state{"s0"}
	first := stub{State: state{"s1"}, Effect: load()}
	last := stub{State: state{"s2"}}
	sut, reducer, handler := makeSUT(t, initial, first, last)
	spy := testutil.NewValueSpy(sut.Subscribe())

	sut.Event(event{Kind: "reset"})
	handler.Complete(event{Kind: "changeValueTo", Value: "x"})

	assert.Equal(t, 2, reducer.CallCount())
	assert.Equal(t, []state{initial, first.State}, reducer.States())
	assert.Equal(t, []event{{Kind: "reset"}, {Kind: "changeValueTo", Value: "x"}}, reducer.Events())
	assert.Equal(t, []state{initial, first.State, last.State}, spy.Values())
}

// stringReducer appends the event to the state; "set" appends "-" and asks
// for a load effect.
func stringReducer() engine.ReducerFunc[string, string, string] {
	return func(s, e string) (string, *string) {
		if e == "set" {
			eff := "load"
			return s + "-", &eff
		}
		return s + e, nil
	}
}

func TestEngine_Subscribe_FirstValueIsInitialState(t *testing.T) {
	e := engine.New[string, string, string]("S0", stringReducer(), nil)
	defer e.Dispose()

	sub := e.Subscribe()
	v, ok := sub.TryNext()
	require.True(t, ok)
	assert.Equal(t, "S0", v)

	_, ok = sub.TryNext()
	assert.False(t, ok, "nothing else before any event")
}

func TestEngine_PureTransitions_EmitInOrder(t *testing.T) {
	e := engine.New[string, string, string]("S0", stringReducer(), nil)
	defer e.Dispose()
	spy := testutil.NewValueSpy(e.Subscribe())

	e.Event("a")
	e.Event("b")

	assert.Equal(t, []string{"S0", "S0a", "S0ab"}, spy.Values())
}

func TestEngine_EffectRoundTrip_QueuesBehindEarlierEvents(t *testing.T) {
	handler := testutil.NewEffectHandlerSpy[string, string]()
	e := engine.New[string, string, string]("S0", stringReducer(), handler)
	defer e.Dispose()
	spy := testutil.NewValueSpy(e.Subscribe())

	e.Event("set")
	e.Event("set") // submitted before the first effect completes
	handler.Complete("A", 0)

	assert.Equal(t, []string{"S0", "S0-", "S0--", "S0--A"}, spy.Values())
	assert.Equal(t, []string{"load", "load"}, handler.Effects())
}

func TestEngine_EffectRoundTrip_SingleSet(t *testing.T) {
	handler := testutil.NewEffectHandlerSpy[string, string]()
	e := engine.New[string, string, string]("S0", stringReducer(), handler)
	defer e.Dispose()
	spy := testutil.NewValueSpy(e.Subscribe())

	e.Event("set")
	handler.Complete("A")

	assert.Equal(t, []string{"S0", "S0-", "S0-A"}, spy.Values())
}

func TestEngine_Predicate_SkipsEquivalentStates(t *testing.T) {
	prefix3 := func(s string) string {
		if len(s) > 3 {
			return s[:3]
		}
		return s
	}
	skip := engine.Predicate[string](func(a, b string) bool { return prefix3(a) == prefix3(b) })

	replace := engine.ReducerFunc[string, string, string](func(_ string, e string) (string, *string) {
		return e, nil
	})
	e := engine.New[string, string, string]("abcdef", replace, nil, engine.WithPredicate(skip))
	defer e.Dispose()
	spy := testutil.NewValueSpy(e.Subscribe())

	e.Event("abcXYZ") // only changes beyond the first 3 characters
	assert.Equal(t, []string{"abcdef"}, spy.Values())
	assert.Equal(t, "abcdef", e.CurrentState(), "skipped transition leaves state unchanged")

	e.Event("xyzdef")
	assert.Equal(t, []string{"abcdef", "xyzdef"}, spy.Values())
}

func TestEngine_NoPredicate_EmitsEqualStates(t *testing.T) {
	same := engine.ReducerFunc[string, string, string](func(s, _ string) (string, *string) {
		return s, nil
	})
	e := engine.New[string, string, string]("S0", same, nil)
	defer e.Dispose()
	spy := testutil.NewValueSpy(e.Subscribe())

	e.Event("x")
	e.Event("y")

	assert.Equal(t, []string{"S0", "S0", "S0"}, spy.Values())
}

func TestEngine_NewDistinct_SkipsEqualStates(t *testing.T) {
	same := engine.ReducerFunc[string, string, string](func(s, e string) (string, *string) {
		if e == "change" {
			return s + "!", nil
		}
		return s, nil
	})
	e := engine.NewDistinct[string, string, string]("S0", same, nil)
	defer e.Dispose()
	spy := testutil.NewValueSpy(e.Subscribe())

	e.Event("noop")
	e.Event("change")
	e.Event("noop")

	assert.Equal(t, []string{"S0", "S0!"}, spy.Values())
}

func TestEngine_Predicate_TypeMismatchPanics(t *testing.T) {
	wrong := engine.Predicate[int](func(a, b int) bool { return a == b })
	assert.Panics(t, func() {
		engine.New[string, string, string]("S0", stringReducer(), nil, engine.WithPredicate(wrong))
	})
}

func TestEngine_Dispose_CancelsPendingEffects(t *testing.T) {
	handler := testutil.NewEffectHandlerSpy[string, string]()
	var errs atomic.Int32
	e := engine.New[string, string, string]("S0", stringReducer(), handler,
		engine.WithErrorSink(func(error) { errs.Add(1) }),
	)
	sub := e.Subscribe()
	spy := testutil.NewValueSpy(sub)

	e.Event("set")
	e.Dispose()

	assert.NotPanics(t, func() { handler.Complete("A") })

	assert.Equal(t, []string{"S0", "S0-"}, spy.Values())
	assert.Equal(t, "S0-", e.CurrentState())
	assert.Equal(t, int32(0), errs.Load(), "post-disposal delivery is not an error")
	assert.True(t, e.Disposed())
	assert.True(t, sub.Closed())
}

func TestEngine_Dispose_DropsLaterEventsAndIsIdempotent(t *testing.T) {
	e := engine.New[string, string, string]("S0", stringReducer(), nil)
	e.Dispose()
	e.Dispose()

	e.Event("a")

	assert.Equal(t, "S0", e.CurrentState())
	assert.Equal(t, 0, e.QueueLen())

	// A late subscriber still sees the final state, then the end of stream.
	sub := e.Subscribe()
	v, err := sub.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "S0", v)
	_, err = sub.Next(context.Background())
	assert.ErrorIs(t, err, engine.ErrSubscriptionClosed)
}

func TestEngine_HighVolume_PreservesSubmissionOrder(t *testing.T) {
	const n = 1000

	loop := sched.NewSerial("engine")
	defer loop.Close()

	e := engine.New[string, string, string]("", stringReducer(), nil, engine.WithScheduler(loop))
	defer e.Dispose()

	// Hold the loop so every event is queued before processing starts.
	gate := make(chan struct{})
	loop.Schedule(func() { <-gate })

	var want strings.Builder
	for i := 0; i < n; i++ {
		s := strconv.Itoa(i)
		want.WriteString(s)
		e.Event(s)
	}
	assert.Equal(t, n, e.QueueLen())
	close(gate)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, loop.Flush(ctx))

	assert.Equal(t, want.String(), e.CurrentState())
	assert.Equal(t, int64(n), e.Seq())
}

func TestEngine_SynchronousDispatch_DoesNotReenterReducer(t *testing.T) {
	var depth, maxDepth atomic.Int32
	reducer := engine.ReducerFunc[string, string, string](func(s, e string) (string, *string) {
		d := depth.Add(1)
		defer depth.Add(-1)
		if d > maxDepth.Load() {
			maxDepth.Store(d)
		}
		if e == "set" {
			eff := "sync"
			return s + "-", &eff
		}
		return s + e, nil
	})
	handler := engine.EffectHandlerFunc[string, string](func(_ string, dispatch engine.Dispatch[string]) {
		dispatch("A")
		dispatch("B")
	})

	e := engine.New[string, string, string]("S0", reducer, handler)
	defer e.Dispose()
	spy := testutil.NewValueSpy(e.Subscribe())

	e.Event("set")
	e.Event("c")

	assert.Equal(t, int32(1), maxDepth.Load())
	// Follow-ups queue behind the event that produced them; "c" was
	// submitted after the whole drain finished.
	assert.Equal(t, []string{"S0", "S0-", "S0-A", "S0-AB", "S0-ABc"}, spy.Values())
}

func TestEngine_FollowUpsQueueBehindPendingEvents(t *testing.T) {
	loop := sched.NewSerial("engine")
	defer loop.Close()

	handler := engine.EffectHandlerFunc[string, string](func(_ string, dispatch engine.Dispatch[string]) {
		dispatch("A")
	})
	e := engine.New[string, string, string]("S0", stringReducer(), handler, engine.WithScheduler(loop))
	defer e.Dispose()

	gate := make(chan struct{})
	loop.Schedule(func() { <-gate })
	e.Event("set")
	e.Event("b")
	e.Event("c")
	close(gate)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, loop.Flush(ctx))

	assert.Equal(t, "S0-bcA", e.CurrentState())
}

func TestEngine_ConcurrentSubmitters_NeverOverlapReduce(t *testing.T) {
	loop := sched.NewSerial("engine")
	defer loop.Close()

	var inFlight atomic.Int32
	var overlap atomic.Bool
	counter := engine.ReducerFunc[int, int, struct{}](func(s, e int) (int, *struct{}) {
		if inFlight.Add(1) > 1 {
			overlap.Store(true)
		}
		defer inFlight.Add(-1)
		return s + e, nil
	})

	e := engine.New[int, int, struct{}](0, counter, nil, engine.WithScheduler(loop))
	defer e.Dispose()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				e.Event(1)
			}
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, loop.Flush(ctx))

	assert.False(t, overlap.Load(), "reduce calls overlapped")
	assert.Equal(t, 1000, e.CurrentState())
}

func TestEngine_ReducerPanic_DropsEventAndContinues(t *testing.T) {
	var sunk []error
	reducer := engine.ReducerFunc[string, string, string](func(s, e string) (string, *string) {
		if e == "boom" {
			panic("bad event")
		}
		return s + e, nil
	})
	e := engine.New[string, string, string]("S0", reducer, nil,
		engine.WithErrorSink(func(err error) { sunk = append(sunk, err) }),
	)
	defer e.Dispose()
	spy := testutil.NewValueSpy(e.Subscribe())

	e.Event("a")
	e.Event("boom")
	e.Event("b")

	assert.Equal(t, []string{"S0", "S0a", "S0ab"}, spy.Values())
	require.Len(t, sunk, 1)
	assert.True(t, engine.IsReducerError(sunk[0]))

	var re *engine.RuntimeError
	require.ErrorAs(t, sunk[0], &re)
	assert.Equal(t, engine.ErrCodeReducerPanic, re.Code)
	assert.Equal(t, int64(2), re.Seq)
	assert.Contains(t, re.Error(), "bad event")
}

func TestEngine_TryReducer_ErrorDropsEvent(t *testing.T) {
	errInvalid := errors.New("invalid")
	reducer := engine.TryReducerFunc[string, string, string](func(s, e string) (string, *string, error) {
		if e == "" {
			return s, nil, errInvalid
		}
		return s + e, nil, nil
	})

	var sunk []error
	e := engine.New[string, string, string]("S0", reducer, nil,
		engine.WithErrorSink(func(err error) { sunk = append(sunk, err) }),
	)
	defer e.Dispose()

	e.Event("")
	e.Event("a")

	assert.Equal(t, "S0a", e.CurrentState())
	require.Len(t, sunk, 1)
	assert.ErrorIs(t, sunk[0], errInvalid)

	var re *engine.RuntimeError
	require.ErrorAs(t, sunk[0], &re)
	assert.Equal(t, engine.ErrCodeReducerFailed, re.Code)
}

func TestEngine_PredicatePanic_DropsEvent(t *testing.T) {
	var sunk []error
	skip := engine.Predicate[string](func(_, next string) bool {
		if next == "S0!" {
			panic("cannot compare")
		}
		return false
	})
	e := engine.New[string, string, string]("S0", stringReducer(), nil,
		engine.WithPredicate(skip),
		engine.WithErrorSink(func(err error) { sunk = append(sunk, err) }),
	)
	defer e.Dispose()

	e.Event("!")
	e.Event("a")

	assert.Equal(t, "S0a", e.CurrentState())
	require.Len(t, sunk, 1)
	assert.True(t, engine.IsReducerError(sunk[0]))
}

func TestEngine_EffectHandlerPanic_IsReported(t *testing.T) {
	var sunk []error
	handler := engine.EffectHandlerFunc[string, string](func(string, engine.Dispatch[string]) {
		panic("handler exploded")
	})
	e := engine.New[string, string, string]("S0", stringReducer(), handler,
		engine.WithErrorSink(func(err error) { sunk = append(sunk, err) }),
	)
	defer e.Dispose()

	e.Event("set")
	e.Event("a")

	assert.Equal(t, "S0-a", e.CurrentState(), "state was committed before the effect started")
	require.Len(t, sunk, 1)
	assert.True(t, engine.IsEffectError(sunk[0]))
}

func TestEngine_OnTransition_RecordsEveryProcessedEvent(t *testing.T) {
	skipBang := engine.Predicate[string](func(_, next string) bool { return strings.HasSuffix(next, "!") })
	reducer := engine.ReducerFunc[string, string, string](func(s, e string) (string, *string) {
		switch e {
		case "boom":
			panic("boom")
		case "set":
			eff := "load"
			return s + "-", &eff
		}
		return s + e, nil
	})

	e := engine.New[string, string, string]("S0", reducer, testutil.NewEffectHandlerSpy[string, string](),
		engine.WithID("engine-1"),
		engine.WithPredicate(skipBang),
		engine.WithErrorSink(func(error) {}),
	)
	defer e.Dispose()

	var got []engine.Transition[string, string, string]
	cancel := e.OnTransition(func(tr engine.Transition[string, string, string]) {
		got = append(got, tr)
	})

	e.Event("a")
	e.Event("!")
	e.Event("boom")
	e.Event("set")

	require.Len(t, got, 4)
	assert.Equal(t, "engine-1", got[0].EngineID)
	assert.Equal(t, []int64{1, 2, 3, 4}, []int64{got[0].Seq, got[1].Seq, got[2].Seq, got[3].Seq})

	assert.True(t, got[0].Committed())
	assert.Equal(t, "S0a", got[0].Next)

	assert.True(t, got[1].Skipped)
	assert.False(t, got[1].Committed())

	assert.Error(t, got[2].Err)
	assert.False(t, got[2].Committed())

	require.NotNil(t, got[3].Effect)
	assert.Equal(t, "load", *got[3].Effect)

	cancel()
	e.Event("b")
	assert.Len(t, got, 4)
}

func TestEngine_MultipleSubscribers_AreIndependent(t *testing.T) {
	e := engine.New[string, string, string]("S0", stringReducer(), nil)
	defer e.Dispose()

	first := testutil.NewValueSpy(e.Subscribe())
	e.Event("a")
	second := e.Subscribe()
	secondSpy := testutil.NewValueSpy(second)
	e.Event("b")

	assert.Equal(t, []string{"S0", "S0a", "S0ab"}, first.Values())
	assert.Equal(t, []string{"S0a", "S0ab"}, secondSpy.Values())

	second.Cancel()
	e.Event("c")
	assert.Equal(t, []string{"S0a", "S0ab"}, secondSpy.Values())
	assert.Equal(t, []string{"S0", "S0a", "S0ab", "S0abc"}, first.Values())
}

func TestEngine_Listen_CalledSynchronouslyInOrder(t *testing.T) {
	e := engine.New[string, string, string]("S0", stringReducer(), nil)
	defer e.Dispose()

	var got []string
	cancel := e.Listen(func(s string) { got = append(got, s) })

	e.Event("a")
	e.Event("b")
	cancel()
	e.Event("c")

	assert.Equal(t, []string{"S0a", "S0ab"}, got, "listeners see only later emissions")
}

func TestEngine_Updates_Iterator(t *testing.T) {
	loop := sched.NewSerial("engine")
	defer loop.Close()

	e := engine.New[string, string, string]("S0", stringReducer(), nil, engine.WithScheduler(loop))
	defer e.Dispose()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		for i := 0; i < 3; i++ {
			e.Event(fmt.Sprint(i))
		}
	}()

	var got []string
	for s := range e.Updates(ctx) {
		got = append(got, s)
		if s == "S0012" {
			break
		}
	}

	require.NotEmpty(t, got)
	assert.Equal(t, "S0012", got[len(got)-1])
}

func TestReduceInPlace(t *testing.T) {
	s := "S0"
	eff := engine.ReduceInPlace[string, string, string](stringReducer(), &s, "set")

	assert.Equal(t, "S0-", s)
	require.NotNil(t, eff)
	assert.Equal(t, "load", *eff)
}

func TestEngine_ListenerPanic_ReportedAndDrainContinues(t *testing.T) {
	var sunk []error
	e := engine.New[string, string, string]("S0", stringReducer(), nil,
		engine.WithErrorSink(func(err error) { sunk = append(sunk, err) }),
	)
	defer e.Dispose()

	e.Listen(func(s string) {
		if s == "S0a" {
			e.Event("b") // queued behind the running drain
			panic("listener exploded")
		}
	})
	var after []string
	e.Listen(func(s string) { after = append(after, s) })

	assert.NotPanics(t, func() { e.Event("a") })

	assert.Equal(t, "S0ab", e.CurrentState())
	assert.Equal(t, []string{"S0a", "S0ab"}, after, "later listeners still see every emission")
	assert.Zero(t, e.QueueLen())
	require.Len(t, sunk, 1)

	var re *engine.RuntimeError
	require.ErrorAs(t, sunk[0], &re)
	assert.Equal(t, engine.ErrCodeListenerPanic, re.Code)
	assert.Equal(t, int64(1), re.Seq)
	assert.False(t, engine.IsReducerError(sunk[0]))

	e.Event("c")
	assert.Equal(t, "S0abc", e.CurrentState())
}

func TestEngine_TransitionHookPanic_EffectStillRuns(t *testing.T) {
	var sunk []error
	handler := testutil.NewEffectHandlerSpy[string, string]()
	e := engine.New[string, string, string]("S0", stringReducer(), handler,
		engine.WithErrorSink(func(err error) { sunk = append(sunk, err) }),
	)
	defer e.Dispose()

	e.OnTransition(func(engine.Transition[string, string, string]) { panic("hook exploded") })
	var seqs []int64
	e.OnTransition(func(tr engine.Transition[string, string, string]) { seqs = append(seqs, tr.Seq) })

	assert.NotPanics(t, func() {
		e.Event("set")
		e.Event("a")
	})

	assert.Equal(t, "S0-a", e.CurrentState())
	assert.Equal(t, []int64{1, 2}, seqs)
	assert.Equal(t, []string{"load"}, handler.Effects())
	require.Len(t, sunk, 2)
	for _, err := range sunk {
		var re *engine.RuntimeError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, engine.ErrCodeListenerPanic, re.Code)
	}
}

func TestEngine_ClosedScheduler_KeepsEventsQueued(t *testing.T) {
	loop := sched.NewSerial("engine")
	loop.Close()

	var sunk []error
	e := engine.New[string, string, string]("S0", stringReducer(), nil,
		engine.WithScheduler(loop),
		engine.WithErrorSink(func(err error) { sunk = append(sunk, err) }),
	)
	defer e.Dispose()

	e.Event("a")
	e.Event("b")

	assert.Equal(t, "S0", e.CurrentState())
	assert.Equal(t, 2, e.QueueLen())
	require.Len(t, sunk, 2, "each rejected drain is reported")
	for _, err := range sunk {
		var re *engine.RuntimeError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, engine.ErrCodeScheduleRejected, re.Code)
	}
}

// gateScheduler runs tasks inline while open and rejects them otherwise.
type gateScheduler struct {
	open bool
}

func (g *gateScheduler) Schedule(task func()) { g.TrySchedule(task) }

func (g *gateScheduler) TrySchedule(task func()) bool {
	if !g.open {
		return false
	}
	task()
	return true
}

func TestEngine_RejectedDrain_DoesNotWedgeEngine(t *testing.T) {
	gate := &gateScheduler{}
	var sunk []error
	e := engine.New[string, string, string]("S0", stringReducer(), nil,
		engine.WithScheduler(gate),
		engine.WithErrorSink(func(err error) { sunk = append(sunk, err) }),
	)
	defer e.Dispose()

	e.Event("a")
	require.Len(t, sunk, 1)
	assert.Equal(t, 1, e.QueueLen())

	gate.open = true
	e.Event("b")

	assert.Equal(t, "S0ab", e.CurrentState(), "the retained event drains first")
	assert.Zero(t, e.QueueLen())
}

func TestFeed_ListenFrom_NoGapAfterSeed(t *testing.T) {
	const total = 1000
	feed := engine.NewFeed(0)

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= total; i++ {
			feed.Publish(i)
			if i == 1 {
				close(started)
			}
		}
	}()

	<-started
	var mu sync.Mutex
	var got []int
	seed, cancel := feed.ListenFrom(func(v int) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	})
	defer cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, seed, 1)
	require.Len(t, got, total-seed)
	for i, v := range got {
		assert.Equal(t, seed+1+i, v)
	}
}

func TestEngine_ListenFrom_SeedIsCurrentState(t *testing.T) {
	e := engine.New[string, string, string]("S0", stringReducer(), nil)
	defer e.Dispose()
	e.Event("a")

	var got []string
	seed, cancel := e.ListenFrom(func(s string) { got = append(got, s) })
	e.Event("b")
	cancel()
	e.Event("c")

	assert.Equal(t, "S0a", seed)
	assert.Equal(t, []string{"S0ab"}, got)
}
