package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/rxflow/internal/decorator"
	"github.com/roach88/rxflow/internal/engine"
	"github.com/roach88/rxflow/internal/observe"
	"github.com/roach88/rxflow/internal/store"
	"github.com/roach88/rxflow/internal/telemetry"
	"github.com/roach88/rxflow/internal/textmodel"
)

type runConfig struct {
	store  *store.Store
	tracer trace.Tracer
	logger *slog.Logger
}

// Option configures Run.
type Option func(*runConfig)

// WithStore records every transition of the run in st.
func WithStore(st *store.Store) Option {
	return func(c *runConfig) {
		c.store = st
	}
}

// WithTracer emits a span per transition and per effect delivery.
func WithTracer(t trace.Tracer) Option {
	return func(c *runConfig) {
		c.tracer = t
	}
}

// WithLogger sets the logger for the engine and decorations.
// Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

type textEngine = engine.Engine[string, textmodel.Event, textmodel.Effect]

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Build the handler (manual or async) wrapped in a logging decorator
// 2. Create an engine with the scenario's ID and skip predicate
// 3. Attach the observation adapter, transition hooks, and optional recorder
// 4. Execute steps in order
// 5. Collect states and compare against expectations
//
// The error return is for runs that could not be set up or recorded;
// expectation mismatches are reported in Result.Failures.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	skip, err := ParseSkip(scenario.Skip)
	if err != nil {
		return nil, err
	}
	id := scenario.EngineID
	if id == "" {
		id = DefaultEngineID
	}

	result := NewResult(scenario.Name)
	var mu sync.Mutex // guards result while async loads complete

	manual := &textmodel.Manual{}
	async := &textmodel.AsyncHandler{}
	var inner engine.EffectHandler[textmodel.Event, textmodel.Effect] = manual
	if scenario.Handler == HandlerAsync {
		inner = async
	}

	decorations := []decorator.Decoration{decorator.LogDecoration(cfg.logger, "textmodel")}
	if cfg.tracer != nil {
		decorations = append(decorations, decorator.TraceDecoration(cfg.tracer, "textmodel"))
	}
	handler := decorator.New[textmodel.Event, textmodel.Effect](inner, decorator.Combine(decorations...))
	defer handler.Dispose()

	engineOpts := []engine.Option{
		engine.WithID(id),
		engine.WithLogger(cfg.logger),
		engine.WithErrorSink(func(err error) {
			mu.Lock()
			defer mu.Unlock()
			result.RuntimeErrors = append(result.RuntimeErrors, err.Error())
		}),
	}
	if skip != nil {
		engineOpts = append(engineOpts, engine.WithPredicate(skip))
	}
	eng := engine.New[string, textmodel.Event, textmodel.Effect](scenario.Initial, textmodel.Reducer{}, handler, engineOpts...)
	defer eng.Dispose()

	states := eng.Subscribe()
	defer states.Cancel()

	adapter := observe.New[string, textmodel.Event](eng, func(prev, next string) {
		mu.Lock()
		defer mu.Unlock()
		result.Changes = append(result.Changes, Change{Prev: prev, Next: next})
	}, observe.WithLogger(cfg.logger))
	defer adapter.Close()

	cancelTrace := eng.OnTransition(func(tr engine.Transition[string, textmodel.Event, textmodel.Effect]) {
		mu.Lock()
		defer mu.Unlock()
		result.Trace = append(result.Trace, traceEntry(tr))
		if tr.Effect != nil {
			result.Effects = append(result.Effects, tr.Effect.Load)
		}
	})
	defer cancelTrace()

	if cfg.tracer != nil {
		defer telemetry.TraceTransitions(cfg.tracer, eng)()
	}

	var recorder *store.Recorder
	if cfg.store != nil {
		recorder, err = store.Record(context.Background(), cfg.store, eng, scenario.Name)
		if err != nil {
			return nil, fmt.Errorf("record scenario %s: %w", scenario.Name, err)
		}
	}

	for i, step := range scenario.Steps {
		if err := runStep(eng, manual, step); err != nil {
			result.AddFailure(fmt.Sprintf("steps[%d]: %v", i, err))
		}
		if scenario.Handler == HandlerAsync {
			async.Wait()
		}
	}

	for {
		s, ok := states.TryNext()
		if !ok {
			break
		}
		result.States = append(result.States, s)
	}
	result.Final = eng.CurrentState()

	if recorder != nil {
		if err := recorder.Close(); err != nil {
			return nil, err
		}
	}

	checkExpectations(scenario, result)
	cfg.logger.Debug("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"transitions", len(result.Trace),
	)
	return result, nil
}

func runStep(eng *textEngine, manual *textmodel.Manual, step Step) error {
	switch {
	case step.Event != nil:
		eng.Event(*step.Event)
	case step.Complete != nil:
		var value []string
		if step.Complete.Value != nil {
			value = append(value, *step.Complete.Value)
		}
		return manual.Complete(step.Complete.Effect, value...)
	case step.Dispose:
		eng.Dispose()
	}
	return nil
}

func traceEntry(tr engine.Transition[string, textmodel.Event, textmodel.Effect]) TraceEntry {
	entry := TraceEntry{
		Seq:     tr.Seq,
		Event:   tr.Event,
		Outcome: telemetry.Outcome(tr.Skipped, tr.Err),
		State:   tr.Prev,
		Effect:  tr.Effect,
	}
	if tr.Committed() {
		entry.State = tr.Next
	}
	var re *engine.RuntimeError
	if errors.As(tr.Err, &re) {
		entry.Error = string(re.Code)
	}
	return entry
}
