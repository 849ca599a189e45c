package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/rxflow/internal/engine"
	"github.com/roach88/rxflow/internal/queue"
)

// Recorder writes every transition of one engine to a Store.
//
// The transition hook only converts and enqueues; a writer goroutine does
// the SQL, so the engine's drain loop never waits on the database.
type Recorder struct {
	store    *Store
	engineID string
	records  *queue.FIFO[TransitionRecord]
	cancel   func()
	done     chan struct{}
	written  atomic.Int64

	mu   sync.Mutex
	errs []error
}

// Record registers e under label and starts recording its transitions. The
// engine's state at this point is stored as its initial state.
// Close must be called to flush and stop.
func Record[S, E, F any](ctx context.Context, st *Store, e *engine.Engine[S, E, F], label string) (*Recorder, error) {
	if err := st.WriteEngine(ctx, e.ID(), label, e.CurrentState()); err != nil {
		return nil, err
	}

	r := &Recorder{
		store:    st,
		engineID: e.ID(),
		records:  queue.New[TransitionRecord](),
		done:     make(chan struct{}),
	}
	r.cancel = e.OnTransition(func(tr engine.Transition[S, E, F]) {
		rec, err := NewTransitionRecord(tr)
		if err != nil {
			r.fail(err)
			return
		}
		r.records.Enqueue(rec)
	})

	go r.loop(context.WithoutCancel(ctx))

	slog.Debug("recording transitions", "engine", r.engineID, "label", label)
	return r, nil
}

func (r *Recorder) loop(ctx context.Context) {
	defer close(r.done)
	for {
		rec, err := r.records.Dequeue(ctx)
		if err != nil {
			return
		}
		if err := r.store.WriteTransition(ctx, rec); err != nil {
			r.fail(err)
			continue
		}
		r.written.Add(1)
	}
}

func (r *Recorder) fail(err error) {
	slog.Warn("transition not recorded", "engine", r.engineID, "error", err)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

// Written returns the number of transitions stored so far.
func (r *Recorder) Written() int64 {
	return r.written.Load()
}

// Close stops recording, waits for queued records to be written, and returns
// every write or encoding error joined. Idempotent.
func (r *Recorder) Close() error {
	r.cancel()
	r.records.Close()
	<-r.done

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errs) == 0 {
		return nil
	}
	return fmt.Errorf("recorder %s: %w", r.engineID, errors.Join(r.errs...))
}
