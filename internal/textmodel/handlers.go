package textmodel

import (
	"fmt"
	"sync"
	"time"

	"github.com/roach88/rxflow/internal/engine"
)

// AsyncHandler completes every load on its own goroutine after Delay by
// dispatching append(load value).
type AsyncHandler struct {
	Delay time.Duration

	wg sync.WaitGroup
}

// HandleEffect implements engine.EffectHandler.
func (h *AsyncHandler) HandleEffect(effect Effect, dispatch engine.Dispatch[Event]) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if h.Delay > 0 {
			time.Sleep(h.Delay)
		}
		dispatch(Append(effect.Load))
	}()
}

// Wait blocks until every started load has dispatched.
func (h *AsyncHandler) Wait() {
	h.wg.Wait()
}

// PendingEffect is a load the Manual handler has not completed.
type PendingEffect struct {
	Index  int
	Effect Effect
}

// Manual records loads and completes them only when told to, so a scenario
// controls exactly when each effect's follow-up event arrives.
//
// Thread-safety: safe for concurrent use.
type Manual struct {
	mu      sync.Mutex
	effects []manualEntry
}

type manualEntry struct {
	effect   Effect
	dispatch engine.Dispatch[Event]
	done     bool
}

// HandleEffect implements engine.EffectHandler.
func (m *Manual) HandleEffect(effect Effect, dispatch engine.Dispatch[Event]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.effects = append(m.effects, manualEntry{effect: effect, dispatch: dispatch})
}

// Count returns the number of effects received.
func (m *Manual) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.effects)
}

// Pending returns the effects not yet completed, oldest first.
func (m *Manual) Pending() []PendingEffect {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []PendingEffect
	for i, e := range m.effects {
		if !e.done {
			out = append(out, PendingEffect{Index: i, Effect: e.effect})
		}
	}
	return out
}

// Complete dispatches append(load value) for the effect at index and marks it
// done. An explicit value overrides the load value.
func (m *Manual) Complete(index int, value ...string) error {
	m.mu.Lock()
	if index < 0 || index >= len(m.effects) {
		n := len(m.effects)
		m.mu.Unlock()
		return fmt.Errorf("no effect at index %d (received %d)", index, n)
	}
	entry := &m.effects[index]
	if entry.done {
		m.mu.Unlock()
		return fmt.Errorf("effect %d already completed", index)
	}
	entry.done = true
	dispatch := entry.dispatch
	v := entry.effect.Load
	m.mu.Unlock()

	if len(value) > 0 {
		v = value[0]
	}
	// Outside the lock: the dispatch may synchronously record another effect.
	dispatch(Append(v))
	return nil
}

// CompleteNext completes the oldest pending effect.
func (m *Manual) CompleteNext(value ...string) error {
	pending := m.Pending()
	if len(pending) == 0 {
		return fmt.Errorf("no pending effect")
	}
	return m.Complete(pending[0].Index, value...)
}
