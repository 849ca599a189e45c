package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/rxflow/internal/engine"
)

// EffectMessage is one recorded HandleEffect invocation.
type EffectMessage[E, F any] struct {
	Effect   F
	Dispatch engine.Dispatch[E]
}

// EffectHandlerSpy records effects and leaves them pending until the test
// completes them, making effect timing fully scripted.
//
// Thread-safety: safe for concurrent use.
type EffectHandlerSpy[E, F any] struct {
	mu       sync.Mutex
	messages []EffectMessage[E, F]
}

// NewEffectHandlerSpy creates an empty spy.
func NewEffectHandlerSpy[E, F any]() *EffectHandlerSpy[E, F] {
	return &EffectHandlerSpy[E, F]{}
}

// HandleEffect implements engine.EffectHandler.
func (h *EffectHandlerSpy[E, F]) HandleEffect(effect F, dispatch engine.Dispatch[E]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, EffectMessage[E, F]{Effect: effect, Dispatch: dispatch})
}

// Process has the signature of a decoratee function.
func (h *EffectHandlerSpy[E, F]) Process(effect F, dispatch engine.Dispatch[E]) {
	h.HandleEffect(effect, dispatch)
}

// CallCount returns the number of effects received.
func (h *EffectHandlerSpy[E, F]) CallCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// Effects returns every received effect in order.
func (h *EffectHandlerSpy[E, F]) Effects() []F {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]F, len(h.messages))
	for i, m := range h.messages {
		out[i] = m.Effect
	}
	return out
}

// Complete dispatches event through the callback of the effect at index
// (default 0). It may be called repeatedly for the same effect.
func (h *EffectHandlerSpy[E, F]) Complete(event E, index ...int) {
	i := 0
	if len(index) > 0 {
		i = index[0]
	}

	h.mu.Lock()
	if i < 0 || i >= len(h.messages) {
		n := len(h.messages)
		h.mu.Unlock()
		panic(fmt.Sprintf("EffectHandlerSpy: no effect at index %d (have %d)", i, n))
	}
	dispatch := h.messages[i].Dispatch
	h.mu.Unlock()

	// Outside the lock: dispatch may synchronously produce another effect.
	dispatch(event)
}
