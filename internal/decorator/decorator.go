// Package decorator wraps an effect handler with hooks that run around every
// event the handler dispatches back, for instrumentation such as loading
// indicators, logs, or trace spans.
//
// For each delivered event the order is always:
//
//	start hook → dispatch(event) → finish hook
//
// Two delivery modes exist. HandleEffect delivers only while the decorator
// is alive: once Dispose is called, or the decorator is garbage collected,
// later completions are dropped without running hooks or dispatching.
// HandleEffectGuaranteed keeps the decorator reachable until the decoratee
// completes and always delivers.
package decorator

import (
	"sync/atomic"
	"weak"

	"github.com/roach88/rxflow/internal/engine"
)

// Decoration produces the hooks for one delivery. Start runs before the
// dispatch; the returned function runs after it.
type Decoration interface {
	Start() (finish func())
}

// DecorationFunc adapts a function to Decoration.
type DecorationFunc func() (finish func())

// Start implements Decoration.
func (f DecorationFunc) Start() func() { return f() }

// Hooks is a Decoration from two independent callbacks. Either may be nil.
type Hooks struct {
	OnEffectStart  func()
	OnEffectFinish func()
}

// Start implements Decoration.
func (h Hooks) Start() func() {
	if h.OnEffectStart != nil {
		h.OnEffectStart()
	}
	return func() {
		if h.OnEffectFinish != nil {
			h.OnEffectFinish()
		}
	}
}

// Combine nests decorations: the first starts first and finishes last.
func Combine(ds ...Decoration) Decoration {
	return DecorationFunc(func() func() {
		finishes := make([]func(), 0, len(ds))
		for _, d := range ds {
			finishes = append(finishes, d.Start())
		}
		return func() {
			for i := len(finishes) - 1; i >= 0; i-- {
				finishes[i]()
			}
		}
	})
}

// Decorator is an engine.EffectHandler that runs a Decoration around every
// event its decoratee dispatches.
//
// Thread-safety: safe for concurrent use. Hooks run on whichever goroutine
// the decoratee dispatches from.
type Decorator[E, F any] struct {
	decoratee  engine.EffectHandler[E, F]
	decoration Decoration
	alive      atomic.Bool
}

// New wraps decoratee.
func New[E, F any](decoratee engine.EffectHandler[E, F], d Decoration) *Decorator[E, F] {
	dec := &Decorator[E, F]{decoratee: decoratee, decoration: d}
	dec.alive.Store(true)
	return dec
}

// HandleEffect implements engine.EffectHandler in the weak mode.
func (d *Decorator[E, F]) HandleEffect(effect F, dispatch engine.Dispatch[E]) {
	ref := weak.Make(d)
	d.decoratee.HandleEffect(effect, func(event E) {
		dec := ref.Value()
		if dec == nil || !dec.alive.Load() {
			return
		}
		dec.deliver(event, dispatch)
	})
}

// HandleEffectGuaranteed delivers every completion with hooks, even after
// Dispose.
func (d *Decorator[E, F]) HandleEffectGuaranteed(effect F, dispatch engine.Dispatch[E]) {
	d.decoratee.HandleEffect(effect, func(event E) {
		d.deliver(event, dispatch)
	})
}

// Guaranteed returns an engine.EffectHandler bound to HandleEffectGuaranteed.
func (d *Decorator[E, F]) Guaranteed() engine.EffectHandler[E, F] {
	return engine.EffectHandlerFunc[E, F](d.HandleEffectGuaranteed)
}

// Dispose makes later weak-mode completions no-ops. Idempotent.
func (d *Decorator[E, F]) Dispose() {
	d.alive.Store(false)
}

// Disposed reports whether Dispose has been called.
func (d *Decorator[E, F]) Disposed() bool {
	return !d.alive.Load()
}

func (d *Decorator[E, F]) deliver(event E, dispatch engine.Dispatch[E]) {
	finish := d.decoration.Start()
	defer finish()
	dispatch(event)
}
