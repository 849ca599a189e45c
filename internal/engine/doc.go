// Package engine implements the rxflow unidirectional-data-flow engine.
//
// An Engine owns one State value, accepts Events, and asks a pure Reducer for
// the next State plus an optional Effect. Effects are handed to an
// EffectHandler, which may later dispatch follow-up Events back into the same
// Engine.
//
// ARCHITECTURE:
//
// Single Logical Writer:
// All reduce, predicate, and emit steps for one Engine are serialized through
// one FIFO queue. Whichever goroutine finds the engine idle schedules a drain
// on the engine's Scheduler; everyone else only enqueues. This gives:
//   - One global order for external events and effect-originated events
//   - No reducer re-entrance, even when a handler dispatches synchronously
//   - Lock-free reads of state for subscribers (they get values, not access)
//
// Event Processing Flow:
//  1. Event() appends to the FIFO queue (never blocks on effect work)
//  2. The drain loop pops the oldest event
//  3. Reducer computes (next, effect); a panic or error drops only this event
//  4. The Predicate (if any) decides whether next is committed and emitted
//  5. A non-nil effect goes to the EffectHandler with a dispatch callback
//  6. The loop continues until the queue is empty
//
// Dispatch callbacks hold only a weak pointer to the Engine and check its
// liveness flag, so after Dispose every in-flight callback is a no-op.
//
// COMPOSITION:
//
// Independent sub-domains compose through tagged unions rather than a separate
// component: a composite Event is a struct (or interface) carrying one variant
// per sub-domain, and the composite Reducer switches on the variant, reduces
// the relevant slice of a composite State with the sub-reducer, and wraps the
// resulting sub-effect back into the composite Effect. The composite
// EffectHandler does the reverse, wrapping dispatched sub-events. See
// textmodel.CompositeReducer for a worked example.
package engine
