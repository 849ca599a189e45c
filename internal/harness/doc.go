// Package harness runs scripted scenarios against a textmodel engine and
// checks the outcome.
//
// A scenario names an initial state, an optional skip predicate, and a list
// of steps: submit an event, complete a pending effect, or dispose the
// engine. Effects are held by a textmodel.Manual handler so the scenario
// decides exactly when each follow-up event arrives; "handler: async"
// completes every load before the next step instead.
//
// Scenarios are YAML (.yaml, .yml) or CUE (.cue). CUE files are unified with
// a built-in #Scenario schema before decoding, so type and enum errors are
// reported with CUE positions.
//
// Every run builds a fresh engine with a fixed ID, so traces are
// reproducible and can be compared against golden files.
package harness
