package harness

import "github.com/roach88/rxflow/internal/textmodel"

// TraceEntry records one processed event.
type TraceEntry struct {
	Seq     int64             `json:"seq"`
	Event   textmodel.Event   `json:"event"`
	Outcome string            `json:"outcome"`
	State   string            `json:"state"` // state after the step
	Effect  *textmodel.Effect `json:"effect,omitempty"`
	Error   string            `json:"error,omitempty"` // runtime error code
}

// Change is one (previous, next) pair seen by the observation adapter.
type Change struct {
	Prev string `json:"prev"`
	Next string `json:"next"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Scenario is the scenario name.
	Scenario string `json:"scenario"`

	// Pass indicates every expectation held.
	Pass bool `json:"pass"`

	// States is every emitted state, starting with the initial one.
	States []string `json:"states"`

	// Final is the engine state after the last step.
	Final string `json:"final"`

	// Trace has one entry per processed event.
	Trace []TraceEntry `json:"trace"`

	// Changes are the observer pairs, in delivery order.
	Changes []Change `json:"changes"`

	// Effects are the requested load values, in order.
	Effects []string `json:"effects"`

	// RuntimeErrors are the messages of errors reported by the engine.
	RuntimeErrors []string `json:"runtime_errors"`

	// Failures are expectation mismatches. Empty if Pass is true.
	Failures []string `json:"failures,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(name string) *Result {
	return &Result{
		Scenario:      name,
		Pass:          true,
		States:        []string{},
		Trace:         []TraceEntry{},
		Changes:       []Change{},
		Effects:       []string{},
		RuntimeErrors: []string{},
	}
}

// AddFailure records an expectation mismatch and marks the result failed.
func (r *Result) AddFailure(msg string) {
	r.Failures = append(r.Failures, msg)
	r.Pass = false
}
