package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/rxflow/internal/canon"
)

// Snapshot is the part of a Result compared against golden files. Runtime
// error messages are left out; the trace carries their codes.
type Snapshot struct {
	Scenario string       `json:"scenario"`
	States   []string     `json:"states"`
	Final    string       `json:"final"`
	Trace    []TraceEntry `json:"trace"`
	Changes  []Change     `json:"changes"`
}

// NewSnapshot extracts the golden-compared fields of r.
func NewSnapshot(r *Result) Snapshot {
	return Snapshot{
		Scenario: r.Scenario,
		States:   r.States,
		Final:    r.Final,
		Trace:    r.Trace,
		Changes:  r.Changes,
	}
}

// MarshalSnapshot renders r as indented canonical JSON.
func MarshalSnapshot(r *Result) ([]byte, error) {
	return canon.MarshalIndent(NewSnapshot(r))
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
