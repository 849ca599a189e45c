package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const passingScenario = `name: round-trip
description: set then complete the load
initial: S0
steps:
  - event: {kind: set, value: A}
  - complete: {effect: 0}
expect:
  states: [S0, S0-, S0-A]
  errors: 0
`

const failingScenario = `name: wrong-final
description: expects a state the reducer never produces
initial: S0
steps:
  - event: {kind: append, value: x}
expect:
  final: S0y
`

const reducerFailureScenario = `name: reducer-failure
description: a failing reducer drops the event
initial: S0
engine_id: failing-engine
steps:
  - event: {kind: append, value: a}
  - event: {kind: fail}
  - event: {kind: append, value: b}
expect:
  states: [S0, S0a, S0ab]
  errors: 1
`

const cueScenario = `name:        "cue-append"
description: "append twice"
initial:     "x"
steps: [
	{event: {kind: "append", value: "y"}},
	{event: {kind: "append", value: "z"}},
]
expect: final: "xyz"
`

// writeScenario writes content to dir/name and returns the path.
func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
