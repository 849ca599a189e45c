package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxflow/internal/store"
)

func executeRun(t *testing.T, format string, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: format})
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRunMissingArgs(t *testing.T) {
	_, _, err := executeRun(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestRunNonExistentScenario(t *testing.T) {
	_, _, err := executeRun(t, "text", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load scenario")
}

func TestRunPassingScenario(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "round-trip.yaml", passingScenario)

	out, _, err := executeRun(t, "text", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"S0"`)
	assert.Contains(t, out, `"S0-"`)
	assert.Contains(t, out, `"S0-A"`)
	assert.Contains(t, out, "✓ round-trip")
}

func TestRunVerbosePrintsTrace(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "round-trip.yaml", passingScenario)

	out := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text", Verbose: true})
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), `#1 committed set("A")`)
	assert.Contains(t, out.String(), `effect=load("A")`)
}

func TestRunCUEScenario(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "append.cue", cueScenario)

	out, _, err := executeRun(t, "text", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"xyz"`)
}

func TestRunFailingScenario(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "wrong.yaml", failingScenario)

	out, _, err := executeRun(t, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong-final")
	assert.Contains(t, out, "final:")
}

func TestRunJSON(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "failure.yaml", reducerFailureScenario)

	out, _, err := executeRun(t, "json", path)
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Pass)
	assert.Equal(t, []string{"S0", "S0a", "S0ab"}, resp.Data.States)
	require.Len(t, resp.Data.Trace, 3)
	assert.Equal(t, "failed", resp.Data.Trace[1].Outcome)
	assert.Equal(t, "REDUCER_PANIC", resp.Data.Trace[1].Error)
	assert.Len(t, resp.Data.RuntimeErrors, 1)
}

func TestRunRecordsTraceDB(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "failure.yaml", reducerFailureScenario)
	dbPath := filepath.Join(dir, "trace.db")

	_, _, err := executeRun(t, "text", path, "--trace-db", dbPath)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	records, err := st.ReadTransitions(context.Background(), "failing-engine")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, store.OutcomeFailed, records[1].Outcome)
}

func TestRunOTelExportsSpans(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "round-trip.yaml", passingScenario)

	_, errOut, err := executeRun(t, "text", path, "--otel")
	require.NoError(t, err)
	assert.Contains(t, errOut, "engine.transition")
}

func TestRunHelpText(t *testing.T) {
	out, _, err := executeRun(t, "text", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "scenario")
	assert.Contains(t, out, "--trace-db")
	assert.Contains(t, out, "--otel")
}
