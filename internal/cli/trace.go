package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/rxflow/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	EngineID string // optional - show one engine's transitions
	Failures bool   // show failed transitions across all engines
}

// TraceResult holds the trace output. Engines is set when listing,
// Transitions when showing one engine or failures.
type TraceResult struct {
	Engines     []store.EngineRecord     `json:"engines,omitempty"`
	EngineID    string                   `json:"engine_id,omitempty"`
	Transitions []store.TransitionRecord `json:"transitions,omitempty"`
	Stats       *TraceStats              `json:"stats,omitempty"`
}

// TraceStats counts transitions by outcome.
type TraceStats struct {
	Total     int `json:"total"`
	Committed int `json:"committed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded transitions",
		Long: `Inspect transitions recorded with "rxflow run --trace-db".

Without --engine, lists every recorded engine and its transition count.
With --engine, prints that engine's transitions in order.
With --failures, prints failed transitions across all engines.

Examples:
  rxflow trace --db ./trace.db
  rxflow trace --db ./trace.db --engine scenario-engine
  rxflow trace --db ./trace.db --failures --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.EngineID, "engine", "", "engine ID to show")
	cmd.Flags().BoolVar(&opts.Failures, "failures", false, "show failed transitions across all engines")

	return cmd
}

func runTrace(ctx context.Context, opts *TraceOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	// Open would create an empty database; a missing file is a usage error.
	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, fmt.Sprintf("database not found: %s", opts.Database), nil)
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var result TraceResult
	switch {
	case opts.Failures:
		result.Transitions, err = st.ReadFailures(ctx)
	case opts.EngineID != "":
		result.EngineID = opts.EngineID
		result.Transitions, err = st.ReadTransitions(ctx, opts.EngineID)
	default:
		result.Engines, err = st.ReadEngines(ctx)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}
	if result.Engines == nil {
		stats := traceStats(result.Transitions)
		result.Stats = &stats
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	if result.Engines != nil {
		printEngines(w, result.Engines)
		return nil
	}
	printTransitions(w, opts, result)
	return nil
}

func traceStats(records []store.TransitionRecord) TraceStats {
	stats := TraceStats{Total: len(records)}
	for _, rec := range records {
		switch rec.Outcome {
		case store.OutcomeCommitted:
			stats.Committed++
		case store.OutcomeSkipped:
			stats.Skipped++
		case store.OutcomeFailed:
			stats.Failed++
		}
	}
	return stats
}

func printEngines(w io.Writer, engines []store.EngineRecord) {
	if len(engines) == 0 {
		fmt.Fprintln(w, "No engines recorded.")
		return
	}
	for _, e := range engines {
		fmt.Fprintf(w, "%s  %-24s transitions=%d initial=%s\n", e.ID, e.Label, e.Transitions, e.InitialState)
	}
}

func printTransitions(w io.Writer, opts *TraceOptions, result TraceResult) {
	if len(result.Transitions) == 0 {
		if opts.Failures {
			fmt.Fprintln(w, "No failed transitions.")
		} else {
			fmt.Fprintf(w, "No transitions found for engine: %s\n", opts.EngineID)
		}
		return
	}

	for _, t := range result.Transitions {
		line := fmt.Sprintf("%s #%d %-9s %s", t.EngineID, t.Seq, t.Outcome, t.Event)
		if t.Next != nil {
			line += fmt.Sprintf(" -> %s", t.Next)
		}
		if t.Effect != nil {
			line += fmt.Sprintf(" effect=%s", t.Effect)
		}
		if t.Error != "" {
			line += fmt.Sprintf(" error=%q", t.Error)
		}
		fmt.Fprintln(w, line)
	}

	s := result.Stats
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d transitions: %d committed, %d skipped, %d failed\n", s.Total, s.Committed, s.Skipped, s.Failed)
}
