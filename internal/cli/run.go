package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/roach88/rxflow/internal/harness"
	"github.com/roach88/rxflow/internal/store"
	"github.com/roach88/rxflow/internal/telemetry"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	TraceDB string // record transitions to this SQLite database
	OTel    bool   // export spans to stderr
}

// RunOutput is the JSON payload of the run command.
type RunOutput struct {
	Scenario      string               `json:"scenario"`
	Pass          bool                 `json:"pass"`
	States        []string             `json:"states"`
	Final         string               `json:"final"`
	Trace         []harness.TraceEntry `json:"trace"`
	RuntimeErrors []string             `json:"runtime_errors"`
	Failures      []string             `json:"failures,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run a scenario and print its states",
		Long: `Run a single scenario file (.yaml or .cue) against a fresh engine.

Prints every emitted state in order, then the transition trace when
--verbose is set. Transitions can be recorded to a SQLite trace database
with --trace-db and exported as OpenTelemetry spans with --otel.

Exit codes:
  0 - Scenario ran and every expectation held
  1 - One or more expectations failed
  2 - Command error (unreadable scenario, database error, etc.)

Examples:
  rxflow run ./scenarios/effect-round-trip.yaml
  rxflow run ./scenarios/prefix-skip.yaml --trace-db ./trace.db
  rxflow run ./scenarios/async-load.yaml --otel --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.TraceDB, "trace-db", "", "record transitions to a SQLite database")
	cmd.Flags().BoolVar(&opts.OTel, "otel", false, "export OpenTelemetry spans to stderr")

	return cmd
}

func runScenarioFile(ctx context.Context, opts *RunOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	runOpts := []harness.Option{harness.WithLogger(slog.Default())}

	if opts.TraceDB != "" {
		slog.Debug("opening trace database", "path", opts.TraceDB)
		st, err := store.Open(opts.TraceDB)
		if err != nil {
			_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open trace database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing trace database", "error", closeErr)
			}
		}()
		runOpts = append(runOpts, harness.WithStore(st))
	}

	if opts.OTel {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			UseStdout: true,
			Writer:    cmd.ErrOrStderr(),
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to initialize telemetry", err)
		}
		defer func() {
			if err := shutdown(context.WithoutCancel(ctx)); err != nil {
				slog.Error("telemetry shutdown", "error", err)
			}
		}()
		runOpts = append(runOpts, harness.WithTracer(otel.Tracer("rxflow")))
	}

	slog.Info("running scenario", "scenario", scenario.Name, "file", path)
	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		_ = formatter.Error(ErrCodeRunFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "scenario run failed", err)
	}

	if opts.Format == "json" {
		var cliErr *CLIError
		if !result.Pass {
			cliErr = &CLIError{Code: ErrCodeScenarioFail, Message: strings.Join(result.Failures, "; ")}
		}
		if err := formatter.Result(result.Pass, runOutput(result), cliErr); err != nil {
			return err
		}
	} else {
		printRunText(cmd, opts, result)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func runOutput(r *harness.Result) RunOutput {
	return RunOutput{
		Scenario:      r.Scenario,
		Pass:          r.Pass,
		States:        r.States,
		Final:         r.Final,
		Trace:         r.Trace,
		RuntimeErrors: r.RuntimeErrors,
		Failures:      r.Failures,
	}
}

func printRunText(cmd *cobra.Command, opts *RunOptions, r *harness.Result) {
	w := cmd.OutOrStdout()

	for _, s := range r.States {
		fmt.Fprintf(w, "%q\n", s)
	}

	if opts.Verbose {
		fmt.Fprintln(w)
		for _, e := range r.Trace {
			line := fmt.Sprintf("#%d %-9s %s -> %q", e.Seq, e.Outcome, e.Event, e.State)
			if e.Effect != nil {
				line += fmt.Sprintf(" effect=load(%q)", e.Effect.Load)
			}
			if e.Error != "" {
				line += " error=" + e.Error
			}
			fmt.Fprintln(w, line)
		}
	}

	for _, msg := range r.RuntimeErrors {
		fmt.Fprintf(w, "runtime error: %s\n", msg)
	}

	if r.Pass {
		fmt.Fprintf(w, "✓ %s\n", r.Scenario)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", r.Scenario)
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  %s\n", f)
	}
}
