package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rxflow/internal/harness"
)

// FileValidation is the validation outcome of one scenario file.
type FileValidation struct {
	File  string `json:"file"`
	Name  string `json:"name,omitempty"`
	Steps int    `json:"steps,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario files without running them.

Parses each file (YAML strictly, CUE against the scenario schema) and runs
the static checks: required fields, one action per step, a known skip
predicate and handler.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)

		fv := FileValidation{File: file, Valid: true}
		scenario, err := harness.LoadScenario(file)
		if err != nil {
			fv.Valid = false
			fv.Error = err.Error()
			result.Valid = false
		} else {
			fv.Name = scenario.Name
			fv.Steps = len(scenario.Steps)
		}
		result.Files = append(result.Files, fv)
	}

	if opts.Format == "json" {
		var cliErr *CLIError
		if !result.Valid {
			cliErr = &CLIError{Code: ErrCodeLoadFailed, Message: "one or more scenarios are invalid"}
		}
		if err := formatter.Result(result.Valid, result, cliErr); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, fv := range result.Files {
			if fv.Valid {
				fmt.Fprintf(w, "✓ %s (%s, %d steps)\n", fv.File, fv.Name, fv.Steps)
				continue
			}
			fmt.Fprintf(w, "✗ %s\n  %s\n", fv.File, fv.Error)
		}
	}

	if !result.Valid {
		// Invalid input is a command-level error (exit code 2).
		return NewExitError(ExitCommandError, "one or more scenarios are invalid")
	}
	return nil
}
