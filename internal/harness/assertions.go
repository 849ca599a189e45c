package harness

import (
	"fmt"
	"slices"
)

// checkExpectations compares a finished run against scenario.Expect.
func checkExpectations(scenario *Scenario, result *Result) {
	exp := scenario.Expect

	if exp.States != nil && !slices.Equal(exp.States, result.States) {
		result.AddFailure(fmt.Sprintf("states: expected %q, got %q", exp.States, result.States))
	}

	if exp.Final != nil && *exp.Final != result.Final {
		result.AddFailure(fmt.Sprintf("final: expected %q, got %q", *exp.Final, result.Final))
	}

	if exp.Errors != nil && *exp.Errors != len(result.RuntimeErrors) {
		result.AddFailure(fmt.Sprintf("errors: expected %d, got %d %q", *exp.Errors, len(result.RuntimeErrors), result.RuntimeErrors))
	}

	if exp.Effects != nil && !slices.Equal(exp.Effects, result.Effects) {
		result.AddFailure(fmt.Sprintf("effects: expected %q, got %q", exp.Effects, result.Effects))
	}
}
