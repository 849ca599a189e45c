package harness

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// scenarioSchema mirrors Scenario. Definitions are closed, so unknown
// fields are rejected the same way the YAML loader rejects them.
const scenarioSchema = `
#Event: {
	kind:   string & !=""
	value?: string
}

#Step: {
	event?: #Event
	complete?: {
		effect: int & >=0
		value?: string
	}
	dispose?: bool
}

#Scenario: {
	name:        string & !=""
	description: string & !=""
	initial:     string | *""
	skip?:       "none" | "equal" | =~"^prefix:[0-9]+$"
	handler?:    "manual" | "async"
	engine_id?:  string
	steps: [#Step, ...#Step]
	expect?: {
		states?: [...string]
		final?:  string
		errors?: int & >=0
		effects?: [...string]
	}
}
`

// ParseCUE parses a CUE scenario, checks it against the #Scenario schema,
// and validates the result. filename is used in error positions.
func ParseCUE(data []byte, filename string) (*Scenario, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(scenarioSchema, cue.Filename("scenario-schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("scenario schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse CUE: %s", errors.Details(err, nil))
	}

	unified := schema.LookupPath(cue.ParsePath("#Scenario")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid scenario: %s", errors.Details(err, nil))
	}

	var scenario Scenario
	if err := unified.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to decode CUE: %w", err)
	}

	if err := Validate(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}
