package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rxflow/internal/textmodel"
)

// DefaultEngineID is used when a scenario names none.
const DefaultEngineID = "scenario-engine"

// Handler kinds.
const (
	HandlerManual = "manual"
	HandlerAsync  = "async"
)

// Scenario defines one scripted engine run.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// Initial is the engine's initial state.
	Initial string `yaml:"initial" json:"initial"`

	// Skip configures the equality-skip predicate: "none" (default),
	// "equal", or "prefix:<n>".
	Skip string `yaml:"skip,omitempty" json:"skip,omitempty"`

	// Handler is "manual" (default) or "async".
	Handler string `yaml:"handler,omitempty" json:"handler,omitempty"`

	// EngineID fixes the engine ID. Defaults to DefaultEngineID.
	EngineID string `yaml:"engine_id,omitempty" json:"engine_id,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps" json:"steps"`

	// Expect holds the checks applied after the last step.
	Expect Expect `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// Step is exactly one of: an event, an effect completion, or disposal.
type Step struct {
	Event    *textmodel.Event `yaml:"event,omitempty" json:"event,omitempty"`
	Complete *Completion      `yaml:"complete,omitempty" json:"complete,omitempty"`
	Dispose  bool             `yaml:"dispose,omitempty" json:"dispose,omitempty"`
}

// Completion completes the pending effect at index Effect (in order of
// request). Value, when set, replaces the load value.
type Completion struct {
	Effect int     `yaml:"effect" json:"effect"`
	Value  *string `yaml:"value,omitempty" json:"value,omitempty"`
}

// Expect lists the checks for a run. Unset fields are not checked.
type Expect struct {
	// States is the exact sequence of emitted states, starting with the
	// initial one.
	States []string `yaml:"states,omitempty" json:"states,omitempty"`

	// Final is the state after the last step.
	Final *string `yaml:"final,omitempty" json:"final,omitempty"`

	// Errors is the number of runtime errors reported.
	Errors *int `yaml:"errors,omitempty" json:"errors,omitempty"`

	// Effects lists the load values requested, in order.
	Effects []string `yaml:"effects,omitempty" json:"effects,omitempty"`
}

// LoadScenario reads and parses a scenario file, choosing the format by
// extension. Returns an error if the file doesn't exist, is malformed,
// contains unknown fields, or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var s *Scenario
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		s, err = ParseCUE(data, path)
	case ".yaml", ".yml":
		s, err = ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported scenario format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ParseYAML parses and validates a YAML scenario.
func ParseYAML(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "step:" vs "steps:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := Validate(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Validate checks that required fields are present and consistent.
func Validate(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if _, err := ParseSkip(s.Skip); err != nil {
		return err
	}

	switch s.Handler {
	case "", HandlerManual, HandlerAsync:
	default:
		return fmt.Errorf("handler must be %q or %q, got %q", HandlerManual, HandlerAsync, s.Handler)
	}

	for i, step := range s.Steps {
		if err := validateStep(s, step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	if s.Expect.Errors != nil && *s.Expect.Errors < 0 {
		return fmt.Errorf("expect.errors must be >= 0")
	}
	return nil
}

func validateStep(s *Scenario, step Step) error {
	set := 0
	if step.Event != nil {
		set++
	}
	if step.Complete != nil {
		set++
	}
	if step.Dispose {
		set++
	}
	if set != 1 {
		return fmt.Errorf("exactly one of event, complete, dispose is required")
	}

	if step.Event != nil {
		switch step.Event.Kind {
		case textmodel.KindAppend, textmodel.KindSet, textmodel.KindReplace, textmodel.KindFail:
		case "":
			return fmt.Errorf("event.kind is required")
		default:
			// Unknown kinds are allowed: they exercise the reducer's
			// error path.
		}
	}

	if step.Complete != nil {
		if s.Handler == HandlerAsync {
			return fmt.Errorf("complete is not allowed with the async handler")
		}
		if step.Complete.Effect < 0 {
			return fmt.Errorf("complete.effect must be >= 0")
		}
	}
	return nil
}
