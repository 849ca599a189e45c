package harness

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/rxflow/internal/engine"
	"github.com/roach88/rxflow/internal/predicate"
)

// ParseSkip turns a skip setting into a predicate. "" and "none" return
// nil: no predicate, every state is emitted.
func ParseSkip(setting string) (engine.Predicate[string], error) {
	switch {
	case setting == "" || setting == "none":
		return nil, nil
	case setting == "equal":
		return predicate.Equal[string](), nil
	case strings.HasPrefix(setting, "prefix:"):
		n, err := strconv.Atoi(strings.TrimPrefix(setting, "prefix:"))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("skip %q: prefix length must be a non-negative integer", setting)
		}
		return predicate.Prefix(n), nil
	default:
		return nil, fmt.Errorf("skip must be none, equal, or prefix:<n>, got %q", setting)
	}
}
