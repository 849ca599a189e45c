// Package predicate provides ready-made equality-skip predicates for
// engine.WithPredicate.
//
// A predicate answers "is next equivalent to prev?". When it returns true the
// engine drops the transition: state is not updated and nothing is emitted.
package predicate

import (
	"github.com/google/go-cmp/cmp"

	"github.com/roach88/rxflow/internal/engine"
)

// Never never skips. Equivalent to installing no predicate.
func Never[S any]() engine.Predicate[S] {
	return func(S, S) bool { return false }
}

// Equal skips transitions whose result is == to the current state.
func Equal[S comparable]() engine.Predicate[S] {
	return func(prev, next S) bool { return prev == next }
}

// Structural skips transitions whose result is deeply equal to the current
// state, for states holding slices, maps, or pointers. opts are passed through
// to cmp.Equal (e.g. cmpopts.EquateEmpty()).
//
// cmp.Equal panics on unexported fields unless an option handles them; the
// engine reports such a panic as ErrCodePredicatePanic and drops the event.
func Structural[S any](opts ...cmp.Option) engine.Predicate[S] {
	return func(prev, next S) bool { return cmp.Equal(prev, next, opts...) }
}

// By skips transitions that leave key(state) unchanged.
func By[S any, K comparable](key func(S) K) engine.Predicate[S] {
	return func(prev, next S) bool { return key(prev) == key(next) }
}

// Prefix skips transitions that leave the first n bytes of a string state
// unchanged. Strings shorter than n compare whole.
func Prefix(n int) engine.Predicate[string] {
	return By(func(s string) string {
		if len(s) > n {
			return s[:n]
		}
		return s
	})
}

// Any skips when at least one of ps would skip.
func Any[S any](ps ...engine.Predicate[S]) engine.Predicate[S] {
	return func(prev, next S) bool {
		for _, p := range ps {
			if p(prev, next) {
				return true
			}
		}
		return false
	}
}
