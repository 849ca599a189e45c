package engine

import (
	"log/slog"

	"github.com/roach88/rxflow/internal/sched"
)

// settings holds construction-time configuration shared by every engine
// instantiation. The predicate is stored untyped and checked in New.
type settings struct {
	predicate any
	scheduler sched.Scheduler
	errorSink func(error)
	logger    *slog.Logger
	id        string
	idGen     IDGenerator
}

// Option configures an Engine at construction time.
type Option func(*settings)

// WithPredicate installs an equality-skip predicate. Transitions for which
// p(current, next) is true are neither committed nor emitted.
//
// Default: nil, every reducer result is emitted, including values equal to
// the previous one.
//
// The predicate's state type must match the engine's; New panics otherwise.
func WithPredicate[S any](p Predicate[S]) Option {
	return func(s *settings) {
		s.predicate = p
	}
}

// WithScheduler sets where the drain loop (reduce, predicate, emit, and effect
// hand-off) runs.
//
// Default: sched.Immediate, which drains on the goroutine that found the
// engine idle. Use a sched.Serial to keep all of that off callers' goroutines.
func WithScheduler(sc sched.Scheduler) Option {
	return func(s *settings) {
		s.scheduler = sc
	}
}

// WithErrorSink receives every RuntimeError. Called on the drain goroutine.
//
// Default: log at error level through the engine logger.
func WithErrorSink(sink func(error)) Option {
	return func(s *settings) {
		s.errorSink = sink
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithID sets the engine ID, overriding any IDGenerator.
func WithID(id string) Option {
	return func(s *settings) {
		s.id = id
	}
}

// WithIDGenerator sets the generator used for the engine ID.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *settings) {
		s.idGen = g
	}
}
