package engine

import (
	"errors"
	"fmt"
)

// ErrSubscriptionClosed is returned by Subscription.Next once the
// subscription was cancelled or its engine disposed, and every buffered value
// has been read.
var ErrSubscriptionClosed = errors.New("subscription closed")

// RuntimeError describes a failure inside one processing step.
//
// Runtime errors never cross the Event() boundary. They are handed to the
// engine's error sink and the step is abandoned:
//   - Reducer failure: the event is consumed, state is unchanged
//   - Predicate failure: same as reducer failure
//   - Effect handler failure: state was already committed; the effect is lost
//   - Listener or hook failure: the other listeners and the effect still run
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// EngineID identifies the engine that hit the failure.
	EngineID string

	// Seq is the logical clock value of the failing step.
	Seq int64

	// Cause is the underlying error, or the recovered panic wrapped as one.
	Cause error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeReducerFailed indicates a TryReducer returned an error.
	ErrCodeReducerFailed RuntimeErrorCode = "REDUCER_FAILED"

	// ErrCodeReducerPanic indicates the reducer panicked.
	ErrCodeReducerPanic RuntimeErrorCode = "REDUCER_PANIC"

	// ErrCodePredicatePanic indicates the equality-skip predicate panicked.
	ErrCodePredicatePanic RuntimeErrorCode = "PREDICATE_PANIC"

	// ErrCodeEffectPanic indicates the effect handler panicked while being invoked.
	ErrCodeEffectPanic RuntimeErrorCode = "EFFECT_PANIC"

	// ErrCodeListenerPanic indicates a Listen callback or OnTransition hook
	// panicked. The step it was called from still completes.
	ErrCodeListenerPanic RuntimeErrorCode = "LISTENER_PANIC"

	// ErrCodeScheduleRejected indicates the scheduler refused to run a drain,
	// typically because it was closed. Queued events are kept.
	ErrCodeScheduleRejected RuntimeErrorCode = "SCHEDULE_REJECTED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.EngineID != "" {
		msg = fmt.Sprintf("%s (engine=%s, seq=%d)", msg, e.EngineID, e.Seq)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

// IsReducerError reports whether err is a reducer or predicate failure,
// i.e. an event that was dropped without changing state.
func IsReducerError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		switch re.Code {
		case ErrCodeReducerFailed, ErrCodeReducerPanic, ErrCodePredicatePanic:
			return true
		}
	}
	return false
}

// IsEffectError reports whether err is an effect handler failure.
func IsEffectError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeEffectPanic
	}
	return false
}

// newRuntimeError builds a RuntimeError from an error or recovered panic value.
func newRuntimeError(code RuntimeErrorCode, message string, cause any) *RuntimeError {
	re := &RuntimeError{Code: code, Message: message}
	switch c := cause.(type) {
	case nil:
	case error:
		re.Cause = c
	default:
		re.Cause = fmt.Errorf("%v", c)
	}
	return re
}
