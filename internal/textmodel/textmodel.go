// Package textmodel is a small string-state domain used by the scenario
// harness, the CLI, and tests.
//
// The state is a string. Events:
//
//	append{value}   state + value
//	set{value}      state + "-", and request Load{value}
//	replace{value}  value
//	fail            reducer panics (the event is dropped by the engine)
//
// Any other kind is rejected with ErrUnknownEvent.
package textmodel

import (
	"errors"
	"fmt"
)

// Kind identifies an event.
type Kind string

const (
	KindAppend  Kind = "append"
	KindSet     Kind = "set"
	KindReplace Kind = "replace"
	KindFail    Kind = "fail"
)

// ErrUnknownEvent is returned for an event kind the reducer does not know.
var ErrUnknownEvent = errors.New("unknown event kind")

// Event is one input to the reducer.
type Event struct {
	Kind  Kind   `json:"kind" yaml:"kind"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

func (e Event) String() string {
	if e.Value == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s(%q)", e.Kind, e.Value)
}

// Append returns an append event.
func Append(v string) Event { return Event{Kind: KindAppend, Value: v} }

// Set returns a set event whose load will produce v.
func Set(v string) Event { return Event{Kind: KindSet, Value: v} }

// Replace returns a replace event.
func Replace(v string) Event { return Event{Kind: KindReplace, Value: v} }

// Fail returns an event that makes the reducer panic.
func Fail() Event { return Event{Kind: KindFail} }

// Effect asks a handler to load Value and append it to the state.
type Effect struct {
	Load string `json:"load"`
}

// Reducer implements engine.TryReducer for the text domain.
type Reducer struct{}

// TryReduce applies event to state.
func (Reducer) TryReduce(state string, event Event) (string, *Effect, error) {
	switch event.Kind {
	case KindAppend:
		return state + event.Value, nil, nil
	case KindSet:
		return state + "-", &Effect{Load: event.Value}, nil
	case KindReplace:
		return event.Value, nil, nil
	case KindFail:
		panic(fmt.Sprintf("textmodel: fail event on state %q", state))
	default:
		return state, nil, fmt.Errorf("%w: %q", ErrUnknownEvent, event.Kind)
	}
}

// Reduce applies event to state, panicking on an unknown kind.
func (r Reducer) Reduce(state string, event Event) (string, *Effect) {
	next, effect, err := r.TryReduce(state, event)
	if err != nil {
		panic(err)
	}
	return next, effect
}
