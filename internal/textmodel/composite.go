package textmodel

import "github.com/roach88/rxflow/internal/engine"

// Composite combines the text domain with a counter into one engine by
// threading tagged unions through a single reducer and handler.
//
// Each sub-domain keeps its own reducer; the composite reducer routes on the
// event tag and lifts the sub-effect back into the composite effect.

// CompositeState is the combined state.
type CompositeState struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// CompositeEvent carries exactly one of its fields.
type CompositeEvent struct {
	Text  *Event `json:"text,omitempty"`
	Delta *int   `json:"delta,omitempty"`
}

// TextEvent wraps a text event.
func TextEvent(e Event) CompositeEvent { return CompositeEvent{Text: &e} }

// CountEvent wraps a counter delta.
func CountEvent(delta int) CompositeEvent { return CompositeEvent{Delta: &delta} }

// CompositeEffect carries exactly one of its fields. The counter has no
// effects, so only the text case exists.
type CompositeEffect struct {
	Text *Effect `json:"text,omitempty"`
}

// CompositeReducer implements engine.Reducer for the combined domain.
type CompositeReducer struct {
	Text engine.Reducer[string, Event, Effect]
}

// NewCompositeReducer uses the text Reducer.
func NewCompositeReducer() CompositeReducer {
	return CompositeReducer{Text: Reducer{}}
}

// Reduce routes event to the matching sub-reducer.
func (r CompositeReducer) Reduce(state CompositeState, event CompositeEvent) (CompositeState, *CompositeEffect) {
	switch {
	case event.Text != nil:
		next, eff := r.Text.Reduce(state.Text, *event.Text)
		state.Text = next
		if eff != nil {
			return state, &CompositeEffect{Text: eff}
		}
		return state, nil
	case event.Delta != nil:
		state.Count += *event.Delta
		return state, nil
	default:
		return state, nil
	}
}

// CompositeHandler routes composite effects to the sub-handlers and wraps
// their follow-up events.
type CompositeHandler struct {
	Text engine.EffectHandler[Event, Effect]
}

// HandleEffect implements engine.EffectHandler.
func (h CompositeHandler) HandleEffect(effect CompositeEffect, dispatch engine.Dispatch[CompositeEvent]) {
	if effect.Text != nil {
		h.Text.HandleEffect(*effect.Text, func(e Event) {
			dispatch(TextEvent(e))
		})
	}
}
