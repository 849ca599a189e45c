package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/rxflow/internal/canon"
	"github.com/roach88/rxflow/internal/engine"
)

// Outcome values stored in transitions.outcome.
const (
	OutcomeCommitted = "committed"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// stateDigestDomain separates state digests from other canonical hashes.
const stateDigestDomain = "rxflow/state/v1"

// EngineRecord is one row of the engines table.
type EngineRecord struct {
	ID           string          `json:"id"`
	Label        string          `json:"label"`
	InitialState json.RawMessage `json:"initial_state"`
	Transitions  int             `json:"transitions"`
}

// TransitionRecord is one row of the transitions table. Payloads are
// canonical JSON; Next and Effect are nil when absent.
type TransitionRecord struct {
	EngineID    string          `json:"engine_id"`
	Seq         int64           `json:"seq"`
	Event       json.RawMessage `json:"event"`
	Prev        json.RawMessage `json:"prev"`
	Next        json.RawMessage `json:"next,omitempty"`
	Effect      json.RawMessage `json:"effect,omitempty"`
	Outcome     string          `json:"outcome"`
	Error       string          `json:"error,omitempty"`
	StateDigest string          `json:"state_digest,omitempty"`
}

// NewTransitionRecord converts an engine transition into a storable record.
// Committed transitions carry a digest of the new state.
func NewTransitionRecord[S, E, F any](tr engine.Transition[S, E, F]) (TransitionRecord, error) {
	rec := TransitionRecord{EngineID: tr.EngineID, Seq: tr.Seq}

	var err error
	if rec.Event, err = canon.Marshal(tr.Event); err != nil {
		return rec, fmt.Errorf("transition %d event: %w", tr.Seq, err)
	}
	if rec.Prev, err = canon.Marshal(tr.Prev); err != nil {
		return rec, fmt.Errorf("transition %d prev state: %w", tr.Seq, err)
	}

	switch {
	case tr.Err != nil:
		rec.Outcome = OutcomeFailed
		rec.Error = tr.Err.Error()
		return rec, nil
	case tr.Skipped:
		rec.Outcome = OutcomeSkipped
	default:
		rec.Outcome = OutcomeCommitted
		if rec.StateDigest, err = canon.Digest(stateDigestDomain, tr.Next); err != nil {
			return rec, fmt.Errorf("transition %d digest: %w", tr.Seq, err)
		}
	}

	if rec.Next, err = canon.Marshal(tr.Next); err != nil {
		return rec, fmt.Errorf("transition %d next state: %w", tr.Seq, err)
	}
	if tr.Effect != nil {
		if rec.Effect, err = canon.Marshal(*tr.Effect); err != nil {
			return rec, fmt.Errorf("transition %d effect: %w", tr.Seq, err)
		}
	}
	return rec, nil
}

// nullable maps an empty payload to SQL NULL.
func nullable(raw json.RawMessage) any {
	if raw == nil {
		return nil
	}
	return string(raw)
}
