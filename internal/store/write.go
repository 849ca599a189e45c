package store

import (
	"context"
	"fmt"

	"github.com/roach88/rxflow/internal/canon"
)

// WriteEngine registers an engine and its initial state.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) WriteEngine(ctx context.Context, id, label string, initial any) error {
	initialJSON, err := canon.Marshal(initial)
	if err != nil {
		return fmt.Errorf("write engine: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO engines (id, label, initial_state)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, label, string(initialJSON))
	if err != nil {
		return fmt.Errorf("write engine: %w", err)
	}
	return nil
}

// WriteTransition appends a transition record.
// Uses ON CONFLICT DO NOTHING for idempotency - a repeated (engine_id, seq)
// is silently ignored.
//
// Note: The engine referenced by EngineID must exist (foreign key constraint).
func (s *Store) WriteTransition(ctx context.Context, rec TransitionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transitions
		(engine_id, seq, event, prev_state, next_state, effect, outcome, error, state_digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		rec.EngineID,
		rec.Seq,
		string(rec.Event),
		string(rec.Prev),
		nullable(rec.Next),
		nullable(rec.Effect),
		rec.Outcome,
		rec.Error,
		rec.StateDigest,
	)
	if err != nil {
		return fmt.Errorf("write transition %s/%d: %w", rec.EngineID, rec.Seq, err)
	}
	return nil
}
