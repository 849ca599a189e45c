package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// ReadEngines returns every recorded engine with its transition count,
// ordered by ID.
//
// Returns an empty slice (not nil) if nothing was recorded.
func (s *Store) ReadEngines(ctx context.Context) ([]EngineRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.label, e.initial_state, COUNT(t.seq)
		FROM engines e
		LEFT JOIN transitions t ON t.engine_id = e.id
		GROUP BY e.id
		ORDER BY e.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query engines: %w", err)
	}
	defer rows.Close()

	engines := []EngineRecord{}
	for rows.Next() {
		var rec EngineRecord
		var initial string
		if err := rows.Scan(&rec.ID, &rec.Label, &initial, &rec.Transitions); err != nil {
			return nil, fmt.Errorf("scan engine: %w", err)
		}
		rec.InitialState = json.RawMessage(initial)
		engines = append(engines, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate engines: %w", err)
	}
	return engines, nil
}

// ReadTransitions returns every transition of an engine, ORDER BY seq ASC.
//
// Returns an empty slice (not nil) if none exist.
func (s *Store) ReadTransitions(ctx context.Context, engineID string) ([]TransitionRecord, error) {
	return s.readTransitions(ctx, `
		SELECT engine_id, seq, event, prev_state, next_state, effect, outcome, error, state_digest
		FROM transitions
		WHERE engine_id = ?
		ORDER BY seq ASC
	`, engineID)
}

// ReadFailures returns failed transitions across all engines,
// ORDER BY engine_id, seq.
func (s *Store) ReadFailures(ctx context.Context) ([]TransitionRecord, error) {
	return s.readTransitions(ctx, `
		SELECT engine_id, seq, event, prev_state, next_state, effect, outcome, error, state_digest
		FROM transitions
		WHERE outcome = 'failed'
		ORDER BY engine_id COLLATE BINARY ASC, seq ASC
	`)
}

func (s *Store) readTransitions(ctx context.Context, query string, args ...any) ([]TransitionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	records := []TransitionRecord{}
	for rows.Next() {
		rec, err := scanTransition(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return records, nil
}

func scanTransition(rows *sql.Rows) (TransitionRecord, error) {
	var rec TransitionRecord
	var event, prev string
	var next, effect sql.NullString
	if err := rows.Scan(
		&rec.EngineID,
		&rec.Seq,
		&event,
		&prev,
		&next,
		&effect,
		&rec.Outcome,
		&rec.Error,
		&rec.StateDigest,
	); err != nil {
		return rec, fmt.Errorf("scan transition: %w", err)
	}

	rec.Event = json.RawMessage(event)
	rec.Prev = json.RawMessage(prev)
	if next.Valid {
		rec.Next = json.RawMessage(next.String)
	}
	if effect.Valid {
		rec.Effect = json.RawMessage(effect.String)
	}
	return rec, nil
}
