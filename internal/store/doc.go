// Package store provides a SQLite-backed trace log of engine transitions.
//
// The log is append-only and diagnostic: it records what each engine did,
// one row per processed event, for the CLI's trace command and for
// post-mortem inspection. Nothing restores an engine from it.
//
// # Tables
//
//   - engines: one row per recorded engine (ID, label, initial state)
//   - transitions: one row per processed event, keyed by (engine_id, seq)
//
// # Conventions
//
//   - Ordering uses seq, the engine's logical clock, never wall time
//   - Reads are ORDER BY seq ASC so results are reproducible
//   - Event, state, and effect payloads are canonical JSON (see internal/canon)
//   - Writes are idempotent: ON CONFLICT DO NOTHING
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
