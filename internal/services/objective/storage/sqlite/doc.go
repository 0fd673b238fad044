// Package sqlite persists the objective event journal and projected views in
// a single SQLite database.
//
// Events are keyed by (aggregate_id, seq). Appends run inside a transaction
// that reads the stream head, so a stale expected sequence surfaces as
// storage.ErrConcurrencyConflict rather than a silent fork. Each row carries
// its content hash and chain hash; VerifyEventIntegrity walks every stream and
// recomputes them.
package sqlite
