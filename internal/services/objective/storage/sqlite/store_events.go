package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/okr/internal/services/objective/domain/event"
	"github.com/louisbranch/okr/internal/services/objective/storage"
)

const eventColumns = `aggregate_id, seq, event_type, timestamp, actor_id, request_id, correlation_id,
causation_id, payload_json, event_hash, prev_event_hash, chain_hash`

// AppendEvent appends evt as expectedSeq+1 in a single transaction.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event, expectedSeq uint64) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}
	if s.registry != nil {
		validated, err := s.registry.ValidateForAppend(evt)
		if err != nil {
			return event.Event{}, err
		}
		evt = validated
	}
	if strings.TrimSpace(evt.AggregateID) == "" {
		return event.Event{}, fmt.Errorf("aggregate id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return event.Event{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		lastSeq       uint64
		prevChainHash string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT seq, chain_hash FROM events WHERE aggregate_id = ? ORDER BY seq DESC LIMIT 1`,
		evt.AggregateID,
	).Scan(&lastSeq, &prevChainHash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return event.Event{}, fmt.Errorf("read stream head: %w", err)
	}
	if lastSeq != expectedSeq {
		return event.Event{}, fmt.Errorf("%w: aggregate %s at seq %d, expected %d", storage.ErrConcurrencyConflict, evt.AggregateID, lastSeq, expectedSeq)
	}

	evt.Seq = lastSeq + 1
	sealed, err := event.Seal(evt, prevChainHash)
	if err != nil {
		return event.Event{}, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sealed.AggregateID,
		int64(sealed.Seq),
		string(sealed.Type),
		toMillis(sealed.Timestamp),
		sealed.ActorID,
		sealed.RequestID,
		sealed.CorrelationID,
		sealed.CausationID,
		sealed.PayloadJSON,
		sealed.Hash,
		sealed.PrevHash,
		sealed.ChainHash,
	)
	if err != nil {
		if isConstraintError(err) {
			return event.Event{}, fmt.Errorf("%w: aggregate %s seq %d already written", storage.ErrConcurrencyConflict, sealed.AggregateID, sealed.Seq)
		}
		return event.Event{}, fmt.Errorf("append event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		if isConstraintError(err) {
			return event.Event{}, fmt.Errorf("%w: %v", storage.ErrConcurrencyConflict, err)
		}
		return event.Event{}, fmt.Errorf("commit: %w", err)
	}
	return sealed, nil
}

// ListEvents returns up to limit events after afterSeq. A non-positive limit
// returns the whole tail.
func (s *Store) ListEvents(ctx context.Context, aggregateID string, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE aggregate_id = ? AND seq > ? ORDER BY seq`
	args := []any{strings.TrimSpace(aggregateID), int64(afterSeq)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// GetLatestEventSeq returns the last sequence of a stream, or 0.
func (s *Store) GetLatestEventSeq(ctx context.Context, aggregateID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var seq int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM events WHERE aggregate_id = ?`,
		strings.TrimSpace(aggregateID),
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get latest event seq: %w", err)
	}
	return uint64(seq), nil
}

// ListAggregateIDs returns every aggregate with events, ascending.
func (s *Store) ListAggregateIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT DISTINCT aggregate_id FROM events ORDER BY aggregate_id`)
	if err != nil {
		return nil, fmt.Errorf("list aggregate ids: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan aggregate id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// VerifyEventIntegrity recomputes sequence and hash chains for every stream.
// It returns the number of events checked.
func (s *Store) VerifyEventIntegrity(ctx context.Context) (int, error) {
	ids, err := s.ListAggregateIDs(ctx)
	if err != nil {
		return 0, err
	}
	checked := 0
	for _, id := range ids {
		n, err := s.VerifyAggregate(ctx, id)
		checked += n
		if err != nil {
			return checked, err
		}
	}
	return checked, nil
}

// VerifyAggregate recomputes the hash chain of one stream.
func (s *Store) VerifyAggregate(ctx context.Context, aggregateID string) (int, error) {
	const pageSize = 500
	var (
		verifier event.ChainVerifier
		checked  int
	)
	for {
		events, err := s.ListEvents(ctx, aggregateID, verifier.LastSeq(), pageSize)
		if err != nil {
			return checked, err
		}
		for _, evt := range events {
			if err := verifier.Check(evt); err != nil {
				return checked, err
			}
			checked++
		}
		if len(events) < pageSize {
			return checked, nil
		}
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (event.Event, error) {
	var (
		evt       event.Event
		seq       int64
		eventType string
		timestamp int64
	)
	if err := row.Scan(
		&evt.AggregateID,
		&seq,
		&eventType,
		&timestamp,
		&evt.ActorID,
		&evt.RequestID,
		&evt.CorrelationID,
		&evt.CausationID,
		&evt.PayloadJSON,
		&evt.Hash,
		&evt.PrevHash,
		&evt.ChainHash,
	); err != nil {
		return event.Event{}, fmt.Errorf("scan event: %w", err)
	}
	evt.Seq = uint64(seq)
	evt.Type = event.Type(eventType)
	evt.Timestamp = fromMillis(timestamp)
	return evt, nil
}
