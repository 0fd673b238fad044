// Package checkpoint stores write-state snapshots so command handling can
// replay only the tail of a stream.
package checkpoint

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	// ErrAggregateIDRequired indicates a missing aggregate id.
	ErrAggregateIDRequired = errors.New("aggregate id is required")
	// ErrNotFound indicates no snapshot exists yet.
	ErrNotFound = errors.New("checkpoint not found")

	errStoreRequired = errors.New("checkpoint store is required")
)

// Checkpoint records the last sequence folded into a snapshot.
type Checkpoint struct {
	AggregateID string
	LastSeq     uint64
	UpdatedAt   time.Time
}

type entry[S any] struct {
	checkpoint Checkpoint
	state      S
}

// Memory stores snapshots in memory. States are cloned on save and on load so
// a caller can never alter a stored snapshot.
type Memory[S any] struct {
	mu      sync.Mutex
	clone   func(S) S
	entries map[string]entry[S]
	now     func() time.Time
}

// NewMemory creates an in-memory snapshot store. A nil clone stores values as
// given, which is only safe for states without maps or slices.
func NewMemory[S any](clone func(S) S) *Memory[S] {
	if clone == nil {
		clone = func(state S) S { return state }
	}
	return &Memory[S]{
		clone:   clone,
		entries: make(map[string]entry[S]),
		now:     time.Now,
	}
}

// Get returns the checkpoint for an aggregate.
func (m *Memory[S]) Get(ctx context.Context, aggregateID string) (Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return Checkpoint{}, err
	}
	if m == nil {
		return Checkpoint{}, errStoreRequired
	}
	aggregateID = strings.TrimSpace(aggregateID)
	if aggregateID == "" {
		return Checkpoint{}, ErrAggregateIDRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.entries[aggregateID]
	if !ok {
		return Checkpoint{}, ErrNotFound
	}
	return stored.checkpoint, nil
}

// GetState returns a copy of the stored snapshot and its sequence.
func (m *Memory[S]) GetState(ctx context.Context, aggregateID string) (S, uint64, error) {
	var zero S
	if err := ctx.Err(); err != nil {
		return zero, 0, err
	}
	if m == nil {
		return zero, 0, errStoreRequired
	}
	aggregateID = strings.TrimSpace(aggregateID)
	if aggregateID == "" {
		return zero, 0, ErrAggregateIDRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.entries[aggregateID]
	if !ok {
		return zero, 0, ErrNotFound
	}
	return m.clone(stored.state), stored.checkpoint.LastSeq, nil
}

// SaveState stores a snapshot folded through lastSeq. Older snapshots never
// replace newer ones.
func (m *Memory[S]) SaveState(ctx context.Context, aggregateID string, lastSeq uint64, state S) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m == nil {
		return errStoreRequired
	}
	aggregateID = strings.TrimSpace(aggregateID)
	if aggregateID == "" {
		return ErrAggregateIDRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[aggregateID]; ok && existing.checkpoint.LastSeq > lastSeq {
		return nil
	}
	m.entries[aggregateID] = entry[S]{
		checkpoint: Checkpoint{
			AggregateID: aggregateID,
			LastSeq:     lastSeq,
			UpdatedAt:   m.now().UTC(),
		},
		state: m.clone(state),
	}
	return nil
}

// Delete drops an aggregate's snapshot.
func (m *Memory[S]) Delete(ctx context.Context, aggregateID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m == nil {
		return errStoreRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, strings.TrimSpace(aggregateID))
	return nil
}
