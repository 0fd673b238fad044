package engine

import (
	"context"
	"errors"

	"github.com/louisbranch/okr/internal/services/objective/domain/checkpoint"
	"github.com/louisbranch/okr/internal/services/objective/domain/objective"
	"github.com/louisbranch/okr/internal/services/objective/domain/replay"
)

// SnapshotStore loads and saves write-state snapshots keyed by aggregate.
type SnapshotStore interface {
	GetState(ctx context.Context, aggregateID string) (objective.State, uint64, error)
	SaveState(ctx context.Context, aggregateID string, lastSeq uint64, state objective.State) error
}

// StateLoader rebuilds write state from the latest snapshot plus the tail of
// the stream.
type StateLoader struct {
	Events    replay.EventStore
	Snapshots SnapshotStore
	PageSize  int
}

// Load returns the objective's state and the last sequence folded into it.
func (l StateLoader) Load(ctx context.Context, aggregateID string) (objective.State, uint64, error) {
	if l.Events == nil {
		return objective.State{}, 0, replay.ErrEventStoreRequired
	}
	var (
		state   objective.State
		options = replay.Options{PageSize: l.PageSize}
	)
	if l.Snapshots != nil {
		snapshot, seq, err := l.Snapshots.GetState(ctx, aggregateID)
		switch {
		case err == nil:
			state = snapshot
			options.AfterSeq = seq
		case !errors.Is(err, checkpoint.ErrNotFound):
			return objective.State{}, 0, err
		}
	}
	result, err := replay.Replay(ctx, l.Events, objective.Fold, aggregateID, state, options)
	if err != nil {
		return objective.State{}, 0, err
	}
	return result.State, result.LastSeq, nil
}
