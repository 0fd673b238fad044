package projection

import (
	"context"
	"fmt"
	"time"

	"github.com/louisbranch/okr/internal/services/objective/domain/replay"
	"github.com/louisbranch/okr/internal/services/objective/domain/view"
	"github.com/louisbranch/okr/internal/services/objective/storage"
)

// RebuildStats summarizes a rebuild run.
type RebuildStats struct {
	Aggregates int
	Events     int
}

// Rebuild replays each aggregate's full stream through the view reducer and
// overwrites its stored view. With no ids it rebuilds every aggregate in the
// journal.
func Rebuild(ctx context.Context, events storage.EventStore, views storage.ViewStore, ids ...string) (RebuildStats, error) {
	if views == nil {
		return RebuildStats{}, ErrViewStoreRequired
	}
	if events == nil {
		return RebuildStats{}, replay.ErrEventStoreRequired
	}
	if len(ids) == 0 {
		all, err := events.ListAggregateIDs(ctx)
		if err != nil {
			return RebuildStats{}, fmt.Errorf("list aggregates: %w", err)
		}
		ids = all
	}

	var stats RebuildStats
	for _, id := range ids {
		result, err := Replay(ctx, events, id)
		if err != nil {
			return stats, err
		}
		stats.Events += result.Applied
		if !result.State.Exists() {
			continue
		}
		if err := views.PutView(ctx, storage.ViewRecord{
			View:      result.State,
			LastSeq:   result.LastSeq,
			UpdatedAt: time.Now().UTC(),
		}); err != nil {
			return stats, fmt.Errorf("store view %s: %w", id, err)
		}
		stats.Aggregates++
	}
	return stats, nil
}

// Replay folds one aggregate's full stream into a view.
func Replay(ctx context.Context, events replay.EventStore, aggregateID string) (replay.Result[view.View], error) {
	result, err := replay.Replay(ctx, events, view.Apply, aggregateID, view.View{}, replay.Options{})
	if err != nil {
		return result, fmt.Errorf("replay view %s: %w", aggregateID, err)
	}
	return result, nil
}
