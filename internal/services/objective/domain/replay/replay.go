// Package replay folds an aggregate's stored events, in sequence order, into
// any state type.
package replay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/okr/internal/services/objective/domain/event"
)

const defaultPageSize = 200

var (
	// ErrEventStoreRequired indicates a missing event store.
	ErrEventStoreRequired = errors.New("event store is required")
	// ErrFoldRequired indicates a missing fold function.
	ErrFoldRequired = errors.New("fold function is required")
	// ErrAggregateIDRequired indicates a missing aggregate id.
	ErrAggregateIDRequired = errors.New("aggregate id is required")
	// ErrSequenceGap indicates a hole in a stored stream.
	ErrSequenceGap = errors.New("event sequence gap")
)

// EventStore lists events for replay.
type EventStore interface {
	ListEvents(ctx context.Context, aggregateID string, afterSeq uint64, limit int) ([]event.Event, error)
}

// Fold applies one event to a state value.
type Fold[S any] func(S, event.Event) (S, error)

// Options configures replay behavior.
type Options struct {
	AfterSeq uint64
	UntilSeq uint64
	PageSize int
}

// Result captures replay outcomes.
type Result[S any] struct {
	State   S
	LastSeq uint64
	Applied int
}

// Replay pages through the stream after options.AfterSeq and folds every event
// into state. Sequences must be contiguous; a gap stops the replay with
// ErrSequenceGap and returns the state folded so far.
func Replay[S any](ctx context.Context, store EventStore, fold Fold[S], aggregateID string, state S, options Options) (Result[S], error) {
	if store == nil {
		return Result[S]{}, ErrEventStoreRequired
	}
	if fold == nil {
		return Result[S]{}, ErrFoldRequired
	}
	aggregateID = strings.TrimSpace(aggregateID)
	if aggregateID == "" {
		return Result[S]{}, ErrAggregateIDRequired
	}
	pageSize := options.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	result := Result[S]{State: state, LastSeq: options.AfterSeq}
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		events, err := store.ListEvents(ctx, aggregateID, result.LastSeq, pageSize)
		if err != nil {
			return result, fmt.Errorf("list events %s: %w", aggregateID, err)
		}
		if len(events) == 0 {
			return result, nil
		}
		for _, evt := range events {
			if options.UntilSeq > 0 && evt.Seq > options.UntilSeq {
				return result, nil
			}
			expectedSeq := result.LastSeq + 1
			if evt.Seq != expectedSeq {
				return result, fmt.Errorf("%w: expected %d got %d", ErrSequenceGap, expectedSeq, evt.Seq)
			}
			next, err := fold(result.State, evt)
			if err != nil {
				return result, fmt.Errorf("fold %s seq %d: %w", aggregateID, evt.Seq, err)
			}
			result.State = next
			result.LastSeq = evt.Seq
			result.Applied++
		}
		if len(events) < pageSize {
			return result, nil
		}
	}
}
