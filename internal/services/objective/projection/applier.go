package projection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/okr/internal/services/objective/domain/event"
	"github.com/louisbranch/okr/internal/services/objective/domain/replay"
	"github.com/louisbranch/okr/internal/services/objective/domain/view"
	"github.com/louisbranch/okr/internal/services/objective/storage"
)

const tracerName = "github.com/louisbranch/okr/internal/services/objective/projection"

// ErrViewStoreRequired indicates a missing view store.
var ErrViewStoreRequired = errors.New("view store is required")

// Applier applies journal events to the objective view store.
type Applier struct {
	Views storage.ViewStore
	// Events backfills the journal tail when an event arrives ahead of the
	// stored view.
	Events replay.EventStore
	Now    func() time.Time
	Tracer trace.Tracer
}

// Apply folds evt into the stored view. Events at or below the stored
// sequence are skipped. An event past the next expected sequence folds the
// missing tail from Events first; without Events it fails with
// replay.ErrSequenceGap.
func (a Applier) Apply(ctx context.Context, evt event.Event) error {
	if a.Views == nil {
		return ErrViewStoreRequired
	}
	tracer := a.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	ctx, span := tracer.Start(ctx, "objective.Project", trace.WithAttributes(
		attribute.String("okr.aggregate_id", evt.AggregateID),
		attribute.String("okr.event_type", string(evt.Type)),
		attribute.Int64("okr.seq", int64(evt.Seq)),
	))
	defer span.End()

	record, err := a.Views.GetView(ctx, evt.AggregateID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		span.RecordError(err)
		return fmt.Errorf("load view %s: %w", evt.AggregateID, err)
	}
	if evt.Seq != 0 && evt.Seq <= record.LastSeq {
		return nil
	}

	var (
		next    view.View
		lastSeq = evt.Seq
	)
	if evt.Seq > record.LastSeq+1 {
		next, lastSeq, err = a.catchUp(ctx, record, evt)
	} else {
		next, err = view.Apply(record.View, evt)
		if err != nil {
			err = fmt.Errorf("apply %s seq %d: %w", evt.Type, evt.Seq, err)
		}
	}
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !next.Exists() {
		// Nothing to show until the objective is created.
		return nil
	}
	return a.Views.PutView(ctx, storage.ViewRecord{
		View:      next,
		LastSeq:   lastSeq,
		UpdatedAt: a.now(),
	})
}

// catchUp folds the journal from the stored view's sequence through evt.
func (a Applier) catchUp(ctx context.Context, record storage.ViewRecord, evt event.Event) (view.View, uint64, error) {
	if a.Events == nil {
		return view.View{}, 0, fmt.Errorf("project %s seq %d after %d: %w", evt.AggregateID, evt.Seq, record.LastSeq, replay.ErrSequenceGap)
	}
	result, err := replay.Replay(ctx, a.Events, view.Apply, evt.AggregateID, record.View, replay.Options{
		AfterSeq: record.LastSeq,
		UntilSeq: evt.Seq,
	})
	if err != nil {
		return view.View{}, 0, fmt.Errorf("catch up view %s: %w", evt.AggregateID, err)
	}
	if result.LastSeq != evt.Seq {
		return view.View{}, 0, fmt.Errorf("catch up view %s: journal ends at %d before %d: %w", evt.AggregateID, result.LastSeq, evt.Seq, replay.ErrSequenceGap)
	}
	return result.State, result.LastSeq, nil
}

func (a Applier) now() time.Time {
	if a.Now == nil {
		return time.Now().UTC()
	}
	return a.Now().UTC()
}
