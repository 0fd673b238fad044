package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/okr/internal/services/objective/domain/command"
	"github.com/louisbranch/okr/internal/services/objective/domain/event"
	"github.com/louisbranch/okr/internal/services/objective/domain/objective"
	"github.com/louisbranch/okr/internal/services/objective/storage"
)

const tracerName = "github.com/louisbranch/okr/internal/services/objective/domain/engine"

// Journal reads and appends an aggregate's events.
type Journal interface {
	AppendEvent(ctx context.Context, evt event.Event, expectedSeq uint64) (event.Event, error)
	ListEvents(ctx context.Context, aggregateID string, afterSeq uint64, limit int) ([]event.Event, error)
}

// Projector applies a persisted event to read models.
type Projector interface {
	Apply(ctx context.Context, evt event.Event) error
}

// Handler executes objective commands.
type Handler struct {
	Commands  *command.Registry
	Events    *event.Registry
	Journal   Journal
	Snapshots SnapshotStore
	Projector Projector
	Now       func() time.Time
	// ConflictRetries is how many times a command is decided again after
	// losing an append race.
	ConflictRetries int
	Tracer          trace.Tracer
}

// Result captures one handled command.
type Result struct {
	Decision command.Decision
	// State is the write state after the decision's events.
	State   objective.State
	LastSeq uint64
}

// Handle validates, decides and persists cmd. A rejection is a successful
// call: the decision carries it and nothing is appended.
func (h Handler) Handle(ctx context.Context, cmd command.Command) (Result, error) {
	if h.Commands == nil {
		return Result{}, ErrCommandRegistryRequired
	}
	if h.Journal == nil {
		return Result{}, ErrJournalRequired
	}
	tracer := h.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	ctx, span := tracer.Start(ctx, "objective.Handle", trace.WithAttributes(
		attribute.String("okr.aggregate_id", cmd.AggregateID),
		attribute.String("okr.command_type", string(cmd.Type)),
	))
	defer span.End()

	result, err := h.handle(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	if result.Decision.Rejected() {
		span.SetAttributes(attribute.String("okr.rejection_code", result.Decision.Rejections[0].Code))
	}
	span.SetAttributes(
		attribute.Int("okr.event_count", len(result.Decision.Events)),
		attribute.Int64("okr.last_seq", int64(result.LastSeq)),
	)
	return result, nil
}

func (h Handler) handle(ctx context.Context, cmd command.Command) (Result, error) {
	validated, err := h.Commands.ValidateForDecision(cmd)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrCommandInvalid, err)
	}
	cmd = validated

	now := h.Now
	if now == nil {
		now = time.Now
	}
	loader := StateLoader{Events: h.Journal, Snapshots: h.Snapshots}

	for attempt := 0; ; attempt++ {
		state, lastSeq, err := loader.Load(ctx, cmd.AggregateID)
		if err != nil {
			return Result{}, fmt.Errorf("load objective %s: %w", cmd.AggregateID, err)
		}
		decision := objective.Decide(state, cmd, now)
		if decision.Rejected() || len(decision.Events) == 0 {
			return Result{Decision: decision, State: state, LastSeq: lastSeq}, nil
		}

		stored := make([]event.Event, 0, len(decision.Events))
		expectedSeq := lastSeq
		conflict := false
		for _, evt := range decision.Events {
			if h.Events != nil {
				vetted, err := h.Events.ValidateForAppend(evt)
				if err != nil {
					return Result{}, err
				}
				evt = vetted
			}
			appended, err := h.Journal.AppendEvent(ctx, evt, expectedSeq)
			if errors.Is(err, storage.ErrConcurrencyConflict) && len(stored) == 0 && attempt < h.ConflictRetries {
				conflict = true
				break
			}
			if err != nil {
				return Result{}, err
			}
			stored = append(stored, appended)
			expectedSeq = appended.Seq
		}
		if conflict {
			continue
		}
		decision.Events = stored
		return h.afterAppend(ctx, cmd.AggregateID, decision, state)
	}
}

// afterAppend folds, snapshots and projects persisted events. Failures here
// are non-retryable since the events are already in the journal.
func (h Handler) afterAppend(ctx context.Context, aggregateID string, decision command.Decision, state objective.State) (Result, error) {
	var lastSeq uint64
	for _, evt := range decision.Events {
		next, err := objective.Fold(state, evt)
		if err != nil {
			return Result{}, wrapNonRetryable(fmt.Errorf("fold appended event %s seq %d: %w", aggregateID, evt.Seq, err))
		}
		state = next
		lastSeq = evt.Seq
	}
	if h.Snapshots != nil {
		if err := h.Snapshots.SaveState(ctx, aggregateID, lastSeq, state); err != nil {
			return Result{}, wrapNonRetryable(fmt.Errorf("save snapshot %s: %w", aggregateID, err))
		}
	}
	if h.Projector != nil {
		for _, evt := range decision.Events {
			if err := h.Projector.Apply(ctx, evt); err != nil {
				return Result{}, wrapNonRetryable(fmt.Errorf("project %s seq %d: %w", aggregateID, evt.Seq, err))
			}
		}
	}
	return Result{Decision: decision, State: state, LastSeq: lastSeq}, nil
}
