package storage

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/okr/internal/platform/errors"
	"github.com/louisbranch/okr/internal/services/objective/domain/event"
	"github.com/louisbranch/okr/internal/services/objective/domain/view"
)

// ErrNotFound indicates a requested persistence record is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrConcurrencyConflict indicates an append lost an optimistic concurrency
// race: the stream advanced past the sequence the command was decided on.
var ErrConcurrencyConflict = apperrors.New(apperrors.CodeConcurrencyConflict, "event stream changed since it was read")

// EventStore owns the event stream boundary that drives replay and command
// rehydration; this is the source of truth for state reconstruction.
type EventStore interface {
	// AppendEvent appends evt as expectedSeq+1 and returns it with sequence
	// and hashes set. It returns ErrConcurrencyConflict when the stream's last
	// sequence is not expectedSeq.
	AppendEvent(ctx context.Context, evt event.Event, expectedSeq uint64) (event.Event, error)
	// ListEvents returns events ordered by sequence ascending.
	ListEvents(ctx context.Context, aggregateID string, afterSeq uint64, limit int) ([]event.Event, error)
	// GetLatestEventSeq returns the latest sequence for an aggregate, or 0.
	GetLatestEventSeq(ctx context.Context, aggregateID string) (uint64, error)
	// ListAggregateIDs returns every aggregate with at least one event.
	ListAggregateIDs(ctx context.Context) ([]string, error)
}

// ViewRecord is a stored objective snapshot and the last event folded into it.
type ViewRecord struct {
	View      view.View
	LastSeq   uint64
	UpdatedAt time.Time
}

// ListViewsRequest describes a page of objective views.
type ListViewsRequest struct {
	// PageSize is the maximum number of views to return.
	PageSize int
	// AfterID continues a listing after this objective id (exclusive).
	AfterID string
	// FilterClause is an optional SQL WHERE clause fragment.
	FilterClause string
	// FilterParams are the positional parameters for the filter clause.
	FilterParams []any
}

// ViewPage is one page of objective views ordered by id.
type ViewPage struct {
	Views  []ViewRecord
	NextID string
}

// ViewStore persists projected objective views.
type ViewStore interface {
	// PutView stores a snapshot. Snapshots older than the stored one are ignored.
	PutView(ctx context.Context, record ViewRecord) error
	// GetView returns ErrNotFound when the objective has no view.
	GetView(ctx context.Context, id string) (ViewRecord, error)
	// ListViews returns views ordered by id.
	ListViews(ctx context.Context, req ListViewsRequest) (ViewPage, error)
}
