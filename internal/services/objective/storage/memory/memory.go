// Package memory provides an in-process journal and view store for tests and
// ephemeral runs. It enforces the same sequencing and hashing rules as the
// SQLite store.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/okr/internal/services/objective/domain/event"
	"github.com/louisbranch/okr/internal/services/objective/storage"
)

// ErrFilterUnsupported is returned when a listing carries a SQL filter.
var ErrFilterUnsupported = errors.New("memory store does not support filter clauses")

// Store keeps events and views in maps guarded by one mutex.
type Store struct {
	mu       sync.RWMutex
	registry *event.Registry
	streams  map[string][]event.Event
	views    map[string]storage.ViewRecord
}

// New creates an empty store. A non-nil registry validates appended events.
func New(registry *event.Registry) *Store {
	return &Store{
		registry: registry,
		streams:  make(map[string][]event.Event),
		views:    make(map[string]storage.ViewRecord),
	}
}

// AppendEvent appends evt after expectedSeq.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event, expectedSeq uint64) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s.registry != nil {
		validated, err := s.registry.ValidateForAppend(evt)
		if err != nil {
			return event.Event{}, err
		}
		evt = validated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[evt.AggregateID]
	lastSeq := uint64(len(stream))
	if lastSeq != expectedSeq {
		return event.Event{}, fmt.Errorf("%w: aggregate %s at seq %d, expected %d", storage.ErrConcurrencyConflict, evt.AggregateID, lastSeq, expectedSeq)
	}
	prevChainHash := ""
	if lastSeq > 0 {
		prevChainHash = stream[lastSeq-1].ChainHash
	}
	evt.Seq = lastSeq + 1
	sealed, err := event.Seal(evt, prevChainHash)
	if err != nil {
		return event.Event{}, err
	}
	sealed.PayloadJSON = slices.Clone(sealed.PayloadJSON)
	s.streams[evt.AggregateID] = append(stream, sealed)
	return sealed, nil
}

// ListEvents returns up to limit events after afterSeq.
func (s *Store) ListEvents(ctx context.Context, aggregateID string, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[strings.TrimSpace(aggregateID)]
	if afterSeq >= uint64(len(stream)) {
		return nil, nil
	}
	page := stream[afterSeq:]
	if limit > 0 && len(page) > limit {
		page = page[:limit]
	}
	out := make([]event.Event, len(page))
	for i, evt := range page {
		evt.PayloadJSON = slices.Clone(evt.PayloadJSON)
		out[i] = evt
	}
	return out, nil
}

// GetLatestEventSeq returns the stream length.
func (s *Store) GetLatestEventSeq(ctx context.Context, aggregateID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.streams[strings.TrimSpace(aggregateID)])), nil
}

// ListAggregateIDs returns aggregate ids in ascending order.
func (s *Store) ListAggregateIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.streams))
	for id := range s.streams {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// PutView stores record unless a newer snapshot is already present.
func (s *Store) PutView(ctx context.Context, record storage.ViewRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := strings.TrimSpace(record.View.ID)
	if id == "" {
		return fmt.Errorf("view id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.views[id]; ok && existing.LastSeq > record.LastSeq {
		return nil
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}
	record.View.KeyResults = slices.Clone(record.View.KeyResults)
	s.views[id] = record
	return nil
}

// GetView returns a stored view.
func (s *Store) GetView(ctx context.Context, id string) (storage.ViewRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ViewRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.views[strings.TrimSpace(id)]
	if !ok {
		return storage.ViewRecord{}, storage.ErrNotFound
	}
	record.View.KeyResults = slices.Clone(record.View.KeyResults)
	return record, nil
}

// ListViews pages views by id. Filter clauses are not supported.
func (s *Store) ListViews(ctx context.Context, req storage.ListViewsRequest) (storage.ViewPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.ViewPage{}, err
	}
	if strings.TrimSpace(req.FilterClause) != "" {
		return storage.ViewPage{}, ErrFilterUnsupported
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.views))
	for id := range s.views {
		if id > req.AfterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	page := storage.ViewPage{}
	for _, id := range ids {
		if req.PageSize > 0 && len(page.Views) == req.PageSize {
			page.NextID = page.Views[len(page.Views)-1].View.ID
			break
		}
		record := s.views[id]
		record.View.KeyResults = slices.Clone(record.View.KeyResults)
		page.Views = append(page.Views, record)
	}
	return page, nil
}

var (
	_ storage.EventStore = (*Store)(nil)
	_ storage.ViewStore  = (*Store)(nil)
)
