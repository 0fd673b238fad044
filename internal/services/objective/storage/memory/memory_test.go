package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/okr/internal/services/objective/domain/event"
	"github.com/louisbranch/okr/internal/services/objective/domain/view"
	"github.com/louisbranch/okr/internal/services/objective/storage"
)

func newEvent(aggregateID string) event.Event {
	return event.Event{
		AggregateID: aggregateID,
		Type:        "ObjectiveTitleChanged",
		Timestamp:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		PayloadJSON: []byte(`{"title":"x"}`),
	}
}

func TestAppendAssignsSequenceAndChain(t *testing.T) {
	ctx := context.Background()
	store := New(nil)
	first, err := store.AppendEvent(ctx, newEvent("obj-1"), 0)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	second, err := store.AppendEvent(ctx, newEvent("obj-1"), 1)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("seqs = %d, %d", first.Seq, second.Seq)
	}
	if second.PrevHash != first.ChainHash {
		t.Fatal("second event not chained to first")
	}

	var verifier event.ChainVerifier
	events, err := store.ListEvents(ctx, "obj-1", 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, evt := range events {
		if err := verifier.Check(evt); err != nil {
			t.Fatalf("verify: %v", err)
		}
	}
}

func TestAppendRejectsStaleExpectedSeq(t *testing.T) {
	ctx := context.Background()
	store := New(nil)
	if _, err := store.AppendEvent(ctx, newEvent("obj-1"), 0); err != nil {
		t.Fatalf("append: %v", err)
	}
	_, err := store.AppendEvent(ctx, newEvent("obj-1"), 0)
	if !errors.Is(err, storage.ErrConcurrencyConflict) {
		t.Fatalf("err = %v, want concurrency conflict", err)
	}
	seq, err := store.GetLatestEventSeq(ctx, "obj-1")
	if err != nil {
		t.Fatalf("latest seq: %v", err)
	}
	if seq != 1 {
		t.Fatalf("latest seq = %d, want 1", seq)
	}
}

func TestAppendValidatesWithRegistry(t *testing.T) {
	registry := event.NewRegistry()
	store := New(registry)
	_, err := store.AppendEvent(context.Background(), newEvent("obj-1"), 0)
	if !errors.Is(err, event.ErrTypeUnknown) {
		t.Fatalf("err = %v, want unknown type", err)
	}
}

func TestListEventsPaging(t *testing.T) {
	ctx := context.Background()
	store := New(nil)
	for i := uint64(0); i < 5; i++ {
		if _, err := store.AppendEvent(ctx, newEvent("obj-1"), i); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	page, err := store.ListEvents(ctx, "obj-1", 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].Seq != 3 || page[1].Seq != 4 {
		t.Fatalf("page = %+v", page)
	}
	page[0].PayloadJSON[0] = 'X'
	again, _ := store.ListEvents(ctx, "obj-1", 2, 1)
	if again[0].PayloadJSON[0] != '{' {
		t.Fatal("listed payload aliases stored payload")
	}
	empty, err := store.ListEvents(ctx, "obj-1", 5, 10)
	if err != nil || len(empty) != 0 {
		t.Fatalf("list past end = %v, %v", empty, err)
	}
}

func TestListAggregateIDs(t *testing.T) {
	ctx := context.Background()
	store := New(nil)
	for _, id := range []string{"obj-b", "obj-a"} {
		if _, err := store.AppendEvent(ctx, newEvent(id), 0); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	ids, err := store.ListAggregateIDs(ctx)
	if err != nil {
		t.Fatalf("list ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != "obj-a" || ids[1] != "obj-b" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestViewsPutGetList(t *testing.T) {
	ctx := context.Background()
	store := New(nil)
	if _, err := store.GetView(ctx, "obj-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	for _, id := range []string{"obj-3", "obj-1", "obj-2"} {
		if err := store.PutView(ctx, storage.ViewRecord{View: view.View{ID: id, Title: id}, LastSeq: 2}); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	if err := store.PutView(ctx, storage.ViewRecord{View: view.View{ID: "obj-1", Title: "stale"}, LastSeq: 1}); err != nil {
		t.Fatalf("put stale: %v", err)
	}
	got, err := store.GetView(ctx, "obj-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.View.Title != "obj-1" {
		t.Fatalf("stale snapshot replaced newer one: %+v", got)
	}

	page, err := store.ListViews(ctx, storage.ListViewsRequest{PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Views) != 2 || page.NextID != "obj-2" {
		t.Fatalf("page = %+v", page)
	}
	rest, err := store.ListViews(ctx, storage.ListViewsRequest{PageSize: 2, AfterID: page.NextID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rest.Views) != 1 || rest.Views[0].View.ID != "obj-3" || rest.NextID != "" {
		t.Fatalf("rest = %+v", rest)
	}
	if _, err := store.ListViews(ctx, storage.ListViewsRequest{FilterClause: "progress > ?"}); !errors.Is(err, ErrFilterUnsupported) {
		t.Fatalf("err = %v, want filter unsupported", err)
	}
}
