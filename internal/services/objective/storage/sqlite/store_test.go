package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/okr/internal/services/objective/core/filter"
	"github.com/louisbranch/okr/internal/services/objective/domain/event"
	"github.com/louisbranch/okr/internal/services/objective/domain/objective"
	"github.com/louisbranch/okr/internal/services/objective/domain/view"
	"github.com/louisbranch/okr/internal/services/objective/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	registry := event.NewRegistry()
	if err := objective.RegisterEvents(registry); err != nil {
		t.Fatalf("register events: %v", err)
	}
	store, err := Open(filepath.Join(t.TempDir(), "objectives.db"), registry)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func titleChanged(aggregateID, title string) event.Event {
	return event.Event{
		AggregateID: aggregateID,
		Type:        objective.EventTypeTitleChanged,
		Timestamp:   time.Date(2026, 3, 1, 9, 0, 0, 123456789, time.UTC),
		ActorID:     "user-1",
		RequestID:   "req-1",
		PayloadJSON: []byte(`{"title":"` + title + `"}`),
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  ", nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "objectives.db")
	for i := 0; i < 2; i++ {
		store, err := Open(path, nil)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("close #%d: %v", i+1, err)
		}
	}
}

func TestAppendAndListEvents(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	first, err := store.AppendEvent(ctx, titleChanged("obj-1", "one"), 0)
	if err != nil {
		t.Fatalf("append first: %v", err)
	}
	second, err := store.AppendEvent(ctx, titleChanged("obj-1", "two"), 1)
	if err != nil {
		t.Fatalf("append second: %v", err)
	}
	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("seqs = %d, %d, want 1, 2", first.Seq, second.Seq)
	}
	if second.PrevHash != first.ChainHash {
		t.Fatal("second event is not chained to the first")
	}

	events, err := store.ListEvents(ctx, "obj-1", 0, 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	got := events[0]
	if got.Hash != first.Hash || got.ChainHash != first.ChainHash {
		t.Fatal("stored hashes differ from returned event")
	}
	if !got.Timestamp.Equal(first.Timestamp) {
		t.Fatalf("timestamp = %v, want %v", got.Timestamp, first.Timestamp)
	}
	if got.ActorID != "user-1" || got.RequestID != "req-1" {
		t.Fatalf("envelope = %+v", got)
	}
	if string(got.PayloadJSON) != `{"title":"one"}` {
		t.Fatalf("payload = %s", got.PayloadJSON)
	}

	tail, err := store.ListEvents(ctx, "obj-1", 1, 10)
	if err != nil {
		t.Fatalf("list tail: %v", err)
	}
	if len(tail) != 1 || tail[0].Seq != 2 {
		t.Fatalf("tail = %+v", tail)
	}

	seq, err := store.GetLatestEventSeq(ctx, "obj-1")
	if err != nil {
		t.Fatalf("latest seq: %v", err)
	}
	if seq != 2 {
		t.Fatalf("latest seq = %d, want 2", seq)
	}
	empty, err := store.GetLatestEventSeq(ctx, "missing")
	if err != nil {
		t.Fatalf("latest seq missing: %v", err)
	}
	if empty != 0 {
		t.Fatalf("latest seq missing = %d, want 0", empty)
	}
}

func TestAppendRejectsStaleExpectedSeq(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	if _, err := store.AppendEvent(ctx, titleChanged("obj-1", "one"), 0); err != nil {
		t.Fatalf("append: %v", err)
	}
	_, err := store.AppendEvent(ctx, titleChanged("obj-1", "two"), 0)
	if !errors.Is(err, storage.ErrConcurrencyConflict) {
		t.Fatalf("err = %v, want concurrency conflict", err)
	}
	events, err := store.ListEvents(ctx, "obj-1", 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
}

func TestAppendValidatesEvents(t *testing.T) {
	store := openTestStore(t)
	evt := titleChanged("obj-1", "x")
	evt.Type = "SomethingElse"
	if _, err := store.AppendEvent(context.Background(), evt, 0); !errors.Is(err, event.ErrTypeUnknown) {
		t.Fatalf("err = %v, want unknown type", err)
	}
}

func TestListAggregateIDs(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	for _, id := range []string{"obj-b", "obj-a"} {
		if _, err := store.AppendEvent(ctx, titleChanged(id, "x"), 0); err != nil {
			t.Fatalf("append %s: %v", id, err)
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

func TestVerifyEventIntegrityDetectsTampering(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	for seq := uint64(0); seq < 3; seq++ {
		if _, err := store.AppendEvent(ctx, titleChanged("obj-1", "t"), seq); err != nil {
			t.Fatalf("append %d: %v", seq, err)
		}
	}
	checked, err := store.VerifyEventIntegrity(ctx)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if checked != 3 {
		t.Fatalf("checked = %d, want 3", checked)
	}

	if _, err := store.sqlDB.ExecContext(ctx,
		`UPDATE events SET payload_json = ? WHERE aggregate_id = ? AND seq = 2`,
		[]byte(`{"title":"forged"}`), "obj-1",
	); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	if _, err := store.VerifyEventIntegrity(ctx); !errors.Is(err, event.ErrChainBroken) {
		t.Fatalf("err = %v, want chain broken", err)
	}
}

func putView(t *testing.T, store *Store, v view.View, seq uint64) {
	t.Helper()
	if err := store.PutView(context.Background(), storage.ViewRecord{View: v, LastSeq: seq}); err != nil {
		t.Fatalf("put view %s: %v", v.ID, err)
	}
}

func TestPutAndGetView(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	v := view.View{
		ID:     "obj-1",
		UserID: "u-1",
		Title:  "Grow revenue",
		KeyResults: []view.KeyResult{
			{ID: "kr-1", Title: "Close deals", Progress: 80},
			{ID: "kr-2", Title: "Hire", Progress: 40},
		},
		Progress: 60,
	}
	putView(t, store, v, 3)

	got, err := store.GetView(ctx, "obj-1")
	if err != nil {
		t.Fatalf("get view: %v", err)
	}
	if got.LastSeq != 3 {
		t.Fatalf("last seq = %d, want 3", got.LastSeq)
	}
	if got.View.Progress != 60 || len(got.View.KeyResults) != 2 || got.View.KeyResults[1].ID != "kr-2" {
		t.Fatalf("view = %+v", got.View)
	}

	stale := v
	stale.Title = "stale"
	putView(t, store, stale, 2)
	got, err = store.GetView(ctx, "obj-1")
	if err != nil {
		t.Fatalf("get view: %v", err)
	}
	if got.View.Title != "Grow revenue" {
		t.Fatalf("title = %q, want stale write ignored", got.View.Title)
	}

	if _, err := store.GetView(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestListViewsPagesAndFilters(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	putView(t, store, view.View{ID: "obj-1", UserID: "u-1", Title: "A", Period: "2024-Q1", Progress: 10}, 1)
	putView(t, store, view.View{ID: "obj-2", UserID: "u-1", Title: "B", Period: "2024-Q2", Progress: 70}, 1)
	putView(t, store, view.View{ID: "obj-3", OrgUnitID: "ou-1", Title: "C", Period: "2024-Q1", Progress: 90, Deleted: true}, 1)

	page, err := store.ListViews(ctx, storage.ListViewsRequest{PageSize: 2})
	if err != nil {
		t.Fatalf("list views: %v", err)
	}
	if len(page.Views) != 2 || page.NextID != "obj-2" {
		t.Fatalf("page = %d views, next %q", len(page.Views), page.NextID)
	}
	page, err = store.ListViews(ctx, storage.ListViewsRequest{PageSize: 2, AfterID: page.NextID})
	if err != nil {
		t.Fatalf("list views: %v", err)
	}
	if len(page.Views) != 1 || page.Views[0].View.ID != "obj-3" || page.NextID != "" {
		t.Fatalf("second page = %+v", page)
	}

	cond, err := filter.ParseObjectiveFilter(`period = "2024-Q1" AND progress >= 50`)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	page, err = store.ListViews(ctx, storage.ListViewsRequest{
		PageSize:     10,
		FilterClause: cond.Clause,
		FilterParams: cond.Params,
	})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(page.Views) != 1 || page.Views[0].View.ID != "obj-3" {
		t.Fatalf("filtered = %+v", page.Views)
	}

	cond, err = filter.ParseObjectiveFilter(`NOT deleted`)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	page, err = store.ListViews(ctx, storage.ListViewsRequest{
		PageSize:     10,
		FilterClause: cond.Clause,
		FilterParams: cond.Params,
	})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(page.Views) != 2 {
		t.Fatalf("live views = %d, want 2", len(page.Views))
	}
}

func TestListViewsRequiresPageSize(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.ListViews(context.Background(), storage.ListViewsRequest{}); err == nil {
		t.Fatal("expected page size error")
	}
}
