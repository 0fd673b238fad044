package view

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/louisbranch/okr/internal/services/objective/domain/event"
	"github.com/louisbranch/okr/internal/services/objective/domain/objective"
)

func intPtr(v int) *int { return &v }

func evt(t *testing.T, seq uint64, eventType event.Type, payload any) event.Event {
	t.Helper()
	e := event.Event{
		AggregateID: "obj-1",
		Seq:         seq,
		Type:        eventType,
		Timestamp:   time.Date(2026, 10, 1, 12, 0, int(seq), 0, time.UTC),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		e.PayloadJSON = data
	}
	return e
}

func mustApply(t *testing.T, v View, e event.Event) View {
	t.Helper()
	next, err := Apply(v, e)
	if err != nil {
		t.Fatalf("apply %s: %v", e.Type, err)
	}
	return next
}

func TestApplyCreated(t *testing.T) {
	v := mustApply(t, View{}, evt(t, 1, objective.EventTypeCreated, objective.CreatePayload{Period: "Q1", UserID: "user-1"}))
	if !v.Exists() || v.ID != "obj-1" {
		t.Fatalf("view not created: %+v", v)
	}
	if v.Title != objective.DefaultTitle {
		t.Fatalf("title = %q, want default", v.Title)
	}
	if v.UserID != "user-1" || v.OrgUnitID != "" {
		t.Fatalf("owner = %q/%q", v.UserID, v.OrgUnitID)
	}
	if v.KeyResults == nil || len(v.KeyResults) != 0 || v.Progress != 0 || v.Deleted {
		t.Fatalf("unexpected initial view: %+v", v)
	}
}

func TestApplyScenario(t *testing.T) {
	events := []event.Event{
		evt(t, 1, objective.EventTypeCreated, objective.CreatePayload{Title: "Grow", Period: "Q1", OrgUnitID: "ou-1"}),
		evt(t, 2, objective.EventTypeKeyResultAdded, objective.KeyResultAddedPayload{KeyResultID: "k1", Title: "Deals"}),
		evt(t, 3, objective.EventTypeKeyResultAdded, objective.KeyResultAddedPayload{KeyResultID: "k2", Title: "Hires"}),
		evt(t, 4, objective.EventTypeKeyResultUpdated, objective.KeyResultUpdatePayload{KeyResultID: "k1", Progress: intPtr(80)}),
		evt(t, 5, objective.EventTypeKeyResultUpdated, objective.KeyResultUpdatePayload{KeyResultID: "k2", Progress: intPtr(20)}),
		evt(t, 6, objective.EventTypeKeyResultDeleted, objective.KeyResultRefPayload{KeyResultID: "k2"}),
	}
	v, err := Build(events)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if v.Progress != 80 {
		t.Fatalf("progress after delete = %d, want 80", v.Progress)
	}

	v = mustApply(t, v, evt(t, 7, objective.EventTypeKeyResultRestored, objective.KeyResultRefPayload{KeyResultID: "k2"}))
	if v.Progress != 50 {
		t.Fatalf("progress after restore = %d, want 50", v.Progress)
	}
	want := []KeyResult{
		{ID: "k1", Title: "Deals", Progress: 80},
		{ID: "k2", Title: "Hires", Progress: 20},
	}
	if !reflect.DeepEqual(v.KeyResults, want) {
		t.Fatalf("key results = %+v, want %+v", v.KeyResults, want)
	}
}

func TestApplyDoesNotMutatePreviousSnapshot(t *testing.T) {
	base, err := Build([]event.Event{
		evt(t, 1, objective.EventTypeCreated, objective.CreatePayload{Title: "Grow", UserID: "user-1"}),
		evt(t, 2, objective.EventTypeKeyResultAdded, objective.KeyResultAddedPayload{KeyResultID: "k1", Title: "Deals"}),
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	snapshot := base
	snapshot.KeyResults = append([]KeyResult(nil), base.KeyResults...)

	steps := []event.Event{
		evt(t, 3, objective.EventTypeKeyResultUpdated, objective.KeyResultUpdatePayload{KeyResultID: "k1", Title: "More deals", Progress: intPtr(70)}),
		evt(t, 3, objective.EventTypeKeyResultDeleted, objective.KeyResultRefPayload{KeyResultID: "k1"}),
		evt(t, 3, objective.EventTypeKeyResultAdded, objective.KeyResultAddedPayload{KeyResultID: "k2"}),
		evt(t, 3, objective.EventTypeTitleChanged, objective.TitlePayload{Title: "Shrink"}),
		evt(t, 3, objective.EventTypeDeleted, nil),
	}
	for _, step := range steps {
		if _, err := Apply(base, step); err != nil {
			t.Fatalf("apply %s: %v", step.Type, err)
		}
		if !reflect.DeepEqual(base, snapshot) {
			t.Fatalf("%s mutated the previous snapshot: %+v", step.Type, base)
		}
	}
}

func TestApplyKeyResultUpdate(t *testing.T) {
	base, err := Build([]event.Event{
		evt(t, 1, objective.EventTypeCreated, objective.CreatePayload{UserID: "user-1"}),
		evt(t, 2, objective.EventTypeKeyResultAdded, objective.KeyResultAddedPayload{KeyResultID: "k1", Title: "Deals", Progress: intPtr(30)}),
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if base.Progress != 30 {
		t.Fatalf("progress after add = %d, want 30", base.Progress)
	}

	titled := mustApply(t, base, evt(t, 3, objective.EventTypeKeyResultUpdated, objective.KeyResultUpdatePayload{KeyResultID: "k1", Title: "Renamed"}))
	if kr, _ := titled.KeyResult("k1"); kr.Title != "Renamed" || kr.Progress != 30 {
		t.Fatalf("title-only update = %+v", kr)
	}

	empty := mustApply(t, base, evt(t, 3, objective.EventTypeKeyResultUpdated, objective.KeyResultUpdatePayload{KeyResultID: "k1"}))
	if !reflect.DeepEqual(empty, base) {
		t.Fatalf("empty update changed view: %+v", empty)
	}

	unknown := mustApply(t, base, evt(t, 3, objective.EventTypeKeyResultUpdated, objective.KeyResultUpdatePayload{KeyResultID: "nope", Progress: intPtr(99)}))
	if !reflect.DeepEqual(unknown, base) {
		t.Fatalf("unknown key result changed view: %+v", unknown)
	}
}

func TestApplyRepeatedKeyResultAddReplacesInPlace(t *testing.T) {
	v, err := Build([]event.Event{
		evt(t, 1, objective.EventTypeCreated, objective.CreatePayload{UserID: "user-1"}),
		evt(t, 2, objective.EventTypeKeyResultAdded, objective.KeyResultAddedPayload{KeyResultID: "k1", Title: "Deals", Progress: intPtr(30)}),
		evt(t, 3, objective.EventTypeKeyResultAdded, objective.KeyResultAddedPayload{KeyResultID: "k2", Title: "Hires", Progress: intPtr(10)}),
		evt(t, 4, objective.EventTypeKeyResultAdded, objective.KeyResultAddedPayload{KeyResultID: "k1", Title: "Deals again"}),
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []KeyResult{
		{ID: "k1", Title: "Deals again"},
		{ID: "k2", Title: "Hires", Progress: 10},
	}
	if !reflect.DeepEqual(v.KeyResults, want) {
		t.Fatalf("key results = %+v, want %+v", v.KeyResults, want)
	}
	if v.Progress != 5 {
		t.Fatalf("progress = %d, want 5", v.Progress)
	}
}

func TestApplyDeleteRestoreObjective(t *testing.T) {
	v := mustApply(t, View{}, evt(t, 1, objective.EventTypeCreated, objective.CreatePayload{UserID: "user-1"}))
	v = mustApply(t, v, evt(t, 2, objective.EventTypeDeleted, nil))
	if !v.Deleted {
		t.Fatal("expected deleted view")
	}
	v = mustApply(t, v, evt(t, 3, objective.EventTypeRestored, nil))
	if v.Deleted {
		t.Fatal("expected restored view")
	}
}

func TestApplyPassThroughIsNoop(t *testing.T) {
	base := mustApply(t, View{}, evt(t, 1, objective.EventTypeCreated, objective.CreatePayload{UserID: "user-1"}))
	for _, eventType := range []event.Type{
		objective.EventTypeOrderChanged,
		objective.EventTypeKeyResultsOrderChanged,
		objective.EventTypeTimePeriodCreated,
		objective.EventTypeTimePeriodUpdated,
		objective.EventTypeTimePeriodDeleted,
	} {
		next := mustApply(t, base, evt(t, 2, eventType, map[string]any{"order": []string{"a"}}))
		if !reflect.DeepEqual(next, base) {
			t.Fatalf("%s changed view", eventType)
		}
	}
}

func TestApplyMalformedPayload(t *testing.T) {
	bad := event.Event{AggregateID: "obj-1", Type: objective.EventTypeTitleChanged, PayloadJSON: []byte(`{"title":7}`)}
	if _, err := Apply(View{ID: "obj-1"}, bad); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestViewMatchesFoldedState(t *testing.T) {
	events := []event.Event{
		evt(t, 1, objective.EventTypeCreated, objective.CreatePayload{Title: "Grow", Period: "Q2", UserID: "user-1"}),
		evt(t, 2, objective.EventTypeKeyResultAdded, objective.KeyResultAddedPayload{KeyResultID: "k1", Title: "Deals"}),
		evt(t, 3, objective.EventTypeKeyResultUpdated, objective.KeyResultUpdatePayload{KeyResultID: "k1", Title: "Big deals", Progress: intPtr(45)}),
		evt(t, 4, objective.EventTypePeriodChanged, objective.PeriodPayload{Period: "Q3"}),
	}
	v, err := Build(events)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	state, err := objective.FoldAll(events)
	if err != nil {
		t.Fatalf("fold: %v", err)
	}
	if v.Title != state.Title || v.Period != state.Period || v.UserID != state.UserID {
		t.Fatalf("view %+v diverges from state %+v", v, state)
	}
	for _, kr := range v.KeyResults {
		s, ok := state.KeyResult(kr.ID)
		if !ok || s.Title != kr.Title || s.Progress != kr.Progress || s.Deleted != kr.Deleted {
			t.Fatalf("key result %s diverges: view %+v state %+v", kr.ID, kr, s)
		}
	}
}

func TestHandledTypesCoverEventVocabulary(t *testing.T) {
	if len(HandledTypes()) != len(objective.EventTypes()) {
		t.Fatalf("handled %d types, vocabulary has %d", len(HandledTypes()), len(objective.EventTypes()))
	}
}
