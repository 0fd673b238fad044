package command

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/okr/internal/services/objective/domain/event"
)

func TestRegistryValidateForDecision_RequiresAggregateID(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(Definition{Type: Type("deleteObjective")}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := registry.ValidateForDecision(Command{AggregateID: "  ", Type: Type("deleteObjective")})
	if !errors.Is(err, ErrAggregateIDRequired) {
		t.Fatalf("expected ErrAggregateIDRequired, got %v", err)
	}
}

func TestRegistryValidateForDecision_UnknownType(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.ValidateForDecision(Command{AggregateID: "obj-1", Type: Type("launchRocket")})
	if !errors.Is(err, ErrTypeUnknown) {
		t.Fatalf("expected ErrTypeUnknown, got %v", err)
	}
}

func TestRegistryValidateForDecision_RequiresType(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.ValidateForDecision(Command{AggregateID: "obj-1"})
	if !errors.Is(err, ErrTypeRequired) {
		t.Fatalf("expected ErrTypeRequired, got %v", err)
	}
}

func TestRegistryValidateForDecision_NormalizesPayload(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(Definition{Type: Type("changeTitle")}); err != nil {
		t.Fatalf("register: %v", err)
	}
	cmd, err := registry.ValidateForDecision(Command{
		AggregateID: " obj-1 ",
		Type:        Type(" changeTitle "),
		PayloadJSON: []byte(`{ "title": "Grow" }`),
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cmd.AggregateID != "obj-1" {
		t.Fatalf("aggregate id = %q, want obj-1", cmd.AggregateID)
	}
	if cmd.Type != Type("changeTitle") {
		t.Fatalf("type = %q, want changeTitle", cmd.Type)
	}
	if string(cmd.PayloadJSON) != `{"title":"Grow"}` {
		t.Fatalf("payload = %s", cmd.PayloadJSON)
	}
}

func TestRegistryValidateForDecision_DefaultsAndValidatesPayload(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(Definition{
		Type: Type("addKeyResult"),
		ValidatePayload: func(raw json.RawMessage) error {
			var payload struct {
				Title string `json:"title"`
			}
			return json.Unmarshal(raw, &payload)
		},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	cmd, err := registry.ValidateForDecision(Command{AggregateID: "obj-1", Type: Type("addKeyResult")})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if string(cmd.PayloadJSON) != "{}" {
		t.Fatalf("payload = %s, want {}", cmd.PayloadJSON)
	}

	_, err = registry.ValidateForDecision(Command{
		AggregateID: "obj-1",
		Type:        Type("addKeyResult"),
		PayloadJSON: []byte(`{"title":42}`),
	})
	if err == nil {
		t.Fatal("expected payload validation error")
	}

	_, err = registry.ValidateForDecision(Command{
		AggregateID: "obj-1",
		Type:        Type("addKeyResult"),
		PayloadJSON: []byte(`{"title":`),
	})
	if !errors.Is(err, ErrPayloadInvalid) {
		t.Fatalf("expected ErrPayloadInvalid, got %v", err)
	}
}

func TestNewEventCopiesEnvelope(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	cmd := Command{
		AggregateID:   "obj-1",
		Type:          Type("deleteObjective"),
		ActorID:       "user-7",
		RequestID:     "req-1",
		CorrelationID: "corr-1",
		CausationID:   "cause-1",
		PayloadJSON:   []byte(`{"reason":"dup"}`),
	}
	evt := NewEvent(cmd, event.Type("ObjectiveDeleted"), cmd.PayloadJSON, now)
	if evt.AggregateID != cmd.AggregateID || evt.ActorID != cmd.ActorID || evt.RequestID != cmd.RequestID {
		t.Fatalf("envelope not copied: %+v", evt)
	}
	if evt.CorrelationID != cmd.CorrelationID || evt.CausationID != cmd.CausationID {
		t.Fatalf("correlation not copied: %+v", evt)
	}
	if evt.Type != event.Type("ObjectiveDeleted") {
		t.Fatalf("type = %s", evt.Type)
	}
	if !evt.Timestamp.Equal(now) {
		t.Fatalf("timestamp = %v, want %v", evt.Timestamp, now)
	}
	if string(evt.PayloadJSON) != `{"reason":"dup"}` {
		t.Fatalf("payload = %s", evt.PayloadJSON)
	}
}

func TestDecisionHelpers(t *testing.T) {
	accepted := Accept(event.Event{Type: event.Type("ObjectiveDeleted")})
	if accepted.Rejected() || len(accepted.Events) != 1 {
		t.Fatalf("unexpected accept decision: %+v", accepted)
	}
	rejected := Reject(Rejection{Code: "X", Message: "nope"})
	if !rejected.Rejected() || len(rejected.Events) != 0 {
		t.Fatalf("unexpected reject decision: %+v", rejected)
	}
}
