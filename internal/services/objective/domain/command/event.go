package command

import (
	"time"

	"github.com/louisbranch/okr/internal/services/objective/domain/event"
)

// NewEvent builds an event by copying every envelope field from the command and
// overriding the type and payload.
func NewEvent(cmd Command, eventType event.Type, payloadJSON []byte, now time.Time) event.Event {
	return event.Event{
		AggregateID:   cmd.AggregateID,
		Type:          eventType,
		Timestamp:     now,
		ActorID:       cmd.ActorID,
		RequestID:     cmd.RequestID,
		CorrelationID: cmd.CorrelationID,
		CausationID:   cmd.CausationID,
		PayloadJSON:   payloadJSON,
	}
}
