package objective

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/louisbranch/okr/internal/services/objective/domain/event"
)

// FoldHandledTypes returns the event types Fold understands. Pass-through types
// are listed even though they leave State untouched.
func FoldHandledTypes() []event.Type {
	return EventTypes()
}

// Fold applies an event to objective state and returns the new state.
//
// The input state is never modified: the key result map is copied before any
// change, so callers can keep earlier states. Fold returns an error only when a
// recognized event carries a payload that cannot be decoded.
func Fold(state State, evt event.Event) (State, error) {
	switch evt.Type {
	case EventTypeCreated:
		var payload CreatePayload
		if err := decode(evt, &payload); err != nil {
			return state, err
		}
		title := payload.Title
		if title == "" {
			title = DefaultTitle
		}
		return State{
			Created:     true,
			AggregateID: evt.AggregateID,
			Title:       title,
			Period:      payload.Period,
			UserID:      payload.UserID,
			OrgUnitID:   payload.OrgUnitID,
			KeyResults:  map[string]KeyResultState{},
		}, nil
	case EventTypeTitleChanged:
		var payload TitlePayload
		if err := decode(evt, &payload); err != nil {
			return state, err
		}
		state.Title = payload.Title
	case EventTypePeriodChanged:
		var payload PeriodPayload
		if err := decode(evt, &payload); err != nil {
			return state, err
		}
		state.Period = payload.Period
	case EventTypeDeleted:
		state.Deleted = true
	case EventTypeRestored:
		state.Deleted = false
	case EventTypeKeyResultAdded:
		var payload KeyResultAddedPayload
		if err := decode(evt, &payload); err != nil {
			return state, err
		}
		kr := KeyResultState{Title: payload.Title}
		if kr.Title == "" {
			kr.Title = DefaultKeyResultTitle
		}
		if payload.Progress != nil {
			kr.Progress = *payload.Progress
		}
		state.KeyResults = cloneKeyResults(state.KeyResults)
		state.KeyResults[payload.KeyResultID] = kr
	case EventTypeKeyResultUpdated:
		var payload KeyResultUpdatePayload
		if err := decode(evt, &payload); err != nil {
			return state, err
		}
		kr, ok := state.KeyResults[payload.KeyResultID]
		if !ok {
			return state, nil
		}
		if payload.Title != "" {
			kr.Title = payload.Title
		}
		if payload.Progress != nil {
			kr.Progress = *payload.Progress
		}
		state.KeyResults = cloneKeyResults(state.KeyResults)
		state.KeyResults[payload.KeyResultID] = kr
	case EventTypeKeyResultDeleted, EventTypeKeyResultRestored:
		var payload KeyResultRefPayload
		if err := decode(evt, &payload); err != nil {
			return state, err
		}
		kr, ok := state.KeyResults[payload.KeyResultID]
		if !ok {
			return state, nil
		}
		kr.Deleted = evt.Type == EventTypeKeyResultDeleted
		state.KeyResults = cloneKeyResults(state.KeyResults)
		state.KeyResults[payload.KeyResultID] = kr
	case EventTypeOrderChanged,
		EventTypeKeyResultsOrderChanged,
		EventTypeTimePeriodCreated,
		EventTypeTimePeriodUpdated,
		EventTypeTimePeriodDeleted:
		// Ordering and the period catalog are owned by other read models.
	}
	return state, nil
}

// FoldAll replays events from the zero state.
func FoldAll(events []event.Event) (State, error) {
	var state State
	for _, evt := range events {
		next, err := Fold(state, evt)
		if err != nil {
			return state, err
		}
		state = next
	}
	return state, nil
}

func cloneKeyResults(keyResults map[string]KeyResultState) map[string]KeyResultState {
	if keyResults == nil {
		return map[string]KeyResultState{}
	}
	return maps.Clone(keyResults)
}

func decode(evt event.Event, target any) error {
	if len(evt.PayloadJSON) == 0 {
		return nil
	}
	if err := json.Unmarshal(evt.PayloadJSON, target); err != nil {
		return fmt.Errorf("objective fold %s: %w", evt.Type, err)
	}
	return nil
}
