package view

import (
	"encoding/json"
	"fmt"

	"github.com/louisbranch/okr/internal/services/objective/domain/event"
	"github.com/louisbranch/okr/internal/services/objective/domain/objective"
)

// HandledTypes returns the event types Apply understands.
func HandledTypes() []event.Type {
	return objective.EventTypes()
}

// Apply folds an event into a view and returns the next snapshot.
//
// Progress is recomputed after every event that can change it: key result
// added, deleted, restored, or updated with a progress value.
func Apply(v View, evt event.Event) (View, error) {
	switch evt.Type {
	case objective.EventTypeCreated:
		var payload objective.CreatePayload
		if err := decode(evt, &payload); err != nil {
			return v, err
		}
		title := payload.Title
		if title == "" {
			title = objective.DefaultTitle
		}
		return View{
			ID:         evt.AggregateID,
			UserID:     payload.UserID,
			OrgUnitID:  payload.OrgUnitID,
			Title:      title,
			Period:     payload.Period,
			KeyResults: []KeyResult{},
		}, nil
	case objective.EventTypeTitleChanged:
		var payload objective.TitlePayload
		if err := decode(evt, &payload); err != nil {
			return v, err
		}
		v.Title = payload.Title
	case objective.EventTypePeriodChanged:
		var payload objective.PeriodPayload
		if err := decode(evt, &payload); err != nil {
			return v, err
		}
		v.Period = payload.Period
	case objective.EventTypeDeleted:
		v.Deleted = true
	case objective.EventTypeRestored:
		v.Deleted = false
	case objective.EventTypeKeyResultAdded:
		var payload objective.KeyResultAddedPayload
		if err := decode(evt, &payload); err != nil {
			return v, err
		}
		added := KeyResult{ID: payload.KeyResultID, Title: payload.Title}
		if added.Title == "" {
			added.Title = objective.DefaultKeyResultTitle
		}
		if payload.Progress != nil {
			added.Progress = *payload.Progress
		}
		keyResults := cloneKeyResults(v.KeyResults)
		if i := indexOf(keyResults, added.ID); i >= 0 {
			keyResults[i] = added
		} else {
			keyResults = append(keyResults, added)
		}
		v.KeyResults = keyResults
		v.Progress = Progress(v.KeyResults)
	case objective.EventTypeKeyResultUpdated:
		var payload objective.KeyResultUpdatePayload
		if err := decode(evt, &payload); err != nil {
			return v, err
		}
		if payload.Title == "" && payload.Progress == nil {
			return v, nil
		}
		i := indexOf(v.KeyResults, payload.KeyResultID)
		if i < 0 {
			return v, nil
		}
		keyResults := cloneKeyResults(v.KeyResults)
		if payload.Title != "" {
			keyResults[i].Title = payload.Title
		}
		v.KeyResults = keyResults
		if payload.Progress != nil {
			keyResults[i].Progress = *payload.Progress
			v.Progress = Progress(v.KeyResults)
		}
	case objective.EventTypeKeyResultDeleted, objective.EventTypeKeyResultRestored:
		var payload objective.KeyResultRefPayload
		if err := decode(evt, &payload); err != nil {
			return v, err
		}
		i := indexOf(v.KeyResults, payload.KeyResultID)
		if i < 0 {
			return v, nil
		}
		keyResults := cloneKeyResults(v.KeyResults)
		keyResults[i].Deleted = evt.Type == objective.EventTypeKeyResultDeleted
		v.KeyResults = keyResults
		v.Progress = Progress(v.KeyResults)
	case objective.EventTypeOrderChanged,
		objective.EventTypeKeyResultsOrderChanged,
		objective.EventTypeTimePeriodCreated,
		objective.EventTypeTimePeriodUpdated,
		objective.EventTypeTimePeriodDeleted:
		// Not part of the objective view.
	}
	return v, nil
}

// Build replays a full event history from the zero view.
func Build(events []event.Event) (View, error) {
	var v View
	for _, evt := range events {
		next, err := Apply(v, evt)
		if err != nil {
			return v, err
		}
		v = next
	}
	return v, nil
}

func cloneKeyResults(keyResults []KeyResult) []KeyResult {
	cloned := make([]KeyResult, len(keyResults), len(keyResults)+1)
	copy(cloned, keyResults)
	return cloned
}

func indexOf(keyResults []KeyResult, id string) int {
	for i, kr := range keyResults {
		if kr.ID == id {
			return i
		}
	}
	return -1
}

func decode(evt event.Event, target any) error {
	if len(evt.PayloadJSON) == 0 {
		return nil
	}
	if err := json.Unmarshal(evt.PayloadJSON, target); err != nil {
		return fmt.Errorf("view apply %s: %w", evt.Type, err)
	}
	return nil
}
