package objective

import (
	"github.com/louisbranch/okr/internal/services/objective/domain/command"
	"github.com/louisbranch/okr/internal/services/objective/domain/event"
)

const (
	CommandTypeCreate                command.Type = "createObjective"
	CommandTypeChangeTitle           command.Type = "changeTitle"
	CommandTypeChangeTimePeriod      command.Type = "changeTimePeriod"
	CommandTypeDelete                command.Type = "deleteObjective"
	CommandTypeRestore               command.Type = "restoreObjective"
	CommandTypeAddKeyResult          command.Type = "addKeyResult"
	CommandTypeUpdateKeyResult       command.Type = "updateKeyResult"
	CommandTypeDeleteKeyResult       command.Type = "deleteKeyResult"
	CommandTypeRestoreKeyResult      command.Type = "restoreKeyResult"
	CommandTypeChangeOrder           command.Type = "changeOrder"
	CommandTypeChangeKeyResultsOrder command.Type = "changeKeyResultsOrder"
	CommandTypeCreateTimePeriod      command.Type = "createTimePeriod"
	CommandTypeUpdateTimePeriod      command.Type = "updateTimePeriod"
	CommandTypeDeleteTimePeriod      command.Type = "deleteTimePeriod"
)

const (
	EventTypeCreated                event.Type = "ObjectiveCreated"
	EventTypeTitleChanged           event.Type = "ObjectiveTitleChanged"
	EventTypePeriodChanged          event.Type = "ObjectivePeriodChanged"
	EventTypeDeleted                event.Type = "ObjectiveDeleted"
	EventTypeRestored               event.Type = "ObjectiveRestored"
	EventTypeKeyResultAdded         event.Type = "KeyResultAdded"
	EventTypeKeyResultUpdated       event.Type = "KeyResultUpdated"
	EventTypeKeyResultDeleted       event.Type = "KeyResultDeleted"
	EventTypeKeyResultRestored      event.Type = "KeyResultRestored"
	EventTypeOrderChanged           event.Type = "ObjectiveOrderChanged"
	EventTypeKeyResultsOrderChanged event.Type = "KeyResultsOrderChanged"
	EventTypeTimePeriodCreated      event.Type = "TimePeriodCreated"
	EventTypeTimePeriodUpdated      event.Type = "TimePeriodUpdated"
	EventTypeTimePeriodDeleted      event.Type = "TimePeriodDeleted"
)

// passThrough maps commands that carry no aggregate validation to the event
// they always produce. Ordering and the period catalog live outside State.
var passThrough = map[command.Type]event.Type{
	CommandTypeChangeOrder:           EventTypeOrderChanged,
	CommandTypeChangeKeyResultsOrder: EventTypeKeyResultsOrderChanged,
	CommandTypeCreateTimePeriod:      EventTypeTimePeriodCreated,
	CommandTypeUpdateTimePeriod:      EventTypeTimePeriodUpdated,
	CommandTypeDeleteTimePeriod:      EventTypeTimePeriodDeleted,
}

// CommandTypes returns the closed command vocabulary.
func CommandTypes() []command.Type {
	return []command.Type{
		CommandTypeCreate,
		CommandTypeChangeTitle,
		CommandTypeChangeTimePeriod,
		CommandTypeDelete,
		CommandTypeRestore,
		CommandTypeAddKeyResult,
		CommandTypeUpdateKeyResult,
		CommandTypeDeleteKeyResult,
		CommandTypeRestoreKeyResult,
		CommandTypeChangeOrder,
		CommandTypeChangeKeyResultsOrder,
		CommandTypeCreateTimePeriod,
		CommandTypeUpdateTimePeriod,
		CommandTypeDeleteTimePeriod,
	}
}

// EventTypes returns the closed event vocabulary.
func EventTypes() []event.Type {
	return []event.Type{
		EventTypeCreated,
		EventTypeTitleChanged,
		EventTypePeriodChanged,
		EventTypeDeleted,
		EventTypeRestored,
		EventTypeKeyResultAdded,
		EventTypeKeyResultUpdated,
		EventTypeKeyResultDeleted,
		EventTypeKeyResultRestored,
		EventTypeOrderChanged,
		EventTypeKeyResultsOrderChanged,
		EventTypeTimePeriodCreated,
		EventTypeTimePeriodUpdated,
		EventTypeTimePeriodDeleted,
	}
}

// PassThroughEvent returns the event type produced by a pass-through command.
func PassThroughEvent(t command.Type) (event.Type, bool) {
	evtType, ok := passThrough[t]
	return evtType, ok
}
