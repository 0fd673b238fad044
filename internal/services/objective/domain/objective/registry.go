package objective

import (
	"encoding/json"
	"errors"

	"github.com/louisbranch/okr/internal/services/objective/domain/command"
	"github.com/louisbranch/okr/internal/services/objective/domain/event"
)

// RegisterCommands registers objective commands with the shared registry.
func RegisterCommands(registry *command.Registry) error {
	if registry == nil {
		return errors.New("command registry is required")
	}
	validators := map[command.Type]command.PayloadValidator{
		CommandTypeCreate:           decodes[CreatePayload],
		CommandTypeChangeTitle:      decodes[TitlePayload],
		CommandTypeChangeTimePeriod: decodes[PeriodPayload],
		CommandTypeAddKeyResult:     decodes[KeyResultAddPayload],
		CommandTypeUpdateKeyResult:  decodes[KeyResultUpdatePayload],
		CommandTypeDeleteKeyResult:  decodes[KeyResultRefPayload],
		CommandTypeRestoreKeyResult: decodes[KeyResultRefPayload],
	}
	for _, t := range CommandTypes() {
		if err := registry.Register(command.Definition{Type: t, ValidatePayload: validators[t]}); err != nil {
			return err
		}
	}
	return nil
}

// RegisterEvents registers objective events with the shared registry.
func RegisterEvents(registry *event.Registry) error {
	if registry == nil {
		return errors.New("event registry is required")
	}
	validators := map[event.Type]event.PayloadValidator{
		EventTypeCreated:           validateCreatedPayload,
		EventTypeTitleChanged:      decodes[TitlePayload],
		EventTypePeriodChanged:     decodes[PeriodPayload],
		EventTypeKeyResultAdded:    validateKeyResultAddedPayload,
		EventTypeKeyResultUpdated:  validateKeyResultUpdatedPayload,
		EventTypeKeyResultDeleted:  validateKeyResultRefPayload,
		EventTypeKeyResultRestored: validateKeyResultRefPayload,
	}
	for _, t := range EventTypes() {
		if err := registry.Register(event.Definition{Type: t, ValidatePayload: validators[t]}); err != nil {
			return err
		}
	}
	return nil
}

func decodes[P any](raw json.RawMessage) error {
	var payload P
	return json.Unmarshal(raw, &payload)
}

func validateCreatedPayload(raw json.RawMessage) error {
	var payload CreatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	if (payload.UserID == "") == (payload.OrgUnitID == "") {
		return errors.New("exactly one of userId or orgUnitId is required")
	}
	return nil
}

func validateKeyResultAddedPayload(raw json.RawMessage) error {
	var payload KeyResultAddedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return requireKeyResultID(payload.KeyResultID)
}

func validateKeyResultUpdatedPayload(raw json.RawMessage) error {
	var payload KeyResultUpdatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return requireKeyResultID(payload.KeyResultID)
}

func validateKeyResultRefPayload(raw json.RawMessage) error {
	var payload KeyResultRefPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return requireKeyResultID(payload.KeyResultID)
}

func requireKeyResultID(id string) error {
	if id == "" {
		return errors.New("keyResultId is required")
	}
	return nil
}
