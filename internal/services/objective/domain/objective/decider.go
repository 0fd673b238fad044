package objective

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/louisbranch/okr/internal/services/objective/domain/command"
	"github.com/louisbranch/okr/internal/services/objective/domain/event"
)

// Rejection codes returned by Decide.
const (
	RejectionCodeAlreadyExists          = "OBJECTIVE_ALREADY_EXISTS"
	RejectionCodeNotCreated             = "OBJECTIVE_NOT_CREATED"
	RejectionCodeTitleRequired          = "TITLE_REQUIRED"
	RejectionCodeOwnerLinkRequired      = "OWNER_LINK_REQUIRED"
	RejectionCodeOwnerLinkAmbiguous     = "OWNER_LINK_AMBIGUOUS"
	RejectionCodeTitleUnchanged         = "TITLE_UNCHANGED"
	RejectionCodePeriodUnchanged        = "PERIOD_UNCHANGED"
	RejectionCodeAlreadyDeleted         = "OBJECTIVE_ALREADY_DELETED"
	RejectionCodeNotDeleted             = "OBJECTIVE_NOT_DELETED"
	RejectionCodeKeyResultIDRequired    = "KEY_RESULT_ID_REQUIRED"
	RejectionCodeKeyResultAlreadyAdded  = "KEY_RESULT_ALREADY_ADDED"
	RejectionCodeKeyResultNotFound      = "KEY_RESULT_NOT_FOUND"
	RejectionCodeKeyResultUnchanged     = "KEY_RESULT_UNCHANGED"
	RejectionCodeProgressOutOfRange     = "PROGRESS_OUT_OF_RANGE"
	RejectionCodeKeyResultDeleted       = "KEY_RESULT_ALREADY_DELETED"
	RejectionCodeKeyResultNotDeleted    = "KEY_RESULT_NOT_DELETED"
	RejectionCodeCommandTypeUnsupported = "COMMAND_TYPE_UNSUPPORTED"
	RejectionCodePayloadInvalid         = "PAYLOAD_INVALID"
)

// Progress bounds for a key result, in percent.
const (
	MinProgress = 0
	MaxProgress = 100
)

var (
	rejectAlreadyExists     = command.Rejection{Code: RejectionCodeAlreadyExists, Message: "AggregateId is already used"}
	rejectNotCreated        = command.Rejection{Code: RejectionCodeNotCreated, Message: "Objective does not exist"}
	rejectTitleRequired     = command.Rejection{Code: RejectionCodeTitleRequired, Message: "Title is required"}
	rejectOwnerRequired     = command.Rejection{Code: RejectionCodeOwnerLinkRequired, Message: "UserId or OrgUnitId is required"}
	rejectOwnerAmbiguous    = command.Rejection{Code: RejectionCodeOwnerLinkAmbiguous, Message: "Only one of UserId or OrgUnitId may be set"}
	rejectTitleUnchanged    = command.Rejection{Code: RejectionCodeTitleUnchanged, Message: "Title should be changed"}
	rejectPeriodUnchanged   = command.Rejection{Code: RejectionCodePeriodUnchanged, Message: "TimePeriod should be changed"}
	rejectAlreadyDeleted    = command.Rejection{Code: RejectionCodeAlreadyDeleted, Message: "Objective should not be deleted"}
	rejectNotDeleted        = command.Rejection{Code: RejectionCodeNotDeleted, Message: "Objective should be deleted"}
	rejectKeyResultID       = command.Rejection{Code: RejectionCodeKeyResultIDRequired, Message: "KeyResultId is required"}
	rejectKeyResultAdded    = command.Rejection{Code: RejectionCodeKeyResultAlreadyAdded, Message: "KeyResult was already added"}
	rejectKeyResultNotFound = command.Rejection{Code: RejectionCodeKeyResultNotFound, Message: "KeyResult does not exist"}
	rejectKeyResultSame     = command.Rejection{Code: RejectionCodeKeyResultUnchanged, Message: "Title or progress should be changed"}
	rejectProgressRange     = command.Rejection{Code: RejectionCodeProgressOutOfRange, Message: "Progress must be between 0 and 100"}
	rejectKeyResultDeleted  = command.Rejection{Code: RejectionCodeKeyResultDeleted, Message: "KeyResult should not be deleted"}
	rejectKeyResultLive     = command.Rejection{Code: RejectionCodeKeyResultNotDeleted, Message: "KeyResult should be deleted"}
	rejectUnsupported       = command.Rejection{Code: RejectionCodeCommandTypeUnsupported, Message: "command type is not supported by objective decider"}
	rejectPayloadInvalid    = command.Rejection{Code: RejectionCodePayloadInvalid, Message: "Payload is invalid"}
)

// Decide returns the decision for an objective command against current state.
//
// Decide is pure: it reads only state and cmd, and an accepted decision holds
// exactly one event that copies the command envelope.
func Decide(state State, cmd command.Command, now func() time.Time) command.Decision {
	if now == nil {
		now = time.Now
	}
	if evtType, ok := passThrough[cmd.Type]; ok {
		return command.Accept(command.NewEvent(cmd, evtType, cmd.PayloadJSON, now().UTC()))
	}
	if cmd.Type == CommandTypeCreate {
		return decideCreate(state, cmd, now)
	}
	if !isKnownCommand(cmd.Type) {
		return command.Reject(rejectUnsupported)
	}
	if !state.Created {
		return command.Reject(rejectNotCreated)
	}

	switch cmd.Type {
	case CommandTypeChangeTitle:
		return decideChangeTitle(state, cmd, now)
	case CommandTypeChangeTimePeriod:
		return decideChangeTimePeriod(state, cmd, now)
	case CommandTypeDelete:
		if state.Deleted {
			return command.Reject(rejectAlreadyDeleted)
		}
		return command.Accept(command.NewEvent(cmd, EventTypeDeleted, cmd.PayloadJSON, now().UTC()))
	case CommandTypeRestore:
		if !state.Deleted {
			return command.Reject(rejectNotDeleted)
		}
		return command.Accept(command.NewEvent(cmd, EventTypeRestored, cmd.PayloadJSON, now().UTC()))
	case CommandTypeAddKeyResult:
		return decideAddKeyResult(state, cmd, now)
	case CommandTypeUpdateKeyResult:
		return decideUpdateKeyResult(state, cmd, now)
	case CommandTypeDeleteKeyResult:
		return decideKeyResultDeletion(state, cmd, now, true)
	case CommandTypeRestoreKeyResult:
		return decideKeyResultDeletion(state, cmd, now, false)
	default:
		return command.Reject(rejectUnsupported)
	}
}

func decideCreate(state State, cmd command.Command, now func() time.Time) command.Decision {
	if state.Created {
		return command.Reject(rejectAlreadyExists)
	}
	var payload CreatePayload
	if !decodePayload(cmd.PayloadJSON, &payload) {
		return command.Reject(rejectPayloadInvalid)
	}
	title := strings.TrimSpace(payload.Title)
	if title == "" {
		return command.Reject(rejectTitleRequired)
	}
	userID := strings.TrimSpace(payload.UserID)
	orgUnitID := strings.TrimSpace(payload.OrgUnitID)
	if userID == "" && orgUnitID == "" {
		return command.Reject(rejectOwnerRequired)
	}
	if userID != "" && orgUnitID != "" {
		return command.Reject(rejectOwnerAmbiguous)
	}

	payloadJSON, _ := json.Marshal(CreatePayload{
		Title:     title,
		Period:    payload.Period,
		UserID:    userID,
		OrgUnitID: orgUnitID,
	})
	return accept(cmd, EventTypeCreated, payloadJSON, now)
}

func decideChangeTitle(state State, cmd command.Command, now func() time.Time) command.Decision {
	var payload TitlePayload
	if !decodePayload(cmd.PayloadJSON, &payload) {
		return command.Reject(rejectPayloadInvalid)
	}
	title := strings.TrimSpace(payload.Title)
	if title == "" {
		return command.Reject(rejectTitleRequired)
	}
	if title == state.Title {
		return command.Reject(rejectTitleUnchanged)
	}
	payloadJSON, _ := json.Marshal(TitlePayload{Title: title})
	return accept(cmd, EventTypeTitleChanged, payloadJSON, now)
}

func decideChangeTimePeriod(state State, cmd command.Command, now func() time.Time) command.Decision {
	var payload PeriodPayload
	if !decodePayload(cmd.PayloadJSON, &payload) {
		return command.Reject(rejectPayloadInvalid)
	}
	if payload.Period == state.Period {
		return command.Reject(rejectPeriodUnchanged)
	}
	payloadJSON, _ := json.Marshal(PeriodPayload{Period: payload.Period})
	return accept(cmd, EventTypePeriodChanged, payloadJSON, now)
}

func decideAddKeyResult(state State, cmd command.Command, now func() time.Time) command.Decision {
	var payload KeyResultAddPayload
	if !decodePayload(cmd.PayloadJSON, &payload) {
		return command.Reject(rejectPayloadInvalid)
	}
	title := strings.TrimSpace(payload.Title)
	if title == "" {
		return command.Reject(rejectTitleRequired)
	}
	keyResultID := strings.TrimSpace(payload.KeyResultID)
	if keyResultID == "" {
		return command.Reject(rejectKeyResultID)
	}
	if _, exists := state.KeyResult(keyResultID); exists {
		return command.Reject(rejectKeyResultAdded)
	}
	payloadJSON, _ := json.Marshal(KeyResultAddedPayload{KeyResultID: keyResultID, Title: title})
	return accept(cmd, EventTypeKeyResultAdded, payloadJSON, now)
}

func decideUpdateKeyResult(state State, cmd command.Command, now func() time.Time) command.Decision {
	var payload KeyResultUpdatePayload
	if !decodePayload(cmd.PayloadJSON, &payload) {
		return command.Reject(rejectPayloadInvalid)
	}
	title := strings.TrimSpace(payload.Title)
	if title == "" {
		return command.Reject(rejectTitleRequired)
	}
	keyResultID := strings.TrimSpace(payload.KeyResultID)
	current, exists := state.KeyResult(keyResultID)
	if !exists {
		return command.Reject(rejectKeyResultNotFound)
	}
	if payload.Progress != nil && (*payload.Progress < MinProgress || *payload.Progress > MaxProgress) {
		return command.Reject(rejectProgressRange)
	}
	// A missing progress leaves the current value in place, so it counts as unchanged.
	sameTitle := title == current.Title
	sameProgress := payload.Progress == nil || *payload.Progress == current.Progress
	if sameTitle && sameProgress {
		return command.Reject(rejectKeyResultSame)
	}
	payloadJSON, _ := json.Marshal(KeyResultUpdatePayload{
		KeyResultID: keyResultID,
		Title:       title,
		Progress:    payload.Progress,
	})
	return accept(cmd, EventTypeKeyResultUpdated, payloadJSON, now)
}

func decideKeyResultDeletion(state State, cmd command.Command, now func() time.Time, deleting bool) command.Decision {
	var payload KeyResultRefPayload
	if !decodePayload(cmd.PayloadJSON, &payload) {
		return command.Reject(rejectPayloadInvalid)
	}
	keyResultID := strings.TrimSpace(payload.KeyResultID)
	current, exists := state.KeyResult(keyResultID)
	if !exists {
		return command.Reject(rejectKeyResultNotFound)
	}
	payloadJSON, _ := json.Marshal(KeyResultRefPayload{KeyResultID: keyResultID})
	if deleting {
		if current.Deleted {
			return command.Reject(rejectKeyResultDeleted)
		}
		return accept(cmd, EventTypeKeyResultDeleted, payloadJSON, now)
	}
	if !current.Deleted {
		return command.Reject(rejectKeyResultLive)
	}
	return accept(cmd, EventTypeKeyResultRestored, payloadJSON, now)
}

// decodePayload reports whether raw decodes into target. An empty payload
// leaves target zeroed.
func decodePayload(raw []byte, target any) bool {
	if len(raw) == 0 {
		return true
	}
	return json.Unmarshal(raw, target) == nil
}

func accept(cmd command.Command, eventType event.Type, payloadJSON []byte, now func() time.Time) command.Decision {
	return command.Accept(command.NewEvent(cmd, eventType, payloadJSON, now().UTC()))
}

func isKnownCommand(t command.Type) bool {
	for _, known := range CommandTypes() {
		if known == t {
			return true
		}
	}
	return false
}
