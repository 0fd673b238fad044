// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Objective rejections
	CodeObjectiveAlreadyExists  Code = "OBJECTIVE_ALREADY_EXISTS"
	CodeObjectiveNotCreated     Code = "OBJECTIVE_NOT_CREATED"
	CodeObjectiveAlreadyDeleted Code = "OBJECTIVE_ALREADY_DELETED"
	CodeObjectiveNotDeleted     Code = "OBJECTIVE_NOT_DELETED"
	CodeTitleRequired           Code = "TITLE_REQUIRED"
	CodeTitleUnchanged          Code = "TITLE_UNCHANGED"
	CodePeriodUnchanged         Code = "PERIOD_UNCHANGED"
	CodeOwnerLinkRequired       Code = "OWNER_LINK_REQUIRED"
	CodeOwnerLinkAmbiguous      Code = "OWNER_LINK_AMBIGUOUS"

	// Key result rejections
	CodeKeyResultIDRequired     Code = "KEY_RESULT_ID_REQUIRED"
	CodeKeyResultAlreadyAdded   Code = "KEY_RESULT_ALREADY_ADDED"
	CodeKeyResultNotFound       Code = "KEY_RESULT_NOT_FOUND"
	CodeKeyResultUnchanged      Code = "KEY_RESULT_UNCHANGED"
	CodeKeyResultAlreadyDeleted Code = "KEY_RESULT_ALREADY_DELETED"
	CodeKeyResultNotDeleted     Code = "KEY_RESULT_NOT_DELETED"
	CodeProgressOutOfRange      Code = "PROGRESS_OUT_OF_RANGE"

	// Command envelope errors
	CodeCommandTypeUnsupported Code = "COMMAND_TYPE_UNSUPPORTED"
	CodeCommandInvalid         Code = "COMMAND_INVALID"
	CodePayloadInvalid         Code = "PAYLOAD_INVALID"

	// Query errors
	CodeFilterInvalid    Code = "FILTER_INVALID"
	CodePageTokenInvalid Code = "PAGE_TOKEN_INVALID"

	// Storage errors
	CodeNotFound            Code = "NOT_FOUND"
	CodeConcurrencyConflict Code = "CONCURRENCY_CONFLICT"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeTitleRequired,
		CodeOwnerLinkRequired,
		CodeOwnerLinkAmbiguous,
		CodeKeyResultIDRequired,
		CodeProgressOutOfRange,
		CodeCommandTypeUnsupported,
		CodeCommandInvalid,
		CodePayloadInvalid,
		CodeFilterInvalid,
		CodePageTokenInvalid:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeTitleUnchanged,
		CodePeriodUnchanged,
		CodeObjectiveAlreadyDeleted,
		CodeObjectiveNotDeleted,
		CodeKeyResultUnchanged,
		CodeKeyResultAlreadyDeleted,
		CodeKeyResultNotDeleted:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodeObjectiveNotCreated,
		CodeKeyResultNotFound:
		return codes.NotFound

	// AlreadyExists - unique resource constraint
	case CodeObjectiveAlreadyExists,
		CodeKeyResultAlreadyAdded:
		return codes.AlreadyExists

	// Aborted - optimistic concurrency lost; the caller may retry
	case CodeConcurrencyConflict:
		return codes.Aborted

	default:
		return codes.Internal
	}
}
