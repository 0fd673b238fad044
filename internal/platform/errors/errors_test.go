package errors

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestGRPCCodeMapping(t *testing.T) {
	tests := []struct {
		code Code
		want codes.Code
	}{
		{CodeTitleRequired, codes.InvalidArgument},
		{CodeOwnerLinkAmbiguous, codes.InvalidArgument},
		{CodeProgressOutOfRange, codes.InvalidArgument},
		{CodePayloadInvalid, codes.InvalidArgument},
		{CodeTitleUnchanged, codes.FailedPrecondition},
		{CodeObjectiveAlreadyDeleted, codes.FailedPrecondition},
		{CodeKeyResultNotDeleted, codes.FailedPrecondition},
		{CodeObjectiveAlreadyExists, codes.AlreadyExists},
		{CodeKeyResultAlreadyAdded, codes.AlreadyExists},
		{CodeObjectiveNotCreated, codes.NotFound},
		{CodeKeyResultNotFound, codes.NotFound},
		{CodeNotFound, codes.NotFound},
		{CodeConcurrencyConflict, codes.Aborted},
		{CodeUnknown, codes.Internal},
		{Code("SOMETHING_NEW"), codes.Internal},
	}
	for _, tt := range tests {
		if got := tt.code.GRPCCode(); got != tt.want {
			t.Fatalf("%s.GRPCCode() = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestIsMatchesByCode(t *testing.T) {
	sentinel := New(CodeNotFound, "record not found")
	wrapped := fmt.Errorf("load view: %w", Wrap(CodeNotFound, "view obj-1", errors.New("no rows")))
	if !errors.Is(wrapped, sentinel) {
		t.Fatal("expected wrapped error to match sentinel by code")
	}
	if errors.Is(wrapped, New(CodeConcurrencyConflict, "")) {
		t.Fatal("expected different code not to match")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(fmt.Errorf("outer: %w", New(CodeTitleRequired, "x"))); got != CodeTitleRequired {
		t.Fatalf("CodeOf = %s, want %s", got, CodeTitleRequired)
	}
	if got := CodeOf(errors.New("plain")); got != CodeUnknown {
		t.Fatalf("CodeOf = %s, want %s", got, CodeUnknown)
	}
}

func TestErrorMessageFallsBackToCause(t *testing.T) {
	err := Wrap(CodeUnknown, "", errors.New("disk full"))
	if err.Error() != "disk full" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestToGRPCStatusAttachesDetails(t *testing.T) {
	err := WithMetadata(CodeKeyResultNotFound, "KeyResult does not exist", map[string]string{"KeyResultID": "k9"}).
		ToGRPCStatus("pt-BR", "O resultado-chave não existe")

	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected status error, got %v", err)
	}
	if st.Code() != codes.NotFound {
		t.Fatalf("code = %v, want NotFound", st.Code())
	}
	var info *errdetails.ErrorInfo
	var localized *errdetails.LocalizedMessage
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			info = d
		case *errdetails.LocalizedMessage:
			localized = d
		}
	}
	if info == nil || info.Reason != string(CodeKeyResultNotFound) || info.Domain != Domain || info.Metadata["KeyResultID"] != "k9" {
		t.Fatalf("error info = %+v", info)
	}
	if localized == nil || localized.Locale != "pt-BR" || localized.Message != "O resultado-chave não existe" {
		t.Fatalf("localized = %+v", localized)
	}
}
