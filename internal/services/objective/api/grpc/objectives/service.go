// Package objectives implements the objectives.v1.ObjectiveService gRPC API.
package objectives

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/louisbranch/okr/internal/platform/errors"
	"github.com/louisbranch/okr/internal/platform/grpc/pagination"
	"github.com/louisbranch/okr/internal/platform/i18n/catalog"
	grpcmeta "github.com/louisbranch/okr/internal/services/objective/api/grpc/metadata"
	"github.com/louisbranch/okr/internal/services/objective/core/filter"
	"github.com/louisbranch/okr/internal/services/objective/domain/command"
	"github.com/louisbranch/okr/internal/services/objective/domain/engine"
	"github.com/louisbranch/okr/internal/services/objective/domain/event"
	"github.com/louisbranch/okr/internal/services/objective/domain/view"
	"github.com/louisbranch/okr/internal/services/objective/storage"
)

const (
	defaultListPageSize = 25
	maxListPageSize     = 100
)

// CommandHandler executes one command.
type CommandHandler interface {
	Handle(ctx context.Context, cmd command.Command) (engine.Result, error)
}

// Service implements ObjectiveServiceServer.
type Service struct {
	commands CommandHandler
	views    storage.ViewStore
	messages *catalog.Bundle
}

// NewService creates a Service. A nil bundle uses the embedded catalogs.
func NewService(commands CommandHandler, views storage.ViewStore, messages *catalog.Bundle) *Service {
	if messages == nil {
		messages = catalog.Default()
	}
	return &Service{commands: commands, views: views, messages: messages}
}

// ExecuteCommand handles {aggregateId, type, payload} and returns the
// appended events. Rejections become status errors carrying the rejection
// code and a localized message.
func (s *Service) ExecuteCommand(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.commands == nil {
		return nil, status.Error(codes.Unavailable, "command handling is not configured")
	}
	fields := in.GetFields()
	aggregateID := strings.TrimSpace(fields["aggregateId"].GetStringValue())
	commandType := strings.TrimSpace(fields["type"].GetStringValue())
	if aggregateID == "" || commandType == "" {
		return nil, s.statusError(ctx, apperrors.New(apperrors.CodeCommandInvalid, "aggregateId and type are required"))
	}
	payload, err := payloadJSON(fields["payload"])
	if err != nil {
		return nil, s.statusError(ctx, apperrors.Wrap(apperrors.CodeCommandInvalid, "payload must be an object", err))
	}

	request := grpcmeta.RequestFromContext(ctx)
	result, err := s.commands.Handle(ctx, command.Command{
		AggregateID:   aggregateID,
		Type:          command.Type(commandType),
		ActorID:       request.ActorID,
		RequestID:     request.RequestID,
		CorrelationID: request.CorrelationID,
		PayloadJSON:   payload,
	})
	if err != nil {
		return nil, s.handleError(ctx, err)
	}
	if result.Decision.Rejected() {
		rejection := result.Decision.Rejections[0]
		return nil, s.statusError(ctx, apperrors.New(apperrors.Code(rejection.Code), rejection.Message))
	}

	events := make([]any, 0, len(result.Decision.Events))
	for _, evt := range result.Decision.Events {
		encoded, err := eventValue(evt)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "encode event: %v", err)
		}
		events = append(events, encoded)
	}
	out, err := structpb.NewStruct(map[string]any{
		"aggregateId": aggregateID,
		"lastSeq":     float64(result.LastSeq),
		"events":      events,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// GetObjective returns the stored view for {id}.
func (s *Service) GetObjective(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.views == nil {
		return nil, status.Error(codes.Unavailable, "objective views are not configured")
	}
	objectiveID := strings.TrimSpace(in.GetFields()["id"].GetStringValue())
	if objectiveID == "" {
		return nil, s.statusError(ctx, apperrors.New(apperrors.CodeCommandInvalid, "id is required"))
	}
	record, err := s.views.GetView(ctx, objectiveID)
	if err != nil {
		return nil, s.handleError(ctx, err)
	}
	value, err := viewValue(record.View)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode objective: %v", err)
	}
	return structpb.NewStruct(value)
}

// ListObjectives pages views by id: {pageSize, pageToken, filter} ->
// {objectives, nextPageToken}.
func (s *Service) ListObjectives(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.views == nil {
		return nil, status.Error(codes.Unavailable, "objective views are not configured")
	}
	fields := in.GetFields()
	pageSize := pagination.ClampPageSize(int(fields["pageSize"].GetNumberValue()), pagination.PageSizeConfig{
		Default: defaultListPageSize,
		Max:     maxListPageSize,
	})
	afterID, err := pagination.DecodeToken(fields["pageToken"].GetStringValue())
	if err != nil {
		return nil, s.statusError(ctx, apperrors.Wrap(apperrors.CodePageTokenInvalid, "page token is invalid", err))
	}
	cond, err := filter.ParseObjectiveFilter(fields["filter"].GetStringValue())
	if err != nil {
		return nil, s.statusError(ctx, apperrors.WithMetadata(apperrors.CodeFilterInvalid, err.Error(), map[string]string{
			"filter": fields["filter"].GetStringValue(),
		}))
	}

	page, err := s.views.ListViews(ctx, storage.ListViewsRequest{
		PageSize:     pageSize,
		AfterID:      afterID,
		FilterClause: cond.Clause,
		FilterParams: cond.Params,
	})
	if err != nil {
		return nil, s.handleError(ctx, err)
	}

	objectives := make([]any, 0, len(page.Views))
	for _, record := range page.Views {
		value, err := viewValue(record.View)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "encode objective: %v", err)
		}
		objectives = append(objectives, value)
	}
	return structpb.NewStruct(map[string]any{
		"objectives":    objectives,
		"nextPageToken": pagination.EncodeToken(page.NextID),
	})
}

// handleError maps engine and storage failures onto status errors.
func (s *Service) handleError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, engine.ErrCommandInvalid):
		return s.statusError(ctx, apperrors.Wrap(apperrors.CodeCommandInvalid, err.Error(), err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	if engine.IsNonRetryable(err) {
		log.Printf("request %s: command persisted but follow-up failed: %v", grpcmeta.RequestIDFromContext(ctx), err)
		return status.Errorf(codes.Internal, "command persisted but follow-up failed: %v", err)
	}
	if code := apperrors.CodeOf(err); code != apperrors.CodeUnknown {
		// keep the outer message, which names the aggregate and sequence
		return s.statusError(ctx, apperrors.Wrap(code, err.Error(), err))
	}
	log.Printf("request %s: %v", grpcmeta.RequestIDFromContext(ctx), err)
	return status.Errorf(codes.Internal, "internal error: %v", err)
}

func (s *Service) statusError(ctx context.Context, err *apperrors.Error) error {
	locale, text := s.messages.Localize(string(err.Code), err.Message, grpcmeta.RequestFromContext(ctx).AcceptLanguage)
	return err.ToGRPCStatus(locale, text)
}

func payloadJSON(value *structpb.Value) ([]byte, error) {
	if value == nil {
		return nil, nil
	}
	if _, ok := value.GetKind().(*structpb.Value_NullValue); ok {
		return nil, nil
	}
	object := value.GetStructValue()
	if object == nil {
		return nil, fmt.Errorf("payload has kind %T", value.GetKind())
	}
	return object.MarshalJSON()
}

func eventValue(evt event.Event) (map[string]any, error) {
	var payload any
	if len(evt.PayloadJSON) > 0 {
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return nil, err
		}
	}
	return map[string]any{
		"aggregateId": evt.AggregateID,
		"seq":         float64(evt.Seq),
		"type":        string(evt.Type),
		"timestamp":   evt.Timestamp.UTC().Format(time.RFC3339Nano),
		"payload":     payload,
		"hash":        evt.Hash,
	}, nil
}

func viewValue(v view.View) (map[string]any, error) {
	data, err := view.Encode(v)
	if err != nil {
		return nil, err
	}
	var value map[string]any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	return value, nil
}

var _ ObjectiveServiceServer = (*Service)(nil)
