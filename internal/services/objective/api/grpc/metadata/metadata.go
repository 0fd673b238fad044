// Package metadata carries request identity between gRPC headers and
// handler contexts.
package metadata

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/louisbranch/okr/internal/platform/id"
)

const (
	// RequestIDHeader is the metadata key for request correlation ids.
	RequestIDHeader = "x-okr-request-id"
	// ActorIDHeader names the user acting through the call.
	ActorIDHeader = "x-okr-actor-id"
	// CorrelationIDHeader groups calls that belong to one client workflow.
	CorrelationIDHeader = "x-okr-correlation-id"
	// AcceptLanguageHeader carries the caller's locale preferences.
	AcceptLanguageHeader = "accept-language"
)

type contextKey struct{}

// Request is the identity attached to every inbound call.
type Request struct {
	RequestID      string
	ActorID        string
	CorrelationID  string
	AcceptLanguage string
}

// WithRequest stores req in ctx.
func WithRequest(ctx context.Context, req Request) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, req)
}

// RequestFromContext returns the request stored by the interceptor, falling
// back to raw incoming metadata when the interceptor did not run.
func RequestFromContext(ctx context.Context) Request {
	if ctx == nil {
		return Request{}
	}
	if req, ok := ctx.Value(contextKey{}).(Request); ok {
		return req
	}
	return requestFromIncoming(ctx)
}

// RequestIDFromContext returns the request id for ctx.
func RequestIDFromContext(ctx context.Context) string {
	return RequestFromContext(ctx).RequestID
}

// IsPrintableASCII reports whether value is non-empty printable ASCII.
func IsPrintableASCII(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < 0x20 || value[i] > 0x7e {
			return false
		}
	}
	return true
}

// FirstMetadataValue returns the first printable value for key, matched
// case-insensitively.
func FirstMetadataValue(md metadata.MD, key string) string {
	for mdKey, values := range md {
		if !strings.EqualFold(mdKey, key) {
			continue
		}
		for _, value := range values {
			if IsPrintableASCII(value) {
				return strings.TrimSpace(value)
			}
		}
	}
	return ""
}

// UnaryServerInterceptor guarantees every call has a request id, echoes it
// in the response header and tags the active span with it.
func UnaryServerInterceptor(idGenerator func() (string, error)) grpc.UnaryServerInterceptor {
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		request, err := ensureRequest(ctx, idGenerator)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "ensure request metadata: %v", err)
		}
		if err := grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, request.RequestID)); err != nil {
			return nil, status.Errorf(codes.Internal, "set response metadata: %v", err)
		}
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("okr.request_id", request.RequestID),
			attribute.String("okr.actor_id", request.ActorID),
		)
		return handler(WithRequest(ctx, request), req)
	}
}

func ensureRequest(ctx context.Context, idGenerator func() (string, error)) (Request, error) {
	request := requestFromIncoming(ctx)
	if request.RequestID == "" {
		generated, err := idGenerator()
		if err != nil {
			return Request{}, err
		}
		request.RequestID = generated
	}
	if request.CorrelationID == "" {
		request.CorrelationID = request.RequestID
	}
	return request, nil
}

func requestFromIncoming(ctx context.Context) Request {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return Request{}
	}
	return Request{
		RequestID:      FirstMetadataValue(md, RequestIDHeader),
		ActorID:        FirstMetadataValue(md, ActorIDHeader),
		CorrelationID:  FirstMetadataValue(md, CorrelationIDHeader),
		AcceptLanguage: FirstMetadataValue(md, AcceptLanguageHeader),
	}
}
