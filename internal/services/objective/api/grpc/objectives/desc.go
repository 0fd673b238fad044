package objectives

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "objectives.v1.ObjectiveService"

const (
	ExecuteCommandFullMethodName = "/" + ServiceName + "/ExecuteCommand"
	GetObjectiveFullMethodName   = "/" + ServiceName + "/GetObjective"
	ListObjectivesFullMethodName = "/" + ServiceName + "/ListObjectives"
)

// ObjectiveServiceServer is the server API for ObjectiveService. Messages are
// JSON-shaped structpb values.
type ObjectiveServiceServer interface {
	ExecuteCommand(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetObjective(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListObjectives(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes ObjectiveService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ObjectiveServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ExecuteCommand", Handler: unaryHandler(ExecuteCommandFullMethodName, ObjectiveServiceServer.ExecuteCommand)},
		{MethodName: "GetObjective", Handler: unaryHandler(GetObjectiveFullMethodName, ObjectiveServiceServer.GetObjective)},
		{MethodName: "ListObjectives", Handler: unaryHandler(ListObjectivesFullMethodName, ObjectiveServiceServer.ListObjectives)},
	},
	Metadata: "objectives/v1/objective.proto",
}

// RegisterObjectiveServiceServer registers srv with s.
func RegisterObjectiveServiceServer(s grpc.ServiceRegistrar, srv ObjectiveServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type method func(ObjectiveServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call method) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ObjectiveServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ObjectiveServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client calls ObjectiveService over a client connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// ExecuteCommand calls ObjectiveService/ExecuteCommand.
func (c *Client) ExecuteCommand(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ExecuteCommandFullMethodName, in, opts...)
}

// GetObjective calls ObjectiveService/GetObjective.
func (c *Client) GetObjective(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GetObjectiveFullMethodName, in, opts...)
}

// ListObjectives calls ObjectiveService/ListObjectives.
func (c *Client) ListObjectives(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ListObjectivesFullMethodName, in, opts...)
}

func (c *Client) invoke(ctx context.Context, fullMethod string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
