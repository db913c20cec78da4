package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "invoice.v1.ExtractionService"

const (
	extractMethod     = "/" + ServiceName + "/Extract"
	getDocumentMethod = "/" + ServiceName + "/GetDocument"
)

// ExtractionServer is the server API for ExtractionService. Messages are
// well-known protobuf types, so no generated code is needed.
type ExtractionServer interface {
	// Extract takes {text, file_name, persist} and returns the response envelope.
	Extract(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// GetDocument returns a stored document by id.
	GetDocument(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

// RegisterExtractionServer registers srv on s.
func RegisterExtractionServer(s grpc.ServiceRegistrar, srv ExtractionServer) {
	s.RegisterService(&ExtractionServiceDesc, srv)
}

var ExtractionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExtractionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: extractHandler},
		{MethodName: "GetDocument", Handler: getDocumentHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "invoice/v1/extraction.proto",
}

func extractHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExtractionServer).Extract(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: extractMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExtractionServer).Extract(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getDocumentHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExtractionServer).GetDocument(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getDocumentMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExtractionServer).GetDocument(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// ExtractionClient is the client API for ExtractionService.
type ExtractionClient struct {
	cc grpc.ClientConnInterface
}

func NewExtractionClient(cc grpc.ClientConnInterface) *ExtractionClient {
	return &ExtractionClient{cc: cc}
}

func (c *ExtractionClient) Extract(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, extractMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ExtractionClient) GetDocument(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getDocumentMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
