// Package grpcsrv exposes the backend over gRPC. The service carries
// google.protobuf.Struct messages so no generated code is needed:
//
//	service gqljit.v1.GraphQL {
//	  rpc Execute(google.protobuf.Struct) returns (google.protobuf.Struct);
//	}
//
// A request has the fields query, operationName and variables; a response
// has data and, when present, errors, shaped as in the HTTP transport.
package grpcsrv

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName   = "gqljit.v1.GraphQL"
	ExecuteMethod = "/" + ServiceName + "/Execute"

	// RequestIDKey is the metadata key carrying the request ID.
	RequestIDKey = "x-request-id"
)

// GraphQLServer is the server API of the GraphQL service.
type GraphQLServer interface {
	Execute(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the GraphQL service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GraphQLServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Execute", Handler: executeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gqljit/v1/graphql.proto",
}

func executeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GraphQLServer).Execute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ExecuteMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GraphQLServer).Execute(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
