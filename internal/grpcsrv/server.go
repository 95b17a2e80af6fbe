package grpcsrv

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	backend "github.com/hanpama/gqljit/internal/backend"
	eventbus "github.com/hanpama/gqljit/internal/eventbus"
	events "github.com/hanpama/gqljit/internal/events"
	executor "github.com/hanpama/gqljit/internal/executor"
	reqid "github.com/hanpama/gqljit/internal/reqid"
)

// Server implements GraphQLServer on top of a backend.
type Server struct {
	backend *backend.Backend
}

var _ GraphQLServer = (*Server)(nil)

func NewServer(b *backend.Backend) *Server { return &Server{backend: b} }

// Register adds the GraphQL service backed by b to s.
func Register(s grpc.ServiceRegistrar, b *backend.Backend) {
	s.RegisterService(&ServiceDesc, NewServer(b))
}

func (s *Server) Execute(ctx context.Context, in *structpb.Struct) (out *structpb.Struct, err error) {
	md, _ := metadata.FromIncomingContext(ctx)
	var rid string
	if ids := md.Get(RequestIDKey); len(ids) > 0 && ids[0] != "" {
		rid = ids[0]
		ctx = reqid.WithID(ctx, rid)
	} else {
		ctx, rid = reqid.NewContext(ctx)
	}
	_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDKey, rid))

	start := time.Now()
	eventbus.Publish(ctx, events.GRPCServerStart{Method: ExecuteMethod})
	defer func() {
		eventbus.Publish(ctx, events.GRPCServerFinish{
			Method:   ExecuteMethod,
			Code:     status.Code(err),
			Err:      err,
			Duration: time.Since(start),
		})
	}()

	req := in.AsMap()
	query, _ := req["query"].(string)
	if query == "" {
		return nil, status.Error(codes.InvalidArgument, "missing 'query'")
	}
	operationName, _ := req["operationName"].(string)
	variables, _ := req["variables"].(map[string]any)

	outgoing := md.Copy()
	outgoing.Set("graphql-request-id", rid)
	ctx = metadata.NewOutgoingContext(ctx, outgoing)

	opStart := time.Now()
	var result *executor.ExecutionResult
	opType, compiled := "", false
	doc, derr := s.backend.DocumentFromString(ctx, query, operationName)
	if derr != nil {
		result = &executor.ExecutionResult{Errors: backend.GraphQLErrors(derr)}
	} else {
		opType, compiled = doc.OperationType(), doc.Compiled()
		eventbus.Publish(ctx, events.GraphQLStart{
			Query:         query,
			OperationName: operationName,
			OperationType: opType,
			Compiled:      compiled,
		})
		result = doc.Execute(ctx, nil, variables, operationName)
	}
	errs := make([]error, len(result.Errors))
	for i := range result.Errors {
		errs[i] = result.Errors[i]
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         query,
		OperationName: operationName,
		OperationType: opType,
		Compiled:      compiled,
		Errors:        errs,
		Duration:      time.Since(opStart),
	})

	out, err = toStruct(result)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return out, nil
}
