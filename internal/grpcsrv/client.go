package grpcsrv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	eventbus "github.com/hanpama/gqljit/internal/eventbus"
	events "github.com/hanpama/gqljit/internal/events"
	executor "github.com/hanpama/gqljit/internal/executor"
	reqid "github.com/hanpama/gqljit/internal/reqid"
)

// ClientOptions configures a Client.
//
// Defaults:
// - RPCTimeout:  3s (used only if the call context has no deadline)
// - DialOptions: insecure credentials
type ClientOptions struct {
	RPCTimeout  time.Duration
	DialOptions []grpc.DialOption
}

type ClientOption func(*ClientOptions)

func WithRPCTimeout(d time.Duration) ClientOption {
	return func(o *ClientOptions) { o.RPCTimeout = d }
}

func WithDialOptions(opts ...grpc.DialOption) ClientOption {
	return func(o *ClientOptions) { o.DialOptions = append(o.DialOptions, opts...) }
}

// Client calls the GraphQL service.
type Client struct {
	target string
	cc     *grpc.ClientConn
	opts   ClientOptions
}

// Dial creates a client for target. The connection is established lazily.
func Dial(target string, opts ...ClientOption) (*Client, error) {
	o := ClientOptions{RPCTimeout: 3 * time.Second}
	for _, f := range opts {
		f(&o)
	}
	if len(o.DialOptions) == 0 {
		o.DialOptions = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	cc, err := grpc.NewClient(target, o.DialOptions...)
	if err != nil {
		return nil, fmt.Errorf("grpcsrv: dial %s: %w", target, err)
	}
	return &Client{target: target, cc: cc, opts: o}, nil
}

func (c *Client) Close() error { return c.cc.Close() }

// Execute sends one operation. Field errors come back in the result; a
// non-nil error means the call itself failed.
func (c *Client) Execute(ctx context.Context, query, operationName string, variables map[string]any) (*executor.ExecutionResult, error) {
	if _, ok := ctx.Deadline(); !ok && c.opts.RPCTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RPCTimeout)
		defer cancel()
	}
	if rid, ok := reqid.FromContext(ctx); ok {
		ctx = metadata.AppendToOutgoingContext(ctx, RequestIDKey, rid)
	}

	req := map[string]any{"query": query}
	if operationName != "" {
		req["operationName"] = operationName
	}
	if len(variables) > 0 {
		req["variables"] = variables
	}
	in, err := toStruct(req)
	if err != nil {
		return nil, fmt.Errorf("grpcsrv: encode request: %w", err)
	}

	start := time.Now()
	eventbus.Publish(ctx, events.GRPCClientStart{Service: ServiceName, Method: "Execute", Target: c.target})
	out := new(structpb.Struct)
	err = c.cc.Invoke(ctx, ExecuteMethod, in, out)
	eventbus.Publish(ctx, events.GRPCClientFinish{
		Service:  ServiceName,
		Method:   "Execute",
		Target:   c.target,
		Code:     status.Code(err),
		Err:      err,
		Duration: time.Since(start),
	})
	if err != nil {
		return nil, err
	}

	b, err := out.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("grpcsrv: decode response: %w", err)
	}
	var res executor.ExecutionResult
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("grpcsrv: decode response: %w", err)
	}
	return &res, nil
}

// toStruct normalizes v through JSON so typed Go values are accepted.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
