package otel

import (
	"context"
	"sync"

	eventbus "github.com/hanpama/gqljit/internal/eventbus"
	events "github.com/hanpama/gqljit/internal/events"
	reqid "github.com/hanpama/gqljit/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every span recorded here.
const TracerName = "gqljit"

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := Register(tp.Tracer(TracerName))

	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Register subscribes tracer to server events on the global bus and returns
// a function removing the subscriptions.
func Register(tracer trace.Tracer) (unsubscribe func()) {
	s := &subscriber{tracer: tracer}
	return s.register()
}

type subscriber struct {
	tracer       trace.Tracer
	httpSpans    sync.Map // rid -> trace.Span
	compileSpans sync.Map // rid -> trace.Span
	gqlSpans     sync.Map // rid -> trace.Span
	grpcSpans    sync.Map // rid -> trace.Span
	serverSpans  sync.Map // rid -> trace.Span
}

// parent returns ctx carrying the innermost open span of the request.
func (s *subscriber) parent(ctx context.Context, rid string, maps ...*sync.Map) context.Context {
	for _, m := range maps {
		if v, ok := m.Load(rid); ok {
			return trace.ContextWithSpan(ctx, v.(trace.Span))
		}
	}
	return ctx
}

func finish(m *sync.Map, rid string, fn func(trace.Span)) {
	v, ok := m.LoadAndDelete(rid)
	if !ok {
		return
	}
	span := v.(trace.Span)
	fn(span)
	span.End()
}

func (s *subscriber) register() func() {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "http.request")
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				attribute.String("http.target", e.Request.URL.Path),
			)
			s.httpSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			rid, _ := reqid.FromContext(ctx)
			finish(&s.httpSpans, rid, func(span trace.Span) {
				span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
			})
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GRPCServerStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "grpc.server", trace.WithSpanKind(trace.SpanKindServer))
			span.SetAttributes(semconv.RPCMethodKey.String(e.Method))
			s.serverSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GRPCServerFinish) {
			rid, _ := reqid.FromContext(ctx)
			finish(&s.serverSpans, rid, func(span trace.Span) {
				span.SetAttributes(attribute.String("grpc.code", e.Code.String()))
				if e.Err != nil {
					span.RecordError(e.Err)
					span.SetStatus(codes.Error, e.Err.Error())
				}
			})
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.CompileStart) {
			rid, _ := reqid.FromContext(ctx)
			parent := s.parent(ctx, rid, &s.httpSpans, &s.serverSpans)
			_, span := s.tracer.Start(parent, "graphql.compile")
			span.SetAttributes(attribute.String("graphql.operation.name", e.OperationName))
			s.compileSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.CompileFinish) {
			rid, _ := reqid.FromContext(ctx)
			finish(&s.compileSpans, rid, func(span trace.Span) {
				span.SetAttributes(
					attribute.Bool("gqljit.compiled", e.Compiled),
					attribute.Int("gqljit.bindings", e.Bindings),
				)
				if e.Err != nil {
					span.RecordError(e.Err)
					span.SetStatus(codes.Error, e.Err.Error())
				}
			})
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLStart) {
			rid, _ := reqid.FromContext(ctx)
			parent := s.parent(ctx, rid, &s.httpSpans, &s.serverSpans)
			_, span := s.tracer.Start(parent, "graphql.operation")
			span.SetAttributes(
				attribute.String("graphql.operation.name", e.OperationName),
				attribute.String("graphql.operation.type", e.OperationType),
				attribute.Bool("gqljit.compiled", e.Compiled),
			)
			s.gqlSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			rid, _ := reqid.FromContext(ctx)
			finish(&s.gqlSpans, rid, func(span trace.Span) {
				span.SetAttributes(attribute.Int("graphql.error_count", len(e.Errors)))
			})
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GRPCClientStart) {
			rid, _ := reqid.FromContext(ctx)
			parent := s.parent(ctx, rid, &s.gqlSpans, &s.httpSpans)
			_, span := s.tracer.Start(parent, "grpc.client", trace.WithSpanKind(trace.SpanKindClient))
			span.SetAttributes(
				semconv.RPCServiceKey.String(e.Service),
				semconv.RPCMethodKey.String(e.Method),
				attribute.String("net.peer.name", e.Target),
			)
			s.grpcSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GRPCClientFinish) {
			rid, _ := reqid.FromContext(ctx)
			finish(&s.grpcSpans, rid, func(span trace.Span) {
				span.SetAttributes(attribute.String("grpc.code", e.Code.String()))
				if e.Err != nil {
					span.RecordError(e.Err)
				}
			})
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
