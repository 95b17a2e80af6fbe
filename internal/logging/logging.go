// Package logging builds the process logger and attaches it to the event
// bus.
package logging

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	eventbus "github.com/hanpama/gqljit/internal/eventbus"
	events "github.com/hanpama/gqljit/internal/events"
	reqid "github.com/hanpama/gqljit/internal/reqid"
)

// New returns a logger writing to stderr. format is "json" or "console".
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	var cfg zap.Config
	switch format {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console", "":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func withRequest(ctx context.Context, log *zap.Logger) *zap.Logger {
	if rid, ok := reqid.FromContext(ctx); ok {
		return log.With(zap.String("request_id", rid))
	}
	return log
}

// Subscribe logs server events to log until the returned function is called.
func Subscribe(log *zap.Logger) (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.CompileFinish) {
			l := withRequest(ctx, log)
			if e.Err != nil {
				l.Info("document rejected",
					zap.String("operation", e.OperationName),
					zap.Error(e.Err))
				return
			}
			l.Debug("document prepared",
				zap.String("operation", e.OperationName),
				zap.Bool("compiled", e.Compiled),
				zap.Int("bindings", e.Bindings),
				zap.Duration("duration", e.Duration))
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.Fallback) {
			withRequest(ctx, log).Debug("generic executor fallback",
				zap.String("operation", e.OperationName),
				zap.String("reason", e.Reason))
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.Deprecation) {
			withRequest(ctx, log).Warn("deprecated parameter",
				zap.String("name", e.Name),
				zap.String("replacement", e.Replacement))
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			if len(e.Errors) == 0 {
				return
			}
			withRequest(ctx, log).Debug("operation finished with errors",
				zap.String("operation", e.OperationName),
				zap.String("type", e.OperationType),
				zap.Errors("errors", e.Errors))
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			withRequest(ctx, log).Info("http request",
				zap.String("method", e.Request.Method),
				zap.String("path", e.Request.URL.Path),
				zap.Int("status", e.Status),
				zap.Duration("duration", e.Duration))
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GRPCServerFinish) {
			l := withRequest(ctx, log)
			fields := []zap.Field{
				zap.String("method", e.Method),
				zap.Stringer("code", e.Code),
				zap.Duration("duration", e.Duration),
			}
			if e.Err != nil {
				l.Warn("grpc request", append(fields, zap.Error(e.Err))...)
				return
			}
			l.Info("grpc request", fields...)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
