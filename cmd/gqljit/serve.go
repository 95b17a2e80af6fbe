package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	grpcsrv "github.com/hanpama/gqljit/internal/grpcsrv"
	metrics "github.com/hanpama/gqljit/internal/metrics"
	otel "github.com/hanpama/gqljit/internal/otel"
	server "github.com/hanpama/gqljit/internal/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var metadataHeaders []string
	var corsOrigins []string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the GraphQL endpoint",
		Long: `Serve GraphQL over HTTP at /graphql with Prometheus metrics at /metrics.
When grpc.addr is set the gqljit.v1.GraphQL service is served there too.`,
		Example: `  gqljit serve --schema schema.graphql --data data.json --server-addr :8080`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, metadataHeaders, corsOrigins)
		},
	}
	f := cmd.Flags()
	f.String("server-addr", "", "HTTP listen address")
	f.Bool("server-pretty", false, "pretty-print JSON responses")
	f.Duration("server-timeout", 0, "per-request timeout")
	f.Int64("server-max-body-bytes", 0, "request body limit in bytes")
	f.Bool("server-graphiql", true, "serve GraphiQL to browsers")
	f.String("grpc-addr", "", "gRPC listen address (disabled when empty)")
	f.Int("compiler-cache-size", 0, "document cache size, 0 disables caching")
	f.Bool("compiler-introspection", true, "enable introspection")
	f.String("otel-endpoint", "", "OTLP collector endpoint")
	f.String("otel-service", "", "OpenTelemetry service name")
	f.StringSliceVar(&metadataHeaders, "metadata-header", nil, "forward HTTP header into resolver metadata; repeatable")
	f.StringSliceVar(&corsOrigins, "cors-origin", nil, "allowed CORS origin; repeatable")
	return cmd
}

func (a *app) serve(ctx context.Context, metadataHeaders, corsOrigins []string) error {
	cfg := a.cfg

	shutdownTracing, err := otel.Setup(cfg.OTel.Endpoint, cfg.OTel.Service)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	m := metrics.New()
	defer m.Subscribe()()

	b, err := a.newBackend()
	if err != nil {
		return err
	}

	sopts := []server.Option{
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithGraphiQL(cfg.Server.GraphiQL),
	}
	if cfg.Server.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if len(metadataHeaders) > 0 {
		sopts = append(sopts, server.WithMetadataHeaders(metadataHeaders...))
	}
	if len(corsOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(corsOrigins...))
	}
	h, err := server.New(b, sopts...)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)
	mux.Handle("/metrics", m.Handler())
	httpServer := &http.Server{Addr: cfg.Server.Addr, Handler: mux}

	// Bind both listeners before starting either server.
	httpLis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return err
	}
	var grpcLis net.Listener
	if cfg.GRPC.Addr != "" {
		grpcLis, err = net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			_ = httpLis.Close()
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("http listening", zap.String("addr", httpLis.Addr().String()))
		if err := httpServer.Serve(httpLis); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	var grpcServer *grpc.Server
	if grpcLis != nil {
		grpcServer = grpc.NewServer()
		grpcsrv.Register(grpcServer, b)
		g.Go(func() error {
			a.log.Info("grpc listening", zap.String("addr", grpcLis.Addr().String()))
			return grpcServer.Serve(grpcLis)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		a.log.Info("shutting down")
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(sctx)
	})
	return g.Wait()
}
