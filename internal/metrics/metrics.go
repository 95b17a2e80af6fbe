// Package metrics exports Prometheus metrics derived from server events.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eventbus "github.com/hanpama/gqljit/internal/eventbus"
	events "github.com/hanpama/gqljit/internal/events"
)

const namespace = "gqljit"

// Metrics holds the collectors fed by the event bus.
type Metrics struct {
	registry *prometheus.Registry

	compilations    *prometheus.CounterVec
	compileDuration prometheus.Histogram
	fallbacks       *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	operations      *prometheus.CounterVec
	opDuration      *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	grpcRequests    *prometheus.CounterVec
}

// New creates collectors registered on a fresh registry that also carries
// the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		compilations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_prepared_total",
			Help:      "Documents prepared by the backend, by outcome.",
		}, []string{"outcome"}),
		compileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compile_duration_seconds",
			Help:      "Time spent preparing a document.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Documents routed to the generic executor, by reason.",
		}, []string{"reason"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_cache_lookups_total",
			Help:      "Document cache lookups, by result.",
		}, []string{"result"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Executed operations, by type and executor.",
		}, []string{"type", "executor", "status"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Operation latency including preparation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"executor"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by status code.",
		}, []string{"code"}),
		grpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "gRPC requests, by status code.",
		}, []string{"code"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.compilations,
		m.compileDuration,
		m.fallbacks,
		m.cacheLookups,
		m.operations,
		m.opDuration,
		m.httpRequests,
		m.grpcRequests,
	)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func executorLabel(compiled bool) string {
	if compiled {
		return "compiled"
	}
	return "generic"
}

// Subscribe feeds the collectors from the global bus until the returned
// function is called.
func (m *Metrics) Subscribe() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(_ context.Context, e events.CompileFinish) {
			outcome := executorLabel(e.Compiled)
			if e.Err != nil {
				outcome = "error"
			}
			m.compilations.WithLabelValues(outcome).Inc()
			m.compileDuration.Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(_ context.Context, e events.Fallback) {
			m.fallbacks.WithLabelValues(e.Reason).Inc()
		}),
		eventbus.Subscribe(func(_ context.Context, e events.DocumentCacheLookup) {
			result := "miss"
			if e.Hit {
				result = "hit"
			}
			m.cacheLookups.WithLabelValues(result).Inc()
		}),
		eventbus.Subscribe(func(_ context.Context, e events.GraphQLFinish) {
			status := "ok"
			if len(e.Errors) > 0 {
				status = "error"
			}
			opType := e.OperationType
			if opType == "" {
				opType = "unknown"
			}
			m.operations.WithLabelValues(opType, executorLabel(e.Compiled), status).Inc()
			m.opDuration.WithLabelValues(executorLabel(e.Compiled)).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
			m.httpRequests.WithLabelValues(strconv.Itoa(e.Status)).Inc()
		}),
		eventbus.Subscribe(func(_ context.Context, e events.GRPCServerFinish) {
			m.grpcRequests.WithLabelValues(e.Code.String()).Inc()
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
