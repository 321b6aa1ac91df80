// Package monitoring provides Prometheus metrics and OpenTelemetry setup
// for the optimizer and its HTTP transport.
package monitoring

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/alchemorsel/nutriplan/internal/domain/linprog"
)

const namespace = "nutriplan"

// MetricsCollector handles Prometheus metrics collection.
// It implements the optimizer's Recorder.
type MetricsCollector struct {
	registry *prometheus.Registry
	factory  promauto.Factory
	logger   *zap.Logger

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec

	// Optimizer metrics
	solvesTotal   *prometheus.CounterVec
	solveDuration *prometheus.HistogramVec
	plansTotal    *prometheus.CounterVec
	planEntries   prometheus.Histogram
}

// NewMetricsCollector creates a collector that registers into registry.
// A nil registry gets a fresh one with the Go and process collectors.
func NewMetricsCollector(registry *prometheus.Registry, logger *zap.Logger) *MetricsCollector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(registry)

	return &MetricsCollector{
		registry: registry,
		factory:  factory,
		logger:   logger.Named("metrics"),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),

		solvesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "solves_total",
				Help:      "Linear program solves by outcome status",
			},
			[]string{"status"},
		),
		solveDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "solve_duration_seconds",
				Help:      "Wall-clock time spent in the LP solver",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"status"},
		),
		plansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "plans_total",
				Help:      "Generated meal plans by kind",
			},
			[]string{"kind"},
		),
		planEntries: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "plan_entries",
				Help:      "Number of recipes per generated plan",
				Buckets:   []float64{0, 1, 2, 3, 4, 6, 8, 12},
			},
		),
	}
}

// Registry returns the registry metrics are registered in
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSolve records one solver call
func (m *MetricsCollector) ObserveSolve(status linprog.Status, elapsed time.Duration) {
	m.solvesTotal.WithLabelValues(string(status)).Inc()
	m.solveDuration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
}

// ObservePlan records one generated plan
func (m *MetricsCollector) ObservePlan(fallback bool, entries int) {
	kind := "optimal"
	if fallback {
		kind = "fallback"
	}
	m.plansTotal.WithLabelValues(kind).Inc()
	m.planEntries.Observe(float64(entries))
}

// RegisterCacheHitRatio exposes a cache tier's hit ratio, read on every scrape
func (m *MetricsCollector) RegisterCacheHitRatio(tier string, ratio func() float64) {
	m.factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "cache_hit_ratio",
			Help:        "Cache hit ratio",
			ConstLabels: prometheus.Labels{"tier": tier},
		},
		ratio,
	)
}

// RegisterDB exposes connection pool statistics for db
func (m *MetricsCollector) RegisterDB(db *sql.DB, name string) {
	m.registry.MustRegister(collectors.NewDBStatsCollector(db, name))
}

// HTTPMiddleware records request metrics labelled by chi route pattern
func (m *MetricsCollector) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		statusCode := strconv.Itoa(status)

		if r.ContentLength > 0 {
			m.httpRequestSize.WithLabelValues(r.Method, path).Observe(float64(r.ContentLength))
		}
		m.httpRequestsTotal.WithLabelValues(r.Method, path, statusCode).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, path, statusCode).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
