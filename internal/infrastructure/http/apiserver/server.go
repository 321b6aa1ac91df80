// Package apiserver provides the JSON API HTTP server
package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/alchemorsel/nutriplan/internal/infrastructure/config"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/monitoring"
	"github.com/alchemorsel/nutriplan/pkg/healthcheck"
)

// Server is the meal-plan API server
type Server struct {
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
	router  *chi.Mux
	api     *handlers.APIHandlers
	metrics *monitoring.MetricsCollector
	otel    *monitoring.OpenTelemetryProvider
	health  *healthcheck.HealthCheck
	limiter *middleware.RateLimiter
	openAPI *OpenAPIHandler
	stop    chan struct{}
}

// Dependencies groups the collaborators of the server. Metrics, Telemetry
// and Limiter are optional.
type Dependencies struct {
	API       *handlers.APIHandlers
	Health    *healthcheck.HealthCheck
	Metrics   *monitoring.MetricsCollector
	Telemetry *monitoring.OpenTelemetryProvider
	Limiter   *middleware.RateLimiter
}

// NewServer creates a new API server instance
func NewServer(cfg *config.Config, deps Dependencies, log *zap.Logger) *Server {
	s := &Server{
		config:  cfg,
		logger:  log.Named("api-server"),
		api:     deps.API,
		metrics: deps.Metrics,
		otel:    deps.Telemetry,
		health:  deps.Health,
		limiter: deps.Limiter,
		openAPI: NewOpenAPIHandler(log),
		stop:    make(chan struct{}),
	}

	s.router = s.setupRoutes()

	var handler http.Handler = s.router
	if s.otel != nil {
		handler = s.otel.InstrumentHTTPHandler(handler, cfg.App.Name)
	}

	s.server = &http.Server{
		Addr:           net.JoinHostPort(cfg.Server.Host, fmt.Sprintf("%d", cfg.Server.Port)),
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}
	return s
}

// setupRoutes configures the router
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Security())
	r.Use(middleware.CORS(s.config.Server.CORSOrigins))
	if s.metrics != nil {
		r.Use(s.metrics.HTTPMiddleware)
	}

	healthPath := s.config.Monitoring.HealthCheckPath
	if healthPath == "" {
		healthPath = "/health"
	}
	r.Get(healthPath, s.health.Handler())
	r.Get(healthPath+"/live", s.health.LivenessHandler())
	r.Get(healthPath+"/ready", s.health.ReadinessHandler())

	if s.metrics != nil && s.config.Monitoring.EnableMetrics {
		metricsPath := s.config.Monitoring.MetricsPath
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.Method(http.MethodGet, metricsPath, s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if s.config.Server.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(s.config.Server.RequestTimeout))
		}
		r.Use(middleware.BodyLimit(s.config.Server.MaxBodyBytes))
		r.Use(middleware.JSONOnly())

		r.Get("/openapi.yaml", s.openAPI.ServeSpec)
		r.Get("/docs", s.openAPI.ServeDocs)

		var solve []func(http.Handler) http.Handler
		if s.limiter != nil {
			solve = append(solve, s.limiter.Handler)
		}
		s.api.RegisterRoutes(r, solve...)
	})

	return r
}

// Handler returns the root handler, including tracing when enabled
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Shutdown. http.ErrServerClosed is not an error.
func (s *Server) Start() error {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))

	if s.limiter != nil {
		go s.limiter.Run(s.stop)
	}

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}

	if timeout := s.config.Server.ShutdownTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	err := s.server.Shutdown(ctx)
	s.logger.Info("API server stopped", zap.Duration("drain", time.Since(start)))
	return err
}
