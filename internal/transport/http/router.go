package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"opodata/internal/middleware"
)

// RouterOptions configures the dataset server router.
type RouterOptions struct {
	Store  DatasetReader
	Logger *slog.Logger

	// Registry receives the HTTP metrics; nil creates a fresh one with the
	// standard process and Go collectors.
	Registry *prometheus.Registry

	// RequestsPerSecond caps the total request rate; 0 disables limiting.
	RequestsPerSecond float64
	Burst             int
}

// NewRouter assembles the middleware chain and routes of the dataset server.
func NewRouter(opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	metrics := middleware.NewMetrics(registry)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Compress(5))
	r.Use(metrics.Handler)
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		r.Use(middleware.NewRateLimiter(opts.RequestsPerSecond, burst, logger).Handler)
	}

	dataHandler := NewDataHandler(opts.Store, logger)
	healthHandler := NewHealthHandler(opts.Store, logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/version", healthHandler.Version)
		r.Mount("/", dataHandler.Routes())
	})
	r.Get("/healthz", healthHandler.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return r
}
