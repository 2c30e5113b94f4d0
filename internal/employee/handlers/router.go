package handlers

import (
	"net/http"

	"github.com/gartstein/empleados/internal/employee/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterConfig carries the HTTP settings the router needs.
type RouterConfig struct {
	AllowedOrigins []string
	BodyLimitBytes int64
}

// NewRouter assembles the middleware chain, the operational routes and the
// /api/v1 employee routes. gatherer may be nil, in which case /metrics is
// not mounted.
func NewRouter(
	cfg RouterConfig,
	employees *EmployeeHandler,
	health *HealthChecker,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(Instrument(m))
	r.Use(BodyLimit(cfg.BodyLimitBytes))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", health.LivenessHandler)
	r.Get("/readyz", health.ReadinessHandler)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", employees.RegisterRoutes)
	return r
}
