package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker answers liveness and readiness checks and mirrors the
// readiness result into the gRPC health service.
type HealthChecker struct {
	db     Pinger
	grpc   *health.Server
	logger *zap.Logger
}

// NewHealthChecker creates a HealthChecker. grpcHealth may be nil.
func NewHealthChecker(db Pinger, grpcHealth *health.Server, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		db:     db,
		grpc:   grpcHealth,
		logger: logger.Named("health"),
	}
}

// Ready pings the database and updates the gRPC serving status.
func (hc *HealthChecker) Ready(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	err := hc.db.Ping(ctx)
	if err != nil {
		hc.logger.Warn("database ping failed", zap.Error(err))
	}
	if hc.grpc != nil {
		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hc.grpc.SetServingStatus("", status)
	}
	return err == nil
}

// LivenessHandler always answers 200.
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type readinessJSON struct {
	Database string `json:"database"`
}

// ReadinessHandler answers 200 when the database is reachable and 503 otherwise.
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	status, state := http.StatusOK, "ok"
	if !hc.Ready(r.Context()) {
		status, state = http.StatusServiceUnavailable, "unavailable"
	}
	writeJSON(w, hc.logger, status, readinessJSON{Database: state})
}
