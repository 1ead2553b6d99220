package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// readyTimeout bounds the total time spent probing dependencies.
const readyTimeout = 5 * time.Second

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	db     HealthChecker
	cache  HealthChecker
	media  HealthChecker
	logger *slog.Logger
}

// NewHealthHandler creates a new HealthHandler.
// Pass nil for any dependency that is not configured.
func NewHealthHandler(db, cache, media HealthChecker, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		cache:  cache,
		media:  media,
		logger: logger,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is a liveness probe endpoint. It does not touch dependencies.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz checks PostgreSQL, Redis and the media bucket and returns 200 only
// if every configured dependency answers.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := make(map[string]string, 3)
	healthy := true

	for _, dep := range []struct {
		name    string
		checker HealthChecker
	}{
		{"postgres", h.db},
		{"redis", h.cache},
		{"media", h.media},
	} {
		if dep.checker == nil {
			checks[dep.name] = "not configured"
			continue
		}
		if err := dep.checker.Ping(ctx); err != nil {
			// Driver errors can embed connection strings; keep them in the log.
			h.logger.Warn("readiness check failed", "dependency", dep.name, "error", err)
			checks[dep.name] = "unavailable"
			healthy = false
			continue
		}
		checks[dep.name] = "ok"
	}

	status := "ok"
	statusCode := http.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, HealthResponse{
		Status: status,
		Checks: checks,
	})
}
