package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/minjae-dev/study-planner-api/internal/repository"
)

// HealthHandler serves liveness and database health probes.
//
//   - GET /health     → process is up (no dependencies touched)
//   - GET /health/db  → database round-trip plus row counts
//
// The two are deliberately separate: an orchestrator restarting the process
// because the database is briefly unreachable makes things worse, not
// better. Liveness must stay cheap and dependency-free.
type HealthHandler struct {
	stats   repository.StatsRepository
	env     string
	started time.Time
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler. The start time anchors the
// uptime reported by the liveness probe.
func NewHealthHandler(stats repository.StatsRepository, env string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		stats:   stats,
		env:     env,
		started: time.Now(),
		logger:  logger,
	}
}

// HandleHealth reports process liveness.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": h.env,
		"uptime":      time.Since(h.started).Round(time.Second).String(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleHealthDB verifies database connectivity and reports the engine
// version and row counts. A failed ping returns 503 so load balancers can
// drain the instance.
func (h *HealthHandler) HandleHealthDB(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := h.stats.Ping(r.Context()); err != nil {
		h.logger.Error("database health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "error",
			"database": "unreachable",
		})
		return
	}
	latency := time.Since(start)

	counts, err := h.stats.Counts(r.Context())
	if err != nil {
		h.logger.Error("database stats query failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "error",
			"database": "stats query failed",
		})
		return
	}

	// Version failures are cosmetic, not a health signal.
	version, err := h.stats.Version(r.Context())
	if err != nil {
		version = "unknown"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"database":  "connected",
		"version":   version,
		"latencyMs": latency.Milliseconds(),
		"stats":     counts,
	})
}
