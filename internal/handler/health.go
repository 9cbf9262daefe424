package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service liveness and dependency reachability.
type HealthHandler struct {
	db    Pinger
	redis *redis.Client
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient}
}

// Health handles GET /health. The database is required; the cache is
// reported but does not fail the check because the service degrades to
// uncached operation without it.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{
		"database": "ok",
		"cache":    "ok",
	}

	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = "unreachable"
		status = http.StatusServiceUnavailable
	}

	if h.redis == nil {
		checks["cache"] = "disabled"
	} else if err := h.redis.Ping(ctx).Err(); err != nil {
		checks["cache"] = "unreachable"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}

	WriteJSON(w, status, map[string]interface{}{
		"status": overall,
		"checks": checks,
	})
}
