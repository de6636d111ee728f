package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerState reports the idempotency cache breaker state.
type BreakerState interface {
	State() string
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	db          Pinger
	redisClient *redis.Client
	cache       BreakerState
}

// NewHealthHandler creates a new HealthHandler. redisClient and cache may be
// nil when the cache is disabled.
func NewHealthHandler(db Pinger, redisClient *redis.Client, cache BreakerState) *HealthHandler {
	return &HealthHandler{
		db:          db,
		redisClient: redisClient,
		cache:       cache,
	}
}

// Liveness returns 200 if the service is alive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness returns 200 if the service is ready to accept traffic. Redis is
// optional: a failing cache degrades the report but not readiness.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "postgres unhealthy", err.Error())
		return
	}

	resp := map[string]string{
		"status":   "ready",
		"postgres": "ok",
		"redis":    "disabled",
	}

	if h.redisClient != nil {
		if err := h.redisClient.Ping(ctx).Err(); err != nil {
			resp["redis"] = "unavailable"
		} else {
			resp["redis"] = "ok"
		}
	}
	if h.cache != nil {
		resp["cache_breaker"] = h.cache.State()
	}

	writeJSON(w, http.StatusOK, resp)
}
