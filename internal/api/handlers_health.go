package api

import (
	"database/sql"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// ReadyResponse represents the readiness response
type ReadyResponse struct {
	Status string `json:"status" example:"ready"`
}

// HandleHealthz godoc
// @Summary Health check (liveness)
// @Description Always returns 200 OK if the service is running. Used for liveness probes.
// @Tags health
// @Produce plain
// @Success 200 {string} string "OK"
// @Router /healthz [get]
func HandleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("OK"))
	}
}

// HandleReadyz godoc
// @Summary Readiness check
// @Description Checks connectivity to the optional dependencies that are enabled (audit Postgres, cache Redis, asynq Redis). Returns 200 only when all enabled dependencies are reachable. With every optional dependency disabled the service is always ready.
// @Tags health
// @Produce json
// @Success 200 {object} ReadyResponse "All enabled dependencies ready"
// @Failure 503 {object} ErrorResponse "At least one dependency unavailable"
// @Router /readyz [get]
func HandleReadyz(db *sql.DB, cache, asynqRedis *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Message: "DB not ready"})
				return
			}
		}

		if cache != nil {
			if err := cache.Ping(r.Context()).Err(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Message: "Cache not ready"})
				return
			}
		}

		if asynqRedis != nil {
			if err := asynqRedis.Ping(r.Context()).Err(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Message: "Asynq Redis not ready"})
				return
			}
		}

		writeJSON(w, http.StatusOK, ReadyResponse{Status: "ready"})
	}
}
