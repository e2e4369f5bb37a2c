package http_handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
)

const readyTimeout = time.Second

// HealthHandler serves the ops probes. db is nil when the service runs on the
// in-memory store.
type HealthHandler struct {
	db *sql.DB
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Healthz handles GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready", "store": "memory"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		logger.WithCtx(r.Context()).Warn().Err(err).Msg("readiness_db_ping_failed")
		response.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"store":  "postgres",
			"error":  "database unavailable",
		})
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready", "store": "postgres"})
}
