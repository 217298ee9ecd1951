package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const healthCheckTimeout = 5 * time.Second

// Pinger is a dependency the health check can probe, such as the session store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health returns the status of the client and its session store. An
// unreachable store degrades the status to 503; a dropped connection does
// not, since the client reconnects on its own.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok", "transport": "disconnected", "database": "disabled"}
	if h.state.Connected() {
		checks["transport"] = "connected"
	}

	status := "healthy"
	statusCode := http.StatusOK
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Error("Health check failed", "error", err)
			checks["database"] = "unreachable"
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}

	JSON(w, statusCode, map[string]any{"status": status, "checks": checks})
}

// RegisterHealth registers the health route.
func (h *Handler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
