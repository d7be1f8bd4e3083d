package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports reachability of a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles liveness and readiness probes.
type HealthHandler struct {
	db       Pinger
	provider Pinger
}

// NewHealthHandler creates a health handler. provider may be nil when the
// chat provider is not configured.
func NewHealthHandler(db, provider Pinger) *HealthHandler {
	return &HealthHandler{db: db, provider: provider}
}

// Root handles GET /
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the AI QA Backend"})
}

// Health handles GET /health: process liveness only.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /ready: dependency reachability.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok"}
	ready := true

	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = "unreachable"
		ready = false
	}

	if h.provider != nil {
		checks["chat_provider"] = "ok"
		if err := h.provider.Ping(ctx); err != nil {
			checks["chat_provider"] = "unreachable"
			// Provider outage degrades reconciliation but the API itself
			// still serves; readiness stays up.
		}
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"ready": ready, "checks": checks})
}
