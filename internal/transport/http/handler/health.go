package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health-check endpoints. The "ready" action also
// probes the shared key-value store.
type HealthHandler struct {
	kv pinger
}

func NewHealthHandler(kv pinger) *HealthHandler { return &HealthHandler{kv: kv} }

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "ping":
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
	case "ready":
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if h.kv != nil {
			if err := h.kv.Ping(ctx); err != nil {
				writeError(w, http.StatusServiceUnavailable, "kv store unreachable")
				return
			}
		}
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "ready"})
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
