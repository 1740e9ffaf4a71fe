package handler

import (
	"net/http"
	"time"

	"bustrack/internal/hub"
	"bustrack/internal/store"
)

type HealthHandler struct {
	store store.JourneyStore
	hub   *hub.Hub
}

func NewHealthHandler(s store.JourneyStore, h *hub.Hub) *HealthHandler {
	return &HealthHandler{store: s, hub: h}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type ReadyResponse struct {
	Ready       bool      `json:"ready"`
	StoreOK     bool      `json:"storeOk"`
	ClientCount int       `json:"clientCount"`
	ServerTime  time.Time `json:"serverTime"`
}

// Readyz reports not-ready when the backing store stops answering pings.
// With the in-memory fallback store wired in this always reports ready.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	storeOK := h.store.Ping(r.Context()) == nil

	status := http.StatusOK
	if !storeOK {
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, ReadyResponse{
		Ready:       storeOK,
		StoreOK:     storeOK,
		ClientCount: h.hub.ClientCount(),
		ServerTime:  time.Now(),
	})
}
