package api

import (
	"net/http"
	"time"
)

// HealthDependencies reports readiness and runtime statistics.
type HealthDependencies interface {
	ModelLoaded() bool
	GetStats() map[string]any
}

// HealthHandler serves /healthz and /stats.
type HealthHandler struct {
	deps    HealthDependencies
	started time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps HealthDependencies) *HealthHandler {
	return &HealthHandler{deps: deps, started: time.Now()}
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", ModelLoaded: h.deps.ModelLoaded()})
}

// HandleStats handles GET /stats requests. The service statistics are
// returned with the handler's uptime added.
func (h *HealthHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats := h.deps.GetStats()
	if stats == nil {
		stats = make(map[string]any, 1)
	}
	stats["uptime_seconds"] = int64(time.Since(h.started).Seconds())
	writeJSON(w, http.StatusOK, stats)
}
