package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"fiidy/internal/config"
)

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	started time.Time
	runs    RunService
	logger  *slog.Logger
	now     func() time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(runs RunService, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		started: time.Now(),
		runs:    runs,
		logger:  logger.With(slog.String("handler", "health")),
		now:     time.Now,
	}
}

// Routes sets up the health routes
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", h.HealthCheck)
	r.Get("/livez", h.LivenessCheck)
	r.Get("/version", h.Version)
	return r
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status     string    `json:"status"`
	Version    string    `json:"version"`
	Uptime     string    `json:"uptime"`
	Timestamp  time.Time `json:"timestamp"`
	RunActive  bool      `json:"run_active"`
	LastRunErr string    `json:"last_run_error,omitempty"`
}

// HealthCheck handles GET /healthz. A failed last run degrades the status
// but keeps answering 200 so the scheduler is not restarted for it.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	resp := HealthResponse{
		Status:    "ok",
		Version:   config.AppVersion,
		Uptime:    now.Sub(h.started).Round(time.Second).String(),
		Timestamp: now,
	}
	if last, ok := h.runs.LastRun(); ok {
		resp.RunActive = last.Running
		if last.Error != "" {
			resp.Status = "degraded"
			resp.LastRunErr = last.Error
		}
	}
	render.JSON(w, r, resp)
}

// LivenessCheck handles GET /livez
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "alive"})
}

// Version handles GET /version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"name":    config.AppName,
		"version": config.AppVersion,
	})
}
