package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "fiidy/internal/errors"
	"fiidy/internal/reconcile"
)

// RunService starts reconciliation runs and reports the last one.
type RunService interface {
	// StartRun returns apierrors.ErrRunInProgress while a run is going.
	StartRun(ctx context.Context, req RunRequest) (traceID string, err error)
	LastRun() (RunView, bool)
}

// StructValidator validates decoded request bodies.
type StructValidator interface {
	ValidateStruct(v interface{}) error
}

// RunRequest is the body of POST /api/v1/runs.
type RunRequest struct {
	Tickers []string `json:"tickers" validate:"omitempty,max=500,dive,ticker"`
	// FreshnessLimited defaults to search.freshness_limited; false backfills
	// older dividends.
	FreshnessLimited *bool `json:"freshness_limited,omitempty"`
	Resume           bool  `json:"resume,omitempty"`
}

// Limited reports whether the freshness window applies, true when unset.
func (r RunRequest) Limited() bool {
	return r.LimitedOr(true)
}

// LimitedOr is Limited with fallback for an unset field.
func (r RunRequest) LimitedOr(fallback bool) bool {
	if r.FreshnessLimited == nil {
		return fallback
	}
	return *r.FreshnessLimited
}

// RunView is the state of a run as exposed over HTTP.
type RunView struct {
	TraceID string            `json:"trace_id"`
	Running bool              `json:"running"`
	Started time.Time         `json:"started"`
	Error   string            `json:"error,omitempty"`
	Result  *reconcile.Result `json:"result,omitempty"`
}

// RunAccepted is the body of a 202 answer.
type RunAccepted struct {
	TraceID string `json:"trace_id"`
	Status  string `json:"status"`
}

// RunsHandler triggers and reports reconciliation runs.
type RunsHandler struct {
	runs      RunService
	validator StructValidator
	errors    *apierrors.ErrorHandler
	logger    *slog.Logger
}

// NewRunsHandler creates a runs handler.
func NewRunsHandler(runs RunService, validator StructValidator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *RunsHandler {
	return &RunsHandler{
		runs:      runs,
		validator: validator,
		errors:    errorHandler,
		logger:    logger.With(slog.String("handler", "runs")),
	}
}

// Routes mounts the runs endpoints.
func (h *RunsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Start)
	r.Get("/last", h.Last)
	return r
}

// Start handles POST /api/v1/runs
func (h *RunsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			h.errors.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	traceID, err := h.runs.StartRun(r.Context(), req)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "run accepted",
		slog.String("run_trace_id", traceID),
		slog.Int("tickers", len(req.Tickers)),
		slog.Any("freshness_limited", req.FreshnessLimited))

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, RunAccepted{TraceID: traceID, Status: "started"})
}

// Last handles GET /api/v1/runs/last
func (h *RunsHandler) Last(w http.ResponseWriter, r *http.Request) {
	last, ok := h.runs.LastRun()
	if !ok {
		h.errors.HandleError(w, r, apierrors.NotFoundError("run"))
		return
	}
	render.JSON(w, r, last)
}
