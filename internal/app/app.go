package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"fiidy/internal/config"
	apierrors "fiidy/internal/errors"
	customMiddleware "fiidy/internal/middleware"
	handlers "fiidy/internal/transport/http"
)

// Application is the long-running server: the HTTP surface plus the
// periodic scheduler.
type Application struct {
	Config     *config.Config
	Components *Components
	Router     *chi.Mux
	Server     *http.Server
	Logger     *slog.Logger
}

// NewApplication wires the server around already built components.
func NewApplication(cfg *config.Config, components *Components, logger *slog.Logger) *Application {
	a := &Application{
		Config:     cfg,
		Components: components,
		Logger:     logger,
	}
	a.setupRouter()
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return a
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Telemetry.Environment == "development")
	runs := runService{runner: a.Components.Runner, freshnessLimited: a.Config.Search.FreshnessLimited}

	// RequestID → OTel → Logger → Recoverer
	r.Use(customMiddleware.RequestID)
	if otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.Components.Providers); err != nil {
		a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
	} else {
		r.Use(otelMiddleware.Handler)
	}
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger, errorHandler))
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	health := handlers.NewHealthHandler(runs, a.Logger)
	r.Get("/healthz", health.HealthCheck)
	r.Get("/livez", health.LivenessCheck)
	r.Get("/version", health.Version)
	if a.Components.Providers.PrometheusHTTP != nil {
		r.Handle("/metrics", a.Components.Providers.PrometheusHTTP)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		if a.Config.Server.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Server.RateLimit.RPS,
				a.Config.Server.RateLimit.Burst,
				a.Logger,
				errorHandler,
			).Handler)
		}

		validation := customMiddleware.NewValidationMiddleware(a.Components.Runner.layout.TickerPattern, a.Logger, errorHandler)
		r.Use(customMiddleware.ContentTypeValidator(errorHandler, "application/json"))
		r.Use(validation.ValidateRequest)
		r.Mount("/runs", handlers.NewRunsHandler(runs, validation, errorHandler, a.Logger).Routes())
	})

	a.Router = r
}

// Start starts the HTTP server and the scheduler. Server failures cancel
// ctx through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.Duration("schedule", a.Config.Server.Schedule))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	go a.Components.Runner.Schedule(ctx, a.Config.Server.Schedule, a.scheduledRunOptions())
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	if err := a.Components.Close(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error releasing components", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
	}
	cancel()
	return a.Stop(ctx)
}

// scheduledRunOptions covers the whole master list under the configured
// freshness window.
func (a *Application) scheduledRunOptions() RunOptions {
	return RunOptions{FreshnessLimited: a.Config.Search.FreshnessLimited}
}

// runService adapts Runner to the HTTP handlers.
type runService struct {
	runner           *Runner
	freshnessLimited bool
}

func (s runService) options(req handlers.RunRequest) RunOptions {
	return RunOptions{
		Tickers:          req.Tickers,
		FreshnessLimited: req.LimitedOr(s.freshnessLimited),
		Resume:           req.Resume,
	}
}

func (s runService) StartRun(ctx context.Context, req handlers.RunRequest) (string, error) {
	return s.runner.Start(ctx, s.options(req))
}

func (s runService) LastRun() (handlers.RunView, bool) {
	st, ok := s.runner.Status()
	if !ok {
		return handlers.RunView{}, false
	}
	return handlers.RunView{
		TraceID: st.TraceID,
		Running: st.Running,
		Started: st.Started,
		Error:   st.Error,
		Result:  st.Result,
	}, true
}
