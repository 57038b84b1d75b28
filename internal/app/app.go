// Package app assembles the application: configuration, logging, stores,
// the analysis provider, the report service and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reportai/internal/analysis"
	"reportai/internal/config"
	apperrors "reportai/internal/errors"
	"reportai/internal/infrastructure"
	"reportai/internal/services"
	"reportai/internal/store"
	handlers "reportai/internal/transport/http"
)

const AppName = "ReportAI"

// Application is the dependency container for one server process.
type Application struct {
	Config  *config.Config
	Router  *chi.Mux
	Server  *http.Server
	Uploads *store.Store
	Outputs *store.Store
	Service *services.ReportService
	Logger  *slog.Logger

	sweepCancel context.CancelFunc
}

// NewApplication loads configuration and wires every component.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", handlers.Version),
		slog.Int("port", cfg.Server.Port))

	uploads, err := store.New(cfg.Storage.UploadsDir, cfg.Storage.TTL, cfg.Storage.SweepInterval, logger.With(slog.String("store", "uploads")))
	if err != nil {
		return nil, fmt.Errorf("failed to open uploads store: %w", err)
	}
	outputs, err := store.New(cfg.Storage.OutputsDir, cfg.Storage.TTL, cfg.Storage.SweepInterval, logger.With(slog.String("store", "outputs")))
	if err != nil {
		return nil, fmt.Errorf("failed to open outputs store: %w", err)
	}

	provider := selectProvider(cfg.AI, logger)
	requester := analysis.NewRequester(provider, logger, cfg.AI.Timeout, cfg.AI.MaxDigestCategories)

	metrics := services.NewMetrics()
	service := services.NewReportService(uploads, outputs, requester, metrics, cfg.Report, logger)

	app := &Application{
		Config:  cfg,
		Uploads: uploads,
		Outputs: outputs,
		Service: service,
		Logger:  logger,
	}
	app.setupRouter()
	app.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return app, nil
}

// selectProvider picks the OpenAI-backed provider when an API key is
// configured and the deterministic mock otherwise.
func selectProvider(cfg config.AIConfig, logger *slog.Logger) analysis.Provider {
	if cfg.APIKey == "" {
		logger.Warn("no AI API key configured, using mock analysis provider")
		return analysis.MockProvider{}
	}
	return analysis.NewOpenAIProvider(cfg, logger)
}

// setupRouter configures the HTTP router with all routes.
func (a *Application) setupRouter() {
	errorHandler := apperrors.NewErrorHandler(a.Logger)
	reportHandler := handlers.NewReportHandler(a.Service, a.Logger, errorHandler, a.Config.Server.MaxUploadBytes)
	healthHandler := handlers.NewHealthHandler()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.traceMiddleware)
	r.Use(a.requestLogger)
	r.Use(errorHandler.Middleware)

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Get("/healthz", healthHandler.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/api", reportHandler.Routes())

	a.Router = r
}

// traceMiddleware copies the chi request ID into the trace context so every
// log line carries it.
func (a *Application) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			r = r.WithContext(infrastructure.WithTraceID(r.Context(), reqID))
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Application) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.Logger.InfoContext(r.Context(), "request completed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)))
	})
}

// Run starts the sweeper and the HTTP server and blocks until the server
// stops listening.
func (a *Application) Run(ctx context.Context) error {
	sweepCtx, cancel := context.WithCancel(ctx)
	a.sweepCancel = cancel
	a.Uploads.StartSweeper(sweepCtx)
	a.Outputs.StartSweeper(sweepCtx)

	a.Logger.InfoContext(ctx, "server listening", slog.String("addr", a.Server.Addr))
	if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the server and background sweepers.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.sweepCancel != nil {
		a.sweepCancel()
	}
	a.Uploads.Close()
	a.Outputs.Close()

	if err := infrastructure.CloseLogFile(); err != nil {
		a.Logger.ErrorContext(ctx, "closing log file", slog.String("error", err.Error()))
	}
	return nil
}
