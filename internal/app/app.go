// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/coffeemap/internal/config"
	"github.com/JakeFAU/coffeemap/internal/logging"
	"github.com/JakeFAU/coffeemap/internal/metrics"
	"github.com/JakeFAU/coffeemap/internal/progress"
	"github.com/JakeFAU/coffeemap/internal/progress/sinks"
)

// App holds the shared, long-lived services for one run: the logger, the
// progress hub, and the optional metrics server.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	hub     *progress.Hub
	metrics *http.Server
}

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetConfig returns the validated run configuration.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetProgress returns the emitter progress snapshots are published to.
func (a *App) GetProgress() progress.Emitter {
	return a.hub
}

// MetricsAddr returns the bound metrics address, or "" when disabled.
func (a *App) MetricsAddr() string {
	if a.metrics == nil {
		return ""
	}
	return a.metrics.Addr
}

// NewApp builds the logger, progress sinks, and metrics endpoint described by
// cfg. It fails fast if the metrics address cannot be bound.
func NewApp(_ context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, err
	}
	logging.Use(logger)
	logger.Info("Initializing application services...")

	var (
		progressSinks []progress.Sink
		logEvery      = cfg.Progress.LogEvery
	)
	if cfg.Progress.Terminal {
		term := sinks.NewTerminalSink(os.Stderr)
		if term.Live() {
			// The live table owns the terminal; only the summary is logged.
			logEvery = 0
		}
		progressSinks = append(progressSinks, term)
	}
	progressSinks = append(progressSinks, sinks.NewLogSink(logger, logEvery))

	a := &App{cfg: cfg, logger: logger}
	if cfg.Metrics.Addr != "" {
		promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
		if err != nil {
			return nil, fmt.Errorf("init prometheus sink: %w", err)
		}
		progressSinks = append(progressSinks, promSink)
		srv, err := startMetricsServer(cfg.Metrics.Addr, logger)
		if err != nil {
			return nil, err
		}
		a.metrics = srv
	}

	a.hub = progress.NewHub(progress.Config{
		FlushInterval: 250 * time.Millisecond,
		Logger:        logger,
	}, progressSinks...)

	logger.Info("Application services initialized successfully.")
	return a, nil
}

// NewRouter returns the metrics router.
func NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

func startMetricsServer(addr string, logger *zap.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics %s: %w", addr, err)
	}
	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           NewRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Starting metrics server", zap.String("addr", srv.Addr))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	return srv, nil
}

// Close flushes progress sinks, stops the metrics server, and syncs the
// logger. It is called after the command finishes execution.
func (a *App) Close(ctx context.Context) {
	a.logger.Info("Shutting down application services...")
	if err := a.hub.Close(ctx); err != nil {
		a.logger.Warn("Error closing progress hub", zap.Error(err))
	}
	if a.metrics != nil {
		if err := a.metrics.Shutdown(ctx); err != nil {
			a.logger.Warn("Error stopping metrics server", zap.Error(err))
		}
	}
	// Sync on a console logger returns ENOTTY/EINVAL on some platforms.
	_ = a.logger.Sync()
}
