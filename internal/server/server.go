// Package server provides the service lifecycle runner: signal handling,
// config loading, observability init, health checks, and graceful shutdown.
// The composition root plugs its routes in through Params.Setup.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/roomshare/roomshare-api/internal/config"
	"github.com/roomshare/roomshare-api/internal/domain"
	"github.com/roomshare/roomshare-api/internal/middleware"
	"github.com/roomshare/roomshare-api/internal/observability"
)

const serviceVersion = "0.1.0"

// SetupDeps is what Run hands the composition root.
type SetupDeps struct {
	Config *config.Config
	Logger *slog.Logger
	Router *mux.Router
}

// SetupFunc builds the service's adapters and registers its routes. The
// returned cleanup runs after the HTTP server has drained.
type SetupFunc func(ctx context.Context, deps SetupDeps) (cleanup func(context.Context) error, err error)

// Params configures a service's lifecycle runner.
type Params struct {
	// Name identifies the service in logs and telemetry.
	Name string

	// Setup is optional; without it only /healthz is served.
	Setup SetupFunc
}

// Run executes the full service lifecycle. If ln is non-nil, it is used
// instead of creating a new listener from config (enables port-0 testing).
func Run(ctx context.Context, p Params, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: p.Name,
		Environment: cfg.Environment,
	})

	// --- Startup order: telemetry -> setup -> HTTP server ---

	telemetry, err := observability.InitTelemetry(ctx, observability.TelemetryConfig{
		ServiceName:    p.Name,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}

	var shuttingDown atomic.Bool

	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if shuttingDown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"shutting_down","service":%q}`, p.Name)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","service":%q}`, p.Name)
	}).Methods(http.MethodGet)

	cleanup := func(context.Context) error { return nil }
	if p.Setup != nil {
		c, err := p.Setup(ctx, SetupDeps{Config: cfg, Logger: logger, Router: router})
		if err != nil {
			shutdownTelemetry(logger, telemetry)
			return fmt.Errorf("setup: %w", err)
		}
		if c != nil {
			cleanup = c
		}
	}

	trusted, err := cfg.HTTP.TrustedProxyPrefixes()
	if err != nil {
		runCleanup(logger, cleanup)
		shutdownTelemetry(logger, telemetry)
		return fmt.Errorf("trusted proxies: %w", err)
	}

	if ln == nil {
		ln, err = (&net.ListenConfig{}).Listen(ctx, "tcp", fmt.Sprintf(":%d", cfg.HTTP.Port))
		if err != nil {
			runCleanup(logger, cleanup)
			shutdownTelemetry(logger, telemetry)
			return fmt.Errorf("listen: %w", err)
		}
	}

	server := &http.Server{
		Handler:      middleware.Recover(middleware.RealIP(trusted)(middleware.Logger(logger)(router))),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server",
			slog.String("addr", ln.Addr().String()),
			slog.String("environment", cfg.Environment),
		)
		if serveErr := server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}
		return nil
	})

	// Shutdown is the reverse of startup: HTTP -> setup cleanup -> telemetry.
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("received shutdown signal, starting graceful shutdown")

		// Health checks return 503 while the load balancer notices.
		shuttingDown.Store(true)
		time.Sleep(domain.ShutdownDrainDelay)

		httpCtx, httpCancel := context.WithTimeout(context.Background(), domain.ShutdownHTTPTimeout)
		defer httpCancel()
		if shutdownErr := server.Shutdown(httpCtx); shutdownErr != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", shutdownErr.Error()))
		}

		runCleanup(logger, cleanup)
		shutdownTelemetry(logger, telemetry)

		logger.Info("shutdown complete")
		return nil
	})

	return g.Wait()
}

func runCleanup(logger *slog.Logger, cleanup func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), domain.ShutdownHTTPTimeout)
	defer cancel()
	if err := cleanup(ctx); err != nil {
		logger.Error("service cleanup failed", slog.String("error", err.Error()))
	}
}

func shutdownTelemetry(logger *slog.Logger, t *observability.Telemetry) {
	ctx, cancel := context.WithTimeout(context.Background(), domain.ShutdownOTELTimeout)
	defer cancel()
	if err := t.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown telemetry", slog.String("error", err.Error()))
	}
}
