package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/ticketbatch/internal/app"
	"github.com/JonMunkholm/ticketbatch/internal/config"
	"github.com/JonMunkholm/ticketbatch/internal/logging"
	"github.com/JonMunkholm/ticketbatch/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	a, err := app.Build(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	server := web.NewServer(web.Deps{
		Runner:  a.Orchestrator,
		Runs:    a.Runs,
		Metrics: a.Metrics.Handler(),
		Ping:    a.Pool.Ping,
	}, cfg.Server)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go a.Orchestrator.StartScheduler(jobCtx, cfg.Import.ScheduleInterval)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := drain(shutdownCtx, a.Orchestrator, server); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		a.Close()
		os.Exit(1)
	}

	// Start returns as soon as Shutdown begins; keep the pool open until the
	// active run has been recorded.
	<-done
	slog.Info("server stopped")
}

type runWaiter interface {
	Running() bool
	Wait(ctx context.Context) error
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// drain lets the active run reach its terminal state, then stops the HTTP
// server. A run still going when ctx expires is abandoned.
func drain(ctx context.Context, runs runWaiter, srv shutdowner) error {
	if runs.Running() {
		slog.Info("waiting for the active run to finish")
	}
	waitErr := runs.Wait(ctx)
	if waitErr != nil {
		waitErr = fmt.Errorf("wait for active run: %w", waitErr)
	}

	if err := srv.Shutdown(ctx); err != nil {
		return errors.Join(waitErr, fmt.Errorf("http shutdown: %w", err))
	}
	return waitErr
}
