// Command importer performs one import run and exits.
//
// Exit status is 0 when the run succeeded, 1 when it failed and 2 when it
// could not start.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/ticketbatch/internal/app"
	"github.com/JonMunkholm/ticketbatch/internal/config"
	"github.com/JonMunkholm/ticketbatch/internal/core"
	"github.com/JonMunkholm/ticketbatch/internal/logging"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitSetup  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Overload(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return exitSetup
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	// SIGINT stops the import between records; the run is still recorded.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		return exitSetup
	}
	defer a.Close()

	result, err := a.Orchestrator.Run(ctx)
	if result.ID == 0 {
		slog.Error("run could not start", "error", err)
		return exitSetup
	}

	if !result.Succeeded() {
		fmt.Fprintf(os.Stderr, "run %d failed in %s: %s\n", result.ID, result.FailedPhase, core.FormatUserError(err))
		return exitFailed
	}

	fmt.Printf("run %d succeeded: %d records in %d chunks, %d files archived\n",
		result.ID, result.Import.RecordsWritten, result.Import.ChunksCommitted(), len(result.Archive.Moved))
	return exitOK
}
