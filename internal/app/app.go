// Package app wires configuration into a ready-to-run import pipeline.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/ticketbatch/internal/config"
	"github.com/JonMunkholm/ticketbatch/internal/core"
	"github.com/JonMunkholm/ticketbatch/internal/metrics"
	"github.com/JonMunkholm/ticketbatch/internal/notify"
	"github.com/JonMunkholm/ticketbatch/internal/store"
)

// App holds the long-lived collaborators of a process.
type App struct {
	Pool         *pgxpool.Pool
	Runs         *store.RunStore
	Metrics      *metrics.Registry
	Orchestrator *core.Orchestrator

	publisher *notify.Publisher // nil when notifications are off
}

// Build connects to the database and assembles the pipeline described by cfg.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	slog.Info("connected to database", "name", store.DatabaseName(cfg.Database.URL))

	if cfg.Database.EnsureSchema {
		if err := store.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	writer, err := store.NewChunkWriter(pool, store.WriteMode(strings.ToLower(cfg.Import.WriteMode)), cfg.Import.ChunkSize)
	if err != nil {
		pool.Close()
		return nil, err
	}

	a := &App{
		Pool:    pool,
		Runs:    store.NewRunStore(pool),
		Metrics: metrics.NewRegistry(),
	}

	hooks := []core.Hooks{a.Metrics.Hooks()}
	if len(cfg.Notify.KafkaBrokers) > 0 {
		a.publisher, err = notify.NewPublisher(cfg.Notify.KafkaBrokers, cfg.Notify.KafkaTopic)
		if err != nil {
			pool.Close()
			return nil, err
		}
		hooks = append(hooks, a.publisher.Hooks())
		slog.Info("run notifications enabled", "topic", cfg.Notify.KafkaTopic)
	}

	a.Orchestrator, err = NewOrchestrator(cfg.Import, writer, a.Runs, core.MergeHooks(hooks...))
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// NewOrchestrator builds the import and archive steps from cfg around the
// given storage.
func NewOrchestrator(cfg config.ImportConfig, writer core.ChunkWriter, runs core.RunRepository, hooks core.Hooks) (*core.Orchestrator, error) {
	fees, err := core.ParseFeeSchedule(cfg.Fees, cfg.DefaultFee)
	if err != nil {
		return nil, fmt.Errorf("fee schedule: %w", err)
	}

	importer, err := core.NewImportStep(core.ImportStepConfig{
		SourceDir: cfg.SourceDir,
		Extension: cfg.Extension,
		ChunkSize: cfg.ChunkSize,
	}, core.NewParser(cfg.Delimiter, cfg.CommentPrefix), core.NewTransformer(fees, nil), writer, hooks)
	if err != nil {
		return nil, err
	}

	opts := []core.OrchestratorOption{
		core.WithHooks(hooks),
		core.WithTimeout(cfg.Timeout),
	}
	if cfg.ArchiveEnabled {
		archiver, err := core.NewArchiveStep(cfg.SourceDir, cfg.ArchiveDir, cfg.Extension, hooks)
		if err != nil {
			return nil, err
		}
		opts = append(opts, core.WithArchiver(archiver))
	}

	return core.NewOrchestrator(runs, importer, opts...), nil
}

// Close releases the publisher and the pool.
func (a *App) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			slog.Warn("closing notification publisher", "error", err)
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
