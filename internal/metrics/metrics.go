// Package metrics exposes Prometheus metrics for import runs.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/ticketbatch/internal/core"
)

// Registry holds the import metrics on a private Prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	RunsTotal         *prometheus.CounterVec // by status and failed_phase
	RunDurationSec    prometheus.Histogram
	ChunksCommitted   prometheus.Counter
	ChunksFailed      prometheus.Counter
	RecordsWritten    prometheus.Counter
	ChunkLatencySec   prometheus.Histogram
	FilesArchived     prometheus.Counter
	LastSuccessSecond prometheus.Gauge
}

// NewRegistry creates and registers all metrics.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ticket_import_runs_total",
		Help: "Finished import runs by terminal status and failed phase.",
	}, []string{"status", "failed_phase"})
	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ticket_import_run_duration_seconds",
		Help:    "Wall time of finished runs.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
	})
	chunksCommitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ticket_import_chunks_committed_total",
		Help: "Chunks committed to the store.",
	})
	chunksFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ticket_import_chunks_failed_total",
		Help: "Chunks rolled back.",
	})
	recordsWritten := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ticket_import_records_written_total",
		Help: "Records committed to the store.",
	})
	chunkLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ticket_import_chunk_write_seconds",
		Help:    "Latency of chunk writes.",
		Buckets: prometheus.DefBuckets,
	})
	filesArchived := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ticket_import_files_archived_total",
		Help: "Source files moved to the archive directory.",
	})
	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ticket_import_last_success_timestamp_seconds",
		Help: "Unix time of the last successful run.",
	})

	r.MustRegister(runs, runDuration, chunksCommitted, chunksFailed, recordsWritten, chunkLatency, filesArchived, lastSuccess)
	return &Registry{
		reg:               r,
		RunsTotal:         runs,
		RunDurationSec:    runDuration,
		ChunksCommitted:   chunksCommitted,
		ChunksFailed:      chunksFailed,
		RecordsWritten:    recordsWritten,
		ChunkLatencySec:   chunkLatency,
		FilesArchived:     filesArchived,
		LastSuccessSecond: lastSuccess,
	}
}

// Hooks returns pipeline hooks that feed the registry.
func (r *Registry) Hooks() core.Hooks {
	return core.Hooks{
		ChunkCommitted: func(_ context.Context, s core.ChunkStats) {
			r.ChunksCommitted.Inc()
			r.RecordsWritten.Add(float64(s.Size))
			r.ChunkLatencySec.Observe(s.Duration.Seconds())
		},
		ChunkFailed: func(_ context.Context, s core.ChunkStats, _ error) {
			r.ChunksFailed.Inc()
			r.ChunkLatencySec.Observe(s.Duration.Seconds())
		},
		FileArchived: func(context.Context, string) {
			r.FilesArchived.Inc()
		},
		RunFinished: func(_ context.Context, run core.Run) {
			r.RunsTotal.WithLabelValues(string(run.State), string(run.FailedPhase)).Inc()
			r.RunDurationSec.Observe(run.Duration().Seconds())
			if run.Succeeded() {
				r.LastSuccessSecond.Set(float64(run.FinishedAt.Unix()))
			}
		},
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
