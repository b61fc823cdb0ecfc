package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/ticketbatch/internal/config"
	"github.com/JonMunkholm/ticketbatch/internal/core"
)

// openTestDB connects to TEST_DATABASE_URL or skips the test.
func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := Open(ctx, config.DatabaseConfig{
		URL:             dbURL,
		MaxConns:        2,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: time.Minute,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(pool.Close)

	if err := EnsureSchema(ctx, pool); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE ticket_imports, import_runs RESTART IDENTITY`); err != nil {
		t.Fatal(err)
	}
	return pool
}

func TestIntegration_ChunkAtomicity(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()

	for _, mode := range []WriteMode{WriteModeCopy, WriteModeInsert} {
		t.Run(string(mode), func(t *testing.T) {
			if _, err := pool.Exec(ctx, `TRUNCATE ticket_imports`); err != nil {
				t.Fatal(err)
			}
			w, err := NewChunkWriter(pool, mode, 200)
			if err != nil {
				t.Fatal(err)
			}

			if err := w.WriteChunk(ctx, core.Chunk{Seq: 1, Records: testRecords(200)}); err != nil {
				t.Fatalf("WriteChunk(1) error = %v", err)
			}

			// The check constraint rejects the last row; nothing of chunk 2 may remain.
			bad := testRecords(50)
			bad[49].Amount, _ = core.ParseDecimal("-1")
			err = w.WriteChunk(ctx, core.Chunk{Seq: 2, Records: bad})
			var pe *core.PersistenceError
			if !errors.As(err, &pe) {
				t.Fatalf("WriteChunk(2) error = %v, want *PersistenceError", err)
			}

			n, err := CountTickets(ctx, pool)
			if err != nil {
				t.Fatal(err)
			}
			if n != 200 {
				t.Errorf("stored rows = %d, want 200", n)
			}
		})
	}
}

func TestIntegration_RunStore(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	runs := NewRunStore(pool)

	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	first, err := runs.CreateRun(ctx, core.Run{ExecutionID: uuid.New(), State: core.StateNotStarted, StartedAt: started})
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	second, err := runs.CreateRun(ctx, core.Run{ExecutionID: uuid.New(), State: core.StateNotStarted, StartedAt: started})
	if err != nil {
		t.Fatal(err)
	}
	if second <= first {
		t.Errorf("run ids %d, %d not increasing", first, second)
	}

	update := core.Run{
		ID:          first,
		State:       core.StateJobFailed,
		FailedPhase: core.StateArchiveFailed,
		Error:       "archival error: move b.csv: destination file already exists",
		Import: core.ImportResult{
			Files:          []string{"a.csv", "b.csv"},
			RecordsRead:    450,
			RecordsWritten: 450,
			ChunkSizes:     []int{200, 200, 50},
		},
		Archive:    core.ArchiveResult{Moved: []string{"a.csv"}},
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
	}
	if err := runs.UpdateRun(ctx, update); err != nil {
		t.Fatalf("UpdateRun() error = %v", err)
	}

	got, err := runs.GetRun(ctx, first)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.State != core.StateJobFailed || got.FailedPhase != core.StateArchiveFailed {
		t.Errorf("state = %s/%s", got.State, got.FailedPhase)
	}
	if got.Import.ChunksCommitted() != 3 || got.Import.RecordsWritten != 450 {
		t.Errorf("import = %+v", got.Import)
	}
	if len(got.Archive.Moved) != 1 || got.Duration() != time.Minute {
		t.Errorf("archive = %+v, duration = %v", got.Archive, got.Duration())
	}

	list, err := runs.ListRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("ListRuns() = %d runs, want 2", len(list))
	}
	if list[0].ID != second {
		t.Errorf("ListRuns() first id = %d, want newest %d", list[0].ID, second)
	}

	if _, err := runs.GetRun(ctx, 9999); !errors.Is(err, core.ErrRunNotFound) {
		t.Errorf("GetRun(unknown) error = %v, want ErrRunNotFound", err)
	}
	if err := runs.UpdateRun(ctx, core.Run{ID: 9999, State: core.StateImportRunning}); !errors.Is(err, core.ErrRunNotFound) {
		t.Errorf("UpdateRun(unknown) error = %v, want ErrRunNotFound", err)
	}
}

func TestDatabaseName(t *testing.T) {
	if got := DatabaseName("postgres://u:p@localhost:5432/tickets?sslmode=disable"); got != "tickets" {
		t.Errorf("DatabaseName() = %q, want tickets", got)
	}
}
