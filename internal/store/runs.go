package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/ticketbatch/internal/core"
)

const runColumns = `
	id, execution_id, state, failed_phase, error, error_code,
	input_files, records_read, records_written, chunk_sizes, archived_files,
	started_at, finished_at`

// RunStore persists runs in import_runs.
type RunStore struct {
	db DBTX
}

// NewRunStore creates a run store.
func NewRunStore(db DBTX) *RunStore {
	return &RunStore{db: db}
}

// CreateRun inserts run and returns its new id.
func (s *RunStore) CreateRun(ctx context.Context, run core.Run) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO import_runs (execution_id, state, started_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, run.ExecutionID, string(run.State), run.StartedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// UpdateRun overwrites the mutable fields of run.
func (s *RunStore) UpdateRun(ctx context.Context, run core.Run) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE import_runs SET
			state = $2,
			status = $3,
			failed_phase = $4,
			error = $5,
			error_code = $6,
			input_files = $7,
			records_read = $8,
			records_written = $9,
			chunk_sizes = $10,
			archived_files = $11,
			finished_at = $12
		WHERE id = $1
	`,
		run.ID,
		string(run.State),
		run.Status(),
		string(run.FailedPhase),
		run.Error,
		run.ErrorCode,
		nonNil(run.Import.Files),
		run.Import.RecordsRead,
		run.Import.RecordsWritten,
		toInt32s(run.Import.ChunkSizes),
		nonNil(run.Archive.Moved),
		core.ToPgTimestamptz(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("update run %d: %w", run.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update run %d: %w", run.ID, core.ErrRunNotFound)
	}
	return nil
}

// GetRun loads one run.
func (s *RunStore) GetRun(ctx context.Context, id int64) (core.Run, error) {
	row := s.db.QueryRow(ctx, `SELECT `+runColumns+` FROM import_runs WHERE id = $1`, id)

	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Run{}, core.ErrRunNotFound
	}
	if err != nil {
		return core.Run{}, fmt.Errorf("get run %d: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]core.Run, error) {
	rows, err := s.db.Query(ctx, `SELECT `+runColumns+` FROM import_runs ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (core.Run, error) {
	var (
		run        core.Run
		state      string
		phase      string
		chunks     []int32
		finishedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&run.ID,
		&run.ExecutionID,
		&state,
		&phase,
		&run.Error,
		&run.ErrorCode,
		&run.Import.Files,
		&run.Import.RecordsRead,
		&run.Import.RecordsWritten,
		&chunks,
		&run.Archive.Moved,
		&run.StartedAt,
		&finishedAt,
	)
	if err != nil {
		return core.Run{}, err
	}

	run.State = core.State(state)
	run.FailedPhase = core.State(phase)
	for _, c := range chunks {
		run.Import.ChunkSizes = append(run.Import.ChunkSizes, int(c))
	}
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	return run, nil
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func toInt32s(in []int) []int32 {
	out := make([]int32, len(in))
	for i, v := range in {
		out[i] = int32(v)
	}
	return out
}
