package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// DefaultChunkSize is the number of records committed per chunk when the
// caller does not configure one.
const DefaultChunkSize = 200

// Record is one imported line.
type Record struct {
	IdentityCode   string
	HolderName     string
	BirthDate      time.Time
	EventName      string
	EventDate      time.Time
	TicketCategory string
	Amount         pgtype.Numeric

	// Set by the Transformer, never read from input.
	ImportedAt time.Time
	AdminFee   pgtype.Numeric

	// Provenance for error reporting. Not persisted.
	Source string
	Line   int
}

// Chunk is an ordered batch of records persisted as one atomic unit.
type Chunk struct {
	Seq     int // 1-based position within the run
	Records []Record
}

// Len returns the number of records in the chunk.
func (c Chunk) Len() int {
	return len(c.Records)
}

// ChunkWriter persists a chunk atomically: either every record becomes
// visible or none does. Implementations report failures as *PersistenceError.
type ChunkWriter interface {
	WriteChunk(ctx context.Context, chunk Chunk) error
}

// ChunkWriterFunc adapts a plain function to the ChunkWriter interface.
type ChunkWriterFunc func(ctx context.Context, chunk Chunk) error

func (f ChunkWriterFunc) WriteChunk(ctx context.Context, chunk Chunk) error {
	return f(ctx, chunk)
}

// State is a position in the run state machine.
type State string

const (
	StateNotStarted     State = "NOT_STARTED"
	StateImportRunning  State = "IMPORT_RUNNING"
	StateImportOK       State = "IMPORT_OK"
	StateImportFailed   State = "IMPORT_FAILED"
	StateArchiveRunning State = "ARCHIVE_RUNNING"
	StateArchiveOK      State = "ARCHIVE_OK"
	StateArchiveFailed  State = "ARCHIVE_FAILED"
	StateJobSucceeded   State = "JOB_SUCCEEDED"
	StateJobFailed      State = "JOB_FAILED"
)

// transitions lists the legal successors of every state.
var transitions = map[State][]State{
	StateNotStarted:     {StateImportRunning},
	StateImportRunning:  {StateImportOK, StateImportFailed},
	StateImportOK:       {StateArchiveRunning, StateJobSucceeded},
	StateImportFailed:   {StateJobFailed},
	StateArchiveRunning: {StateArchiveOK, StateArchiveFailed},
	StateArchiveOK:      {StateJobSucceeded},
	StateArchiveFailed:  {StateJobFailed},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateJobSucceeded || s == StateJobFailed
}

// ImportResult summarizes an import step.
type ImportResult struct {
	Files          []string
	RecordsRead    int
	RecordsWritten int
	ChunkSizes     []int // committed chunks, in order
}

// ChunksCommitted returns the number of committed chunks.
func (r ImportResult) ChunksCommitted() int {
	return len(r.ChunkSizes)
}

// ArchiveResult summarizes an archive step.
type ArchiveResult struct {
	Moved []string
}

// Run is one execution of the import-then-archive pipeline.
type Run struct {
	ID          int64
	ExecutionID uuid.UUID
	State       State
	FailedPhase State  // IMPORT_FAILED or ARCHIVE_FAILED when State is JOB_FAILED
	Error       string // message of the error that failed the run
	ErrorCode   string // MapError code of that error
	Import      ImportResult
	Archive     ArchiveResult
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Status returns the terminal status of the run, or "" while it is running.
func (r Run) Status() string {
	if r.State.Terminal() {
		return string(r.State)
	}
	return ""
}

// Succeeded reports whether the run reached JOB_SUCCEEDED.
func (r Run) Succeeded() bool {
	return r.State == StateJobSucceeded
}

// Duration returns how long the run took, or 0 while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunRepository persists run state. CreateRun must hand out strictly
// increasing identifiers.
type RunRepository interface {
	CreateRun(ctx context.Context, run Run) (int64, error)
	UpdateRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id int64) (Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// ChunkStats describes one chunk write attempt.
type ChunkStats struct {
	Seq      int
	Size     int
	Duration time.Duration
}

// Hooks receive pipeline events. Every field is optional.
type Hooks struct {
	ChunkCommitted func(ctx context.Context, stats ChunkStats)
	ChunkFailed    func(ctx context.Context, stats ChunkStats, err error)
	FileArchived   func(ctx context.Context, name string)
	RunFinished    func(ctx context.Context, run Run)
}

// MergeHooks fans every event out to each of hs in order.
func MergeHooks(hs ...Hooks) Hooks {
	return Hooks{
		ChunkCommitted: func(ctx context.Context, stats ChunkStats) {
			for _, h := range hs {
				h.chunkCommitted(ctx, stats)
			}
		},
		ChunkFailed: func(ctx context.Context, stats ChunkStats, err error) {
			for _, h := range hs {
				h.chunkFailed(ctx, stats, err)
			}
		},
		FileArchived: func(ctx context.Context, name string) {
			for _, h := range hs {
				h.fileArchived(ctx, name)
			}
		},
		RunFinished: func(ctx context.Context, run Run) {
			for _, h := range hs {
				h.runFinished(ctx, run)
			}
		},
	}
}

func (h Hooks) chunkCommitted(ctx context.Context, stats ChunkStats) {
	if h.ChunkCommitted != nil {
		h.ChunkCommitted(ctx, stats)
	}
}

func (h Hooks) chunkFailed(ctx context.Context, stats ChunkStats, err error) {
	if h.ChunkFailed != nil {
		h.ChunkFailed(ctx, stats, err)
	}
}

func (h Hooks) fileArchived(ctx context.Context, name string) {
	if h.FileArchived != nil {
		h.FileArchived(ctx, name)
	}
}

func (h Hooks) runFinished(ctx context.Context, run Run) {
	if h.RunFinished != nil {
		h.RunFinished(ctx, run)
	}
}
