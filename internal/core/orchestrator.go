package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/ticketbatch/internal/logging"
)

// Importer is the ingestion phase of a run.
type Importer interface {
	Execute(ctx context.Context) (ImportResult, error)
}

// Archiver is the relocation phase of a run.
type Archiver interface {
	Execute(ctx context.Context) (ArchiveResult, error)
}

// Orchestrator sequences the import and archive phases of a run and records
// every state change in the run repository. One run at a time.
type Orchestrator struct {
	runs     RunRepository
	importer Importer
	archiver Archiver // nil disables the archive phase
	hooks    Hooks
	now      func() time.Time
	timeout  time.Duration // 0 means unbounded
	running  atomic.Bool

	mu   sync.Mutex
	done chan struct{} // closed when the latest run returns
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithArchiver enables the archive phase.
func WithArchiver(a Archiver) OrchestratorOption {
	return func(o *Orchestrator) { o.archiver = a }
}

// WithHooks sets the event hooks.
func WithHooks(h Hooks) OrchestratorOption {
	return func(o *Orchestrator) { o.hooks = h }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// WithTimeout bounds each run. The import step notices the deadline
// between records; a chunk already being written still completes.
func WithTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.timeout = d }
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(runs RunRepository, importer Importer, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		runs:     runs,
		importer: importer,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Running reports whether a run is in progress.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Wait blocks until the active run, if any, has returned, including its
// RunFinished hook. It returns ctx.Err() when ctx ends first.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes one run to a terminal state. The returned Run is always
// populated once the run was created; err is the error that failed it.
// ErrRunInProgress is returned without creating a run when another is active.
func (o *Orchestrator) Run(ctx context.Context) (run Run, err error) {
	o.mu.Lock()
	if !o.running.CompareAndSwap(false, true) {
		o.mu.Unlock()
		return Run{}, ErrRunInProgress
	}
	done := make(chan struct{})
	o.done = done
	o.mu.Unlock()

	defer close(done)
	defer o.running.Store(false)

	execID, err := uuid.NewV7()
	if err != nil {
		return Run{}, fmt.Errorf("generate execution id: %w", err)
	}

	run = Run{
		ExecutionID: execID,
		State:       StateNotStarted,
		StartedAt:   o.now().UTC(),
	}
	run.ID, err = o.runs.CreateRun(ctx, run)
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	ctx = logging.WithRun(ctx, run.ID, run.ExecutionID)
	logger := logging.FromContext(ctx)
	logger.Info("run started")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run panicked: %v", r)
			logger.Error("run panicked", "panic", r)
		}
		if err != nil {
			o.fail(ctx, &run, err)
		}
		o.hooks.runFinished(ctx, run)
	}()

	err = o.execute(ctx, &run)
	return run, err
}

// execute walks the state machine up to JOB_SUCCEEDED. On error the run is
// left in the state where it stopped; Run finalizes it.
func (o *Orchestrator) execute(ctx context.Context, run *Run) error {
	logger := logging.FromContext(ctx)

	if err := o.transition(ctx, run, StateImportRunning); err != nil {
		return err
	}

	result, err := o.importer.Execute(ctx)
	run.Import = result
	if err != nil {
		logger.Error("import step failed", "error", err, "records_written", result.RecordsWritten)
		return err
	}
	if err := o.transition(ctx, run, StateImportOK); err != nil {
		return err
	}

	if o.archiver != nil {
		if err := o.transition(ctx, run, StateArchiveRunning); err != nil {
			return err
		}

		archived, err := o.archiver.Execute(ctx)
		run.Archive = archived
		if err != nil {
			logger.Error("archive step failed", "error", err, "files_moved", len(archived.Moved))
			return err
		}
		if err := o.transition(ctx, run, StateArchiveOK); err != nil {
			return err
		}
	}

	run.FinishedAt = o.now().UTC()
	if err := o.transition(ctx, run, StateJobSucceeded); err != nil {
		return err
	}

	logger.Info("run succeeded",
		"records_written", run.Import.RecordsWritten,
		"chunks", run.Import.ChunksCommitted(),
		"files_archived", len(run.Archive.Moved),
		"duration_ms", run.Duration().Milliseconds(),
	)
	return nil
}

// fail moves run through its failed phase into JOB_FAILED.
func (o *Orchestrator) fail(ctx context.Context, run *Run, cause error) {
	if run.State.Terminal() {
		return
	}

	// The running phase decides; a panic inside the import step is an
	// import failure whatever its message says.
	switch run.State {
	case StateImportRunning:
		run.FailedPhase = StateImportFailed
	case StateArchiveRunning:
		run.FailedPhase = StateArchiveFailed
	default:
		run.FailedPhase = Phase(cause)
	}
	if CanTransition(run.State, run.FailedPhase) {
		run.State = run.FailedPhase
		o.save(ctx, run)
	}

	run.Error = cause.Error()
	run.ErrorCode = MapError(cause).Code
	run.FinishedAt = o.now().UTC()
	run.State = StateJobFailed
	o.save(ctx, run)

	logging.FromContext(ctx).Error("run failed",
		"failed_phase", run.FailedPhase,
		"error", cause,
		"duration_ms", run.Duration().Milliseconds(),
	)
}

// transition validates and records a state change.
func (o *Orchestrator) transition(ctx context.Context, run *Run, to State) error {
	if !CanTransition(run.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, run.State, to)
	}

	logging.FromContext(ctx).Debug("run state changed", "from", run.State, "to", to)
	run.State = to
	o.save(ctx, run)
	return nil
}

// save persists run. Failures are logged; bookkeeping never fails a run.
func (o *Orchestrator) save(ctx context.Context, run *Run) {
	// Detached so a cancelled caller still gets its terminal state recorded.
	if err := o.runs.UpdateRun(context.WithoutCancel(ctx), *run); err != nil {
		logging.FromContext(ctx).Warn("failed to record run state",
			"state", run.State,
			"error", err,
		)
	}
}
