// Package coretest provides in-memory implementations of the core storage
// interfaces for tests.
package coretest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/JonMunkholm/ticketbatch/internal/core"
)

// ErrInjected is the failure MemoryWriter reports for FailAtRecord.
var ErrInjected = errors.New("injected write failure")

// MemoryWriter is a ChunkWriter with all-or-nothing chunk semantics.
type MemoryWriter struct {
	mu       sync.Mutex
	records  []core.Record
	chunks   []int
	attempts int

	// FailAtRecord, when > 0, fails the chunk that would store the
	// FailAtRecord-th record (1-based) of the whole run.
	FailAtRecord int
}

// WriteChunk stores every record of chunk or none.
func (w *MemoryWriter) WriteChunk(_ context.Context, chunk core.Chunk) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.attempts++
	if w.FailAtRecord > 0 {
		first := len(w.records) + 1
		last := len(w.records) + chunk.Len()
		if w.FailAtRecord >= first && w.FailAtRecord <= last {
			return &core.PersistenceError{Chunk: chunk.Seq, Size: chunk.Len(), Err: ErrInjected}
		}
	}

	w.records = append(w.records, chunk.Records...)
	w.chunks = append(w.chunks, chunk.Len())
	return nil
}

// Records returns a copy of the committed records.
func (w *MemoryWriter) Records() []core.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]core.Record(nil), w.records...)
}

// ChunkSizes returns the sizes of the committed chunks in order.
func (w *MemoryWriter) ChunkSizes() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]int(nil), w.chunks...)
}

// Attempts returns how many chunk writes were attempted.
func (w *MemoryWriter) Attempts() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attempts
}

// MemoryRuns is a RunRepository that keeps every saved state.
type MemoryRuns struct {
	mu      sync.Mutex
	nextID  int64
	runs    map[int64]core.Run
	history map[int64][]core.State
}

// NewMemoryRuns creates an empty repository.
func NewMemoryRuns() *MemoryRuns {
	return &MemoryRuns{
		runs:    make(map[int64]core.Run),
		history: make(map[int64][]core.State),
	}
}

func (m *MemoryRuns) CreateRun(_ context.Context, run core.Run) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	run.ID = m.nextID
	m.runs[run.ID] = run
	m.history[run.ID] = []core.State{run.State}
	return run.ID, nil
}

func (m *MemoryRuns) UpdateRun(_ context.Context, run core.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[run.ID]; !ok {
		return core.ErrRunNotFound
	}
	m.runs[run.ID] = run
	m.history[run.ID] = append(m.history[run.ID], run.State)
	return nil
}

func (m *MemoryRuns) GetRun(_ context.Context, id int64) (core.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok {
		return core.Run{}, core.ErrRunNotFound
	}
	return run, nil
}

// ListRuns returns the newest runs first.
func (m *MemoryRuns) ListRuns(_ context.Context, limit int) ([]core.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	runs := make([]core.Run, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID > runs[j].ID })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// History returns every state saved for a run, in order, without
// consecutive duplicates.
func (m *MemoryRuns) History(id int64) []core.State {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []core.State
	for _, s := range m.history[id] {
		if len(out) == 0 || out[len(out)-1] != s {
			out = append(out, s)
		}
	}
	return out
}

// Line renders a valid input line for the n-th ticket.
func Line(n int) string {
	return fmt.Sprintf("%011d;Holder %d;1990-01-01;Event %d;2025-06-01;Standard;%d.50", n, n, n%3, n%100)
}

// WriteFile writes lines to dir/name, newline-terminated.
func WriteFile(dir, name string, lines ...string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}

// Lines returns n valid lines numbered from start.
func Lines(start, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = Line(start + i)
	}
	return out
}
