package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/ticketbatch/internal/config"
	"github.com/JonMunkholm/ticketbatch/internal/core"
	"github.com/JonMunkholm/ticketbatch/internal/core/coretest"
	"github.com/JonMunkholm/ticketbatch/internal/metrics"
)

func importConfig(t *testing.T) config.ImportConfig {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "files")
	if err := os.Mkdir(src, 0o755); err != nil {
		t.Fatal(err)
	}
	return config.ImportConfig{
		SourceDir:      src,
		ArchiveDir:     filepath.Join(root, "imported-files"),
		Extension:      ".csv",
		ChunkSize:      2,
		Delimiter:      ";",
		CommentPrefix:  "--",
		ArchiveEnabled: true,
		WriteMode:      "copy",
		Fees:           []string{"Standard=3.00"},
		DefaultFee:     "0.00",
		Timeout:        time.Minute,
	}
}

func TestNewOrchestrator_Wiring(t *testing.T) {
	cfg := importConfig(t)
	if err := coretest.WriteFile(cfg.SourceDir, "a.csv", coretest.Lines(1, 5)...); err != nil {
		t.Fatal(err)
	}

	writer := &coretest.MemoryWriter{}
	runs := coretest.NewMemoryRuns()
	reg := metrics.NewRegistry()

	orch, err := NewOrchestrator(cfg, writer, runs, reg.Hooks())
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	run, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.State != core.StateJobSucceeded {
		t.Fatalf("state = %s, want JOB_SUCCEEDED", run.State)
	}

	if got := writer.ChunkSizes(); len(got) != 3 || got[0] != 2 || got[2] != 1 {
		t.Errorf("chunk sizes = %v, want [2 2 1]", got)
	}
	for _, r := range writer.Records() {
		if got := core.FormatDecimal(r.AdminFee); got != "3.00" {
			t.Errorf("admin fee = %s, want 3.00", got)
			break
		}
	}
	if _, err := os.Stat(filepath.Join(cfg.ArchiveDir, "a.csv")); err != nil {
		t.Errorf("a.csv not archived: %v", err)
	}
}

func TestNewOrchestrator_ArchiveDisabled(t *testing.T) {
	cfg := importConfig(t)
	cfg.ArchiveEnabled = false
	if err := coretest.WriteFile(cfg.SourceDir, "a.csv", coretest.Line(1)); err != nil {
		t.Fatal(err)
	}

	orch, err := NewOrchestrator(cfg, &coretest.MemoryWriter{}, coretest.NewMemoryRuns(), core.Hooks{})
	if err != nil {
		t.Fatal(err)
	}
	run, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(run.Archive.Moved) != 0 {
		t.Errorf("moved = %v, want none", run.Archive.Moved)
	}
	if _, err := os.Stat(filepath.Join(cfg.SourceDir, "a.csv")); err != nil {
		t.Errorf("source file gone: %v", err)
	}
}

func TestNewOrchestrator_BadFees(t *testing.T) {
	cfg := importConfig(t)
	cfg.Fees = []string{"Standard=-1"}

	if _, err := NewOrchestrator(cfg, &coretest.MemoryWriter{}, coretest.NewMemoryRuns(), core.Hooks{}); err == nil {
		t.Error("NewOrchestrator() expected error for negative fee")
	}
}
