package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFromContext_RunFields(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(New(&buf, "info", "json"))
	defer slog.SetDefault(prev)

	execID := uuid.New()
	ctx := WithRun(context.Background(), 42, execID)
	FromContext(ctx).Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v (%s)", err, buf.String())
	}
	if entry["run_id"] != float64(42) {
		t.Errorf("run_id = %v, want 42", entry["run_id"])
	}
	if entry["execution_id"] != execID.String() {
		t.Errorf("execution_id = %v, want %s", entry["execution_id"], execID)
	}
	if RunID(ctx) != 42 {
		t.Errorf("RunID() = %d, want 42", RunID(ctx))
	}
}

func TestFromContext_NoRun(t *testing.T) {
	if RunID(context.Background()) != 0 {
		t.Error("RunID() on empty context should be 0")
	}
}
