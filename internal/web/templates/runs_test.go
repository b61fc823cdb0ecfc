package templates

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/ticketbatch/internal/core"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	if err := c.Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return b.String()
}

func TestRunsPage_Empty(t *testing.T) {
	got := render(t, RunsPage(nil))

	if !strings.HasPrefix(got, "<!doctype html>") {
		t.Errorf("page starts with %q", got[:min(len(got), 20)])
	}
	if !strings.Contains(got, "<p>No runs yet.</p>") {
		t.Error("empty state missing")
	}
	if strings.Contains(got, "<table>") {
		t.Error("table rendered without runs")
	}
}

func TestRunsPage_Rows(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	runs := []core.Run{
		{
			ID:         2,
			State:      core.StateJobFailed,
			Error:      `archival error: move "b.csv": <denied>`,
			ErrorCode:  "ARC001",
			StartedAt:  start,
			FinishedAt: start.Add(1500 * time.Millisecond),
			Import: core.ImportResult{
				Files:          []string{"a.csv", "b.csv"},
				RecordsRead:    7,
				RecordsWritten: 7,
				ChunkSizes:     []int{5, 2},
			},
			Archive:     core.ArchiveResult{Moved: []string{"a.csv"}},
			FailedPhase: core.StateArchiveFailed,
		},
		{ID: 1, State: core.StateJobSucceeded, StartedAt: start.Add(-time.Hour), FinishedAt: start.Add(-time.Hour)},
	}

	got := render(t, RunsPage(runs))

	for _, want := range []string{
		`<td class="failed">JOB_FAILED</td>`,
		`<td class="ok">JOB_SUCCEEDED</td>`,
		"<td>ARCHIVE_FAILED</td>",
		"<td>a.csv, b.csv</td>",
		"<td>7 / 7</td>",
		"<td>2</td>",
		"<td>1.5s</td>",
		"<td>2025-06-01T12:00:00Z</td>",
		"ARC001: archival error: move &#34;b.csv&#34;: &lt;denied&gt;",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Index(got, "JOB_FAILED") > strings.Index(got, "JOB_SUCCEEDED") {
		t.Error("rows not rendered in the given order")
	}
}

func TestErrorAlert(t *testing.T) {
	tests := []struct {
		name    string
		msg     core.UserMessage
		want    string
		notWant string
	}{
		{
			name: "with action",
			msg:  core.UserMessage{Message: "Run not found", Action: "Check the id", Code: "RUN002"},
			want: `<div class="alert" role="alert"><p>Run not found</p><p>Check the id</p><small>RUN002</small></div>`,
		},
		{
			name:    "without action",
			msg:     core.UserMessage{Message: "Something went wrong", Code: "ERR000"},
			want:    `<div class="alert" role="alert"><p>Something went wrong</p><small>ERR000</small></div>`,
			notWant: "<p></p>",
		},
		{
			name: "escaped",
			msg:  core.UserMessage{Message: "<b>bad</b>", Code: "ERR000"},
			want: "<p>&lt;b&gt;bad&lt;/b&gt;</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render(t, ErrorAlert(tt.msg))
			if !strings.Contains(got, tt.want) {
				t.Errorf("ErrorAlert() = %q, want it to contain %q", got, tt.want)
			}
			if tt.notWant != "" && strings.Contains(got, tt.notWant) {
				t.Errorf("ErrorAlert() = %q, must not contain %q", got, tt.notWant)
			}
		})
	}
}
