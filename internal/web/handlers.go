package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/ticketbatch/internal/core"
	"github.com/JonMunkholm/ticketbatch/internal/logging"
	"github.com/JonMunkholm/ticketbatch/internal/web/templates"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// RunResponse is the JSON shape of a run.
type RunResponse struct {
	ID             int64     `json:"id"`
	ExecutionID    string    `json:"execution_id"`
	State          string    `json:"state"`
	Status         string    `json:"status,omitempty"`
	FailedPhase    string    `json:"failed_phase,omitempty"`
	Error          string    `json:"error,omitempty"`
	ErrorCode      string    `json:"error_code,omitempty"`
	Files          []string  `json:"files"`
	RecordsRead    int       `json:"records_read"`
	RecordsWritten int       `json:"records_written"`
	ChunkSizes     []int     `json:"chunk_sizes"`
	Archived       []string  `json:"archived"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at,omitzero"`
	DurationMs     int64     `json:"duration_ms"`
}

func toRunResponse(run core.Run) RunResponse {
	return RunResponse{
		ID:             run.ID,
		ExecutionID:    run.ExecutionID.String(),
		State:          string(run.State),
		Status:         run.Status(),
		FailedPhase:    string(run.FailedPhase),
		Error:          run.Error,
		ErrorCode:      run.ErrorCode,
		Files:          nonNil(run.Import.Files),
		RecordsRead:    run.Import.RecordsRead,
		RecordsWritten: run.Import.RecordsWritten,
		ChunkSizes:     nonNilInts(run.Import.ChunkSizes),
		Archived:       nonNil(run.Archive.Moved),
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
		DurationMs:     run.Duration().Milliseconds(),
	}
}

// handleHealth reports whether the database answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ping(ctx); err != nil {
			logging.FromContext(r.Context()).Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTriggerRun runs the import synchronously and returns the terminal run.
// A failed run is still a completed request; its status says JOB_FAILED.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	// A client disconnect must not abort a run half way through archiving.
	ctx := context.WithoutCancel(r.Context())

	run, err := s.deps.Runner.Run(ctx)
	switch {
	case errors.Is(err, core.ErrRunInProgress):
		s.respondError(w, r, err, http.StatusConflict)
		return
	case err != nil && run.ID == 0:
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(run))
}

// handleListRuns returns recent runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	runs, err := s.deps.Runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	out := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetRun returns one run.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "runID"), 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, r, fmt.Errorf("invalid run id %q", chi.URLParam(r, "runID")), http.StatusBadRequest)
		return
	}

	run, err := s.deps.Runs.GetRun(r.Context(), id)
	if errors.Is(err, core.ErrRunNotFound) {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toRunResponse(run))
}

// handleRunsPage renders the run history page.
func (s *Server) handleRunsPage(w http.ResponseWriter, r *http.Request) {
	runs, err := s.deps.Runs.ListRuns(r.Context(), defaultListLimit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	templ.Handler(templates.RunsPage(runs)).ServeHTTP(w, r)
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return min(n, maxListLimit), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
