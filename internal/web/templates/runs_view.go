// Package templates renders the HTML pages of the web server. The *_templ.go
// files are generated from the .templ sources with `templ generate`.
package templates

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/ticketbatch/internal/core"
)

func runID(run core.Run) string {
	return strconv.FormatInt(run.ID, 10)
}

func startedAt(run core.Run) string {
	return run.StartedAt.UTC().Format(time.RFC3339)
}

// runStatus falls back to the raw state while a run is still going.
func runStatus(run core.Run) string {
	if status := run.Status(); status != "" {
		return status
	}
	return string(run.State)
}

func fileList(run core.Run) string {
	return strings.Join(run.Import.Files, ", ")
}

// recordCounts renders "written / read".
func recordCounts(run core.Run) string {
	return fmt.Sprintf("%d / %d", run.Import.RecordsWritten, run.Import.RecordsRead)
}

func chunkCount(run core.Run) string {
	return strconv.Itoa(run.Import.ChunksCommitted())
}

func archivedCount(run core.Run) string {
	return strconv.Itoa(len(run.Archive.Moved))
}

func duration(run core.Run) string {
	return run.Duration().Round(time.Millisecond).String()
}

func errorText(run core.Run) string {
	if run.ErrorCode == "" {
		return run.Error
	}
	return run.ErrorCode + ": " + run.Error
}
