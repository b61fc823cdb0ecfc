package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/JonMunkholm/ticketbatch/internal/logging"
)

// ListSourceFiles returns the names of the regular files in dir whose
// extension is exactly ext, sorted by name. "b.CSV" does not match ".csv".
func ListSourceFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if filepath.Ext(entry.Name()) != ext {
			continue
		}
		names = append(names, entry.Name())
	}

	sort.Strings(names)
	return names, nil
}

// ArchiveFiles moves every file of sourceDir matching ext into destDir,
// creating destDir when absent. A file already archived under the same name
// is replaced by the new delivery. It stops at the first failure: files
// moved so far stay moved, the rest stay in place, and the error is an
// *ArchivalError. A missing sourceDir means there is nothing to move.
func ArchiveFiles(sourceDir, destDir, ext string) (ArchiveResult, error) {
	var result ArchiveResult

	names, err := ListSourceFiles(sourceDir, ext)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, nil
		}
		return result, &ArchivalError{Op: "list", File: sourceDir, Err: err}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return result, &ArchivalError{Op: "mkdir", File: destDir, Err: err}
	}

	for _, name := range names {
		src := filepath.Join(sourceDir, name)
		dst := filepath.Join(destDir, name)

		if err := os.Rename(src, dst); err != nil {
			return result, &ArchivalError{Op: "move", File: name, Err: err}
		}
		result.Moved = append(result.Moved, name)
	}

	return result, nil
}

// ArchiveStep relocates ingested source files to the archive directory.
type ArchiveStep struct {
	sourceDir string
	destDir   string
	extension string
	hooks     Hooks
}

// NewArchiveStep creates an archive step.
func NewArchiveStep(sourceDir, destDir, extension string, hooks Hooks) (*ArchiveStep, error) {
	if sourceDir == "" || destDir == "" {
		return nil, fmt.Errorf("archive step: source and destination directories are required")
	}
	return &ArchiveStep{
		sourceDir: sourceDir,
		destDir:   destDir,
		extension: extension,
		hooks:     hooks,
	}, nil
}

// Execute moves the source files. See ArchiveFiles.
func (s *ArchiveStep) Execute(ctx context.Context) (ArchiveResult, error) {
	logger := logging.FromContext(ctx)

	result, err := ArchiveFiles(s.sourceDir, s.destDir, s.extension)
	for _, name := range result.Moved {
		logger.Info("file archived", "file", name, "dest", s.destDir)
		s.hooks.fileArchived(ctx, name)
	}
	if err != nil {
		return result, err
	}

	logger.Info("archive step completed", "files", len(result.Moved))
	return result, nil
}
