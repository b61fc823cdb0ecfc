package core

import (
	"errors"
	"fmt"
)

var (
	// ErrRunInProgress is returned when a run is requested while another is active.
	ErrRunInProgress = errors.New("import run already in progress")

	// ErrRunNotFound is returned by RunRepository lookups for unknown IDs.
	ErrRunNotFound = errors.New("run not found")

	// ErrInvalidTransition marks a state change the run state machine forbids.
	ErrInvalidTransition = errors.New("invalid run state transition")
)

// ParseError reports a line that could not be turned into a Record.
type ParseError struct {
	Source string
	Line   int
	Field  string // empty for line-level problems such as field count
	Value  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	loc := fmt.Sprintf("%s line %d", e.Source, e.Line)
	if e.Field != "" {
		return fmt.Sprintf("parse error: %s field %s: %s %q", loc, e.Field, e.Reason, e.Value)
	}
	return fmt.Sprintf("parse error: %s: %s", loc, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports a record that parsed but breaks a domain rule.
type ValidationError struct {
	Source string
	Line   int
	Field  string
	Value  string
	Rule   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s line %d field %s: %s (got %q)",
		e.Source, e.Line, e.Field, e.Rule, e.Value)
}

// PersistenceError reports a chunk the store rejected. The chunk is rolled back.
type PersistenceError struct {
	Chunk int
	Size  int
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: chunk %d (%d records): %v", e.Chunk, e.Size, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ArchivalError reports a failure while relocating source files.
type ArchivalError struct {
	Op   string // "list", "mkdir" or "move"
	File string
	Err  error
}

func (e *ArchivalError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("archival error: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("archival error: %s %s: %v", e.Op, e.File, e.Err)
}

func (e *ArchivalError) Unwrap() error { return e.Err }

// Phase returns the failed phase a step error maps to: ARCHIVE_FAILED for
// archival errors and IMPORT_FAILED for everything else.
func Phase(err error) State {
	if err == nil {
		return ""
	}
	var ae *ArchivalError
	if errors.As(err, &ae) {
		return StateArchiveFailed
	}
	return StateImportFailed
}
