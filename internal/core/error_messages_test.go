package core

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "nil error returns empty", err: nil, wantCode: ""},
		{
			name:     "field count",
			err:      &ParseError{Source: "a.csv", Line: 3, Reason: "expected 7 fields, got 6"},
			wantCode: "PRS001",
		},
		{
			name:     "bad birth date",
			err:      &ParseError{Field: "birth_date", Value: "15/03/1990", Reason: "invalid date"},
			wantCode: "PRS002",
		},
		{
			name:     "bad amount",
			err:      &ParseError{Field: "amount", Value: "abc", Reason: "invalid decimal"},
			wantCode: "PRS003",
		},
		{
			name:     "invalid encoding",
			err:      &ParseError{Reason: "line is not valid UTF-8"},
			wantCode: "PRS004",
		},
		{
			name:     "identity code",
			err:      &ValidationError{Field: "identity_code", Rule: "must be 11 digits or ddd.ddd.ddd-dd"},
			wantCode: "VAL001",
		},
		{
			name:     "empty holder",
			err:      &ValidationError{Field: "holder_name", Rule: "must not be empty"},
			wantCode: "VAL002",
		},
		{
			name:     "negative amount",
			err:      &ValidationError{Field: "amount", Rule: "must be >= 0"},
			wantCode: "VAL003",
		},
		{
			name:     "persistence with connection cause",
			err:      &PersistenceError{Chunk: 2, Size: 200, Err: errors.New("dial tcp: connection refused")},
			wantCode: "DB001",
		},
		{
			name:     "persistence with check constraint",
			err:      &PersistenceError{Chunk: 1, Size: 5, Err: errors.New(`new row violates check constraint "amount_non_negative"`)},
			wantCode: "DB002",
		},
		{
			name:     "persistence generic",
			err:      &PersistenceError{Chunk: 1, Size: 5, Err: errors.New("boom")},
			wantCode: "DB004",
		},
		{
			name:     "archive permission",
			err:      &ArchivalError{Op: "move", File: "a.csv", Err: fs.ErrPermission},
			wantCode: "ARC001",
		},
		{
			name:     "archive generic",
			err:      &ArchivalError{Op: "mkdir", File: "out", Err: errors.New("read-only file system")},
			wantCode: "ARC002",
		},
		{
			name:     "wrapped run in progress",
			err:      fmt.Errorf("trigger: %w", ErrRunInProgress),
			wantCode: "RUN001",
		},
		{name: "run not found", err: ErrRunNotFound, wantCode: "RUN002"},
		{name: "plain timeout", err: errors.New("i/o timeout"), wantCode: "DB003"},
		{name: "unknown", err: errors.New("something strange"), wantCode: "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("MapError() returned empty message")
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	got := FormatUserError(ErrRunInProgress)
	if !strings.Contains(got, "(Code: RUN001)") {
		t.Errorf("FormatUserError() = %q, want code RUN001", got)
	}
}
