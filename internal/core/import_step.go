package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/ticketbatch/internal/logging"
)

// ImportStep drives parse -> transform -> chunk write over every input file.
type ImportStep struct {
	sourceDir   string
	extension   string
	chunkSize   int
	parser      *Parser
	transformer *Transformer
	writer      ChunkWriter
	hooks       Hooks
}

// ImportStepConfig holds the settings of an ImportStep.
type ImportStepConfig struct {
	SourceDir string
	Extension string
	ChunkSize int // DefaultChunkSize when zero
}

// NewImportStep creates an import step.
func NewImportStep(cfg ImportStepConfig, parser *Parser, transformer *Transformer, writer ChunkWriter, hooks Hooks) (*ImportStep, error) {
	if cfg.SourceDir == "" {
		return nil, errors.New("import step: source directory is required")
	}
	if parser == nil || transformer == nil || writer == nil {
		return nil, errors.New("import step: parser, transformer and writer are required")
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkSize < 0 {
		return nil, fmt.Errorf("import step: chunk size %d must be positive", cfg.ChunkSize)
	}

	return &ImportStep{
		sourceDir:   cfg.SourceDir,
		extension:   cfg.Extension,
		chunkSize:   cfg.ChunkSize,
		parser:      parser,
		transformer: transformer,
		writer:      writer,
		hooks:       hooks,
	}, nil
}

// chunkBuffer accumulates records and flushes them through the writer.
type chunkBuffer struct {
	step    *ImportStep
	records []Record
	seq     int
	result  *ImportResult
}

// add appends rec and flushes when the buffer is full.
func (b *chunkBuffer) add(ctx context.Context, rec Record) error {
	b.records = append(b.records, rec)
	if len(b.records) >= b.step.chunkSize {
		return b.flush(ctx)
	}
	return nil
}

// flush writes the buffered records as one chunk. A no-op when empty.
// The write runs detached from ctx cancellation so an external abort can
// never interrupt a chunk half way.
func (b *chunkBuffer) flush(ctx context.Context) error {
	if len(b.records) == 0 {
		return nil
	}

	b.seq++
	chunk := Chunk{Seq: b.seq, Records: b.records}
	// Released regardless of the outcome; the writer may keep the slice.
	b.records = make([]Record, 0, b.step.chunkSize)

	start := time.Now()
	err := b.step.writer.WriteChunk(context.WithoutCancel(ctx), chunk)
	stats := ChunkStats{Seq: chunk.Seq, Size: chunk.Len(), Duration: time.Since(start)}

	if err != nil {
		var pe *PersistenceError
		if !errors.As(err, &pe) {
			err = &PersistenceError{Chunk: chunk.Seq, Size: chunk.Len(), Err: err}
		}
		b.step.hooks.chunkFailed(ctx, stats, err)
		return err
	}

	b.result.ChunkSizes = append(b.result.ChunkSizes, chunk.Len())
	b.result.RecordsWritten += chunk.Len()
	b.step.hooks.chunkCommitted(ctx, stats)

	logging.FromContext(ctx).Debug("chunk committed",
		"seq", chunk.Seq,
		"size", chunk.Len(),
		"duration_ms", stats.Duration.Milliseconds(),
	)
	return nil
}

// Execute imports every matching file in the source directory, in name order.
// It succeeds only when all input was consumed and every chunk committed;
// chunks committed before a failure stay committed.
func (s *ImportStep) Execute(ctx context.Context) (ImportResult, error) {
	var result ImportResult

	files, err := ListSourceFiles(s.sourceDir, s.extension)
	if err != nil {
		return result, fmt.Errorf("list input files: %w", err)
	}

	logger := logging.FromContext(ctx)
	if len(files) == 0 {
		logger.Info("no input files found", "dir", s.sourceDir, "extension", s.extension)
		return result, nil
	}

	buf := &chunkBuffer{
		step:    s,
		records: make([]Record, 0, s.chunkSize),
		result:  &result,
	}

	// Chunks span file boundaries; only the final remainder is flushed early.
	for _, name := range files {
		result.Files = append(result.Files, name)
		if err := s.importFile(ctx, name, buf, &result); err != nil {
			return result, err
		}
	}

	if err := buf.flush(ctx); err != nil {
		return result, err
	}

	logger.Info("import step completed",
		"files", len(result.Files),
		"records", result.RecordsWritten,
		"chunks", result.ChunksCommitted(),
	)
	return result, nil
}

func (s *ImportStep) importFile(ctx context.Context, name string, buf *chunkBuffer, result *ImportResult) error {
	logger := logging.WithFields(ctx, "file", name)

	f, err := os.Open(filepath.Join(s.sourceDir, name))
	if err != nil {
		return fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	reader := WrapForStreaming(f)
	records := 0

	for rec, err := range s.parser.Records(reader, name) {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("import cancelled at %s line %d: %w", name, rec.Line, err)
		}

		result.RecordsRead++
		records++

		out, err := s.transformer.Transform(rec)
		if err != nil {
			return err
		}
		if err := buf.add(ctx, out); err != nil {
			return err
		}
	}

	logger.Info("input file consumed", "records", records, "bytes", reader.BytesRead)
	return nil
}
