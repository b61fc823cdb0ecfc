package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/ticketbatch/internal/core"
)

// WriteMode selects how a chunk is loaded inside its transaction.
type WriteMode string

const (
	// WriteModeCopy streams the chunk with the COPY protocol.
	WriteModeCopy WriteMode = "copy"
	// WriteModeInsert sends one parameterized INSERT per record in a single batch.
	WriteModeInsert WriteMode = "insert"
)

// ticketTable is the destination of imported records.
var ticketTable = pgx.Identifier{"ticket_imports"}

// ticketColumns lists the persisted fields in row order.
var ticketColumns = []string{
	"identity_code",
	"holder_name",
	"birth_date",
	"event_name",
	"event_date",
	"ticket_category",
	"amount",
	"imported_at",
	"admin_fee",
}

const insertTicketSQL = `
	INSERT INTO ticket_imports (
		identity_code, holder_name, birth_date, event_name, event_date,
		ticket_category, amount, imported_at, admin_fee
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

var (
	errEmptyChunk = errors.New("empty chunk")
	errShortWrite = errors.New("store accepted fewer rows than the chunk holds")
)

// ChunkWriter persists chunks into ticket_imports, one transaction per chunk.
type ChunkWriter struct {
	db      TxStarter
	mode    WriteMode
	maxSize int
}

// NewChunkWriter creates a writer. maxSize is the configured chunk size;
// larger chunks are rejected.
func NewChunkWriter(db TxStarter, mode WriteMode, maxSize int) (*ChunkWriter, error) {
	switch mode {
	case WriteModeCopy, WriteModeInsert:
	case "":
		mode = WriteModeCopy
	default:
		return nil, fmt.Errorf("unknown write mode %q", mode)
	}
	if maxSize <= 0 {
		return nil, fmt.Errorf("chunk size %d must be positive", maxSize)
	}
	return &ChunkWriter{db: db, mode: mode, maxSize: maxSize}, nil
}

// WriteChunk stores every record of chunk or none of them. Failures are
// returned as *core.PersistenceError.
func (w *ChunkWriter) WriteChunk(ctx context.Context, chunk core.Chunk) error {
	fail := func(err error) error {
		return &core.PersistenceError{Chunk: chunk.Seq, Size: chunk.Len(), Err: err}
	}

	if chunk.Len() == 0 {
		return fail(errEmptyChunk)
	}
	if chunk.Len() > w.maxSize {
		return fail(fmt.Errorf("chunk holds %d records, limit is %d", chunk.Len(), w.maxSize))
	}

	err := WithTx(ctx, w.db, func(tx pgx.Tx) error {
		if w.mode == WriteModeInsert {
			return insertRecords(ctx, tx, chunk.Records)
		}
		return copyRecords(ctx, tx, chunk.Records)
	})
	if err != nil {
		return fail(err)
	}
	return nil
}

func copyRecords(ctx context.Context, tx pgx.Tx, records []core.Record) error {
	n, err := tx.CopyFrom(ctx, ticketTable, ticketColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			return ticketRow(records[i]), nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy ticket_imports: %w", err)
	}
	if n != int64(len(records)) {
		return fmt.Errorf("%w: %d of %d", errShortWrite, n, len(records))
	}
	return nil
}

func insertRecords(ctx context.Context, tx pgx.Tx, records []core.Record) error {
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(insertTicketSQL, ticketRow(rec)...)
	}

	br := tx.SendBatch(ctx, batch)
	for i, rec := range records {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert %s line %d (chunk row %d): %w", rec.Source, rec.Line, i+1, err)
		}
	}
	return br.Close()
}

// ticketRow maps a record to ticketColumns order.
func ticketRow(r core.Record) []any {
	return []any{
		r.IdentityCode,
		r.HolderName,
		core.ToPgDate(r.BirthDate),
		r.EventName,
		core.ToPgDate(r.EventDate),
		r.TicketCategory,
		r.Amount,
		core.ToPgTimestamptz(r.ImportedAt),
		r.AdminFee,
	}
}
