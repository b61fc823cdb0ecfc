package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/ticketbatch/internal/core"
)

var errFake = errors.New("fake failure")

// fakeTx records what a transaction was asked to do. Methods not overridden
// panic through the nil embedded interface.
type fakeTx struct {
	pgx.Tx

	commitErr   error
	copyErr     error
	batchFailAt int // 1-based; 0 never fails

	committed  bool
	rolledBack bool
	copied     [][]any
	batched    int
}

func (f *fakeTx) Commit(context.Context) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	if f.committed {
		return pgx.ErrTxClosed
	}
	f.rolledBack = true
	return nil
}

func (f *fakeTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, src pgx.CopyFromSource) (int64, error) {
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	for src.Next() {
		values, err := src.Values()
		if err != nil {
			return 0, err
		}
		f.copied = append(f.copied, values)
	}
	return int64(len(f.copied)), src.Err()
}

func (f *fakeTx) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	f.batched = b.Len()
	return &fakeBatchResults{failAt: f.batchFailAt}
}

type fakeBatchResults struct {
	pgx.BatchResults
	failAt int
	n      int
}

func (r *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	r.n++
	if r.n == r.failAt {
		return pgconn.CommandTag{}, errFake
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (r *fakeBatchResults) Close() error { return nil }

type fakeStarter struct {
	tx       *fakeTx
	beginErr error
	begun    int
}

func (s *fakeStarter) Begin(context.Context) (pgx.Tx, error) {
	s.begun++
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return s.tx, nil
}

func testRecords(n int) []core.Record {
	amount, _ := core.ParseDecimal("42.50")
	fee, _ := core.ParseDecimal("2.00")
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	records := make([]core.Record, n)
	for i := range records {
		records[i] = core.Record{
			IdentityCode:   "12345678909",
			HolderName:     "Ana Souza",
			BirthDate:      time.Date(1990, 5, 20, 0, 0, 0, 0, time.UTC),
			EventName:      "Rock Fest",
			EventDate:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			TicketCategory: "VIP",
			Amount:         amount,
			ImportedAt:     ts,
			AdminFee:       fee,
			Source:         "dados.csv",
			Line:           i + 1,
		}
	}
	return records
}
