package memstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/UncleVee2025/barter-trade-sub003/internal/storage"
)

var errRawSQL = errors.New("memstore: raw SQL is not supported")

// memTx is a unit of work over a Store. Every write registers an undo step;
// Rollback replays them in reverse. A nested Begin acts as a savepoint.
type memTx struct {
	store  *Store
	parent *memTx
	undo   []func()
	done   bool
}

var _ pgx.Tx = (*memTx)(nil)

func (t *memTx) onRollback(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *memTx) Begin(context.Context) (pgx.Tx, error) {
	if t.done {
		return nil, pgx.ErrTxClosed
	}
	return &memTx{store: t.store, parent: t}, nil
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	if t.parent != nil {
		t.parent.undo = append(t.parent.undo, t.undo...)
		t.undo = nil
		t.done = true
		return nil
	}
	if err := t.store.injected(OpCommit); err != nil {
		_ = t.Rollback(ctx)
		return storage.Wrap(OpCommit, err)
	}
	t.done = true
	t.undo = nil
	t.store.units.Unlock()
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.store.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.store.mu.Unlock()
	t.undo = nil
	t.done = true
	if t.parent == nil {
		t.store.units.Unlock()
	}
	return nil
}

func (t *memTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), errRawSQL
}

func (t *memTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, errRawSQL }

func (t *memTx) QueryRow(context.Context, string, ...any) pgx.Row { return errRow{} }

func (t *memTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errRawSQL
}

func (t *memTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }

func (t *memTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *memTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, errRawSQL
}

func (t *memTx) Conn() *pgx.Conn { return nil }

type errRow struct{}

func (errRow) Scan(...any) error { return errRawSQL }
