package store

import (
	"context"
	"database/sql"
	"sort"
)

// Tx is a write transaction handed to RunTransaction work.
//
// Every Exec names the table it writes so the store can notify observers of
// exactly those tables after commit. Reads inside a transaction must go
// through Tx, not the Store: the store holds a single connection.
type Tx struct {
	tx      *sql.Tx
	touched map[string]struct{}
}

// Exec runs a write statement against table and returns the number of rows
// affected. The table is marked touched even when no row changed.
func (t *Tx) Exec(ctx context.Context, table, query string, args ...any) (int64, error) {
	t.touched[table] = struct{}{}
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Query runs a read statement inside the transaction.
func (t *Tx) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

// QueryRow runs a single-row read statement inside the transaction.
func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) *Row {
	return &Row{row: t.tx.QueryRowContext(ctx, query, args...)}
}

// Tables returns the touched tables, sorted.
func (t *Tx) Tables() []string {
	out := make([]string, 0, len(t.touched))
	for name := range t.touched {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RunTransaction begins a transaction, runs work, and commits if work
// returns nil. Any error from work, and any panic, rolls the transaction back
// in full. The transaction is released on every exit path.
//
// After a successful commit the touched tables are published to observers
// before RunTransaction returns. Rolled-back work publishes nothing.
//
// Errors from work are returned unchanged; begin/commit failures are
// returned as *Error with ErrCodeTxFailed.
func (s *Store) RunTransaction(ctx context.Context, work func(tx *Tx) error) error {
	if s.closed.Load() {
		return errClosed()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return newTxError("begin", err)
	}
	defer sqlTx.Rollback() // No-op if committed

	tx := &Tx{tx: sqlTx, touched: make(map[string]struct{})}
	if err := work(tx); err != nil {
		return err
	}

	if err := s.commit(sqlTx); err != nil {
		return newTxError("commit", err)
	}

	s.tracker.notify(tx.Tables())
	return nil
}

func (s *Store) commit(tx *sql.Tx) error {
	if s.hooks.commit != nil {
		return s.hooks.commit(tx)
	}
	return tx.Commit()
}
