// Package dbx holds the small database plumbing the repositories share:
// the DBTX handle they are written against, and a transaction wrapper for
// multi-statement flows such as the contract merge-update.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the slice of database/sql the contract and user repositories
// need. Both *sql.DB and *sql.Tx implement it, so a repository can be
// bound to a plain connection or to a transaction without knowing which.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction: commit when fn returns nil,
// rollback when it returns an error or panics (the panic is rethrown).
//
// The contract update uses it to keep read-merge-write atomic:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    repo := m.Contracts(tx)
//	    current, err := repo.Get(ctx, id)
//	    if err != nil {
//	        return err
//	    }
//	    return repo.Update(ctx, merge(current, in))
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
