package core

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type (
	// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		sqlx.ExtContext
		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	}

	DB interface {
		DBExecutor

		BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	}
)

// RunInTx runs fn inside a transaction, committing on success and rolling back on error.
// A failed rollback leaves the store in an unknown state and is reported as a shutdown error.
func RunInTx(ctx context.Context, db DB, fn func(exec DBExecutor) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return NewShutdownError(fmt.Sprintf("rolling back after %v: %v", err, rbErr))
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
