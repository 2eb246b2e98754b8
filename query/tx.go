package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/syssam/schemix"
	"github.com/syssam/schemix/dialect"
)

// txDriver wraps a transaction as a driver for the builders of a
// transactional Database.
type txDriver struct {
	drv dialect.Driver
	tx  dialect.Tx
}

// Exec implements the dialect.Driver interface.
func (tx *txDriver) Exec(ctx context.Context, query string, args, v any) error {
	return tx.tx.Exec(ctx, query, args, v)
}

// Query implements the dialect.Driver interface.
func (tx *txDriver) Query(ctx context.Context, query string, args, v any) error {
	return tx.tx.Query(ctx, query, args, v)
}

// ExecMany implements the dialect.ManyExecer interface when the underlying
// transaction does.
func (tx *txDriver) ExecMany(ctx context.Context, query string, argsets [][]any) (int64, error) {
	me, ok := tx.tx.(dialect.ManyExecer)
	if !ok {
		return 0, fmt.Errorf("transaction %T cannot execute a statement many times", tx.tx)
	}
	return me.ExecMany(ctx, query, argsets)
}

// Close is a noop close.
func (*txDriver) Close() error { return nil }

// Dialect returns the dialect of the driver.
func (tx *txDriver) Dialect() string { return tx.drv.Dialect() }

// Tx returns the wrapper itself, so statements issued by CreateTables join
// the running transaction.
func (tx *txDriver) Tx(context.Context) (dialect.Tx, error) { return tx, nil }

// Commit is a nop commit. WithTx commits the transaction.
func (*txDriver) Commit() error { return nil }

// Rollback is a nop rollback. WithTx rolls the transaction back.
func (*txDriver) Rollback() error { return nil }

// WithTx runs fn with a Database bound to a new transaction. The
// transaction is rolled back if fn returns an error or panics, and
// committed otherwise. A panic is re-raised after the rollback.
//
//	err := db.WithTx(ctx, func(tx *query.Database) error {
//		if _, err := tx.Insert(users).Values(row).Execute(ctx); err != nil {
//			return err
//		}
//		_, err := tx.Insert(posts).Rows(rows...).Execute(ctx)
//		return err
//	})
func (db *Database) WithTx(ctx context.Context, fn func(tx *Database) error) error {
	drv, err := db.driver("", "begin")
	if err != nil {
		return err
	}
	if _, ok := drv.(*txDriver); ok {
		return schemix.Queryf("", "begin", "nested transactions are not supported")
	}
	tx, err := drv.Tx(ctx)
	if err != nil {
		return schemix.NewQueryError("", "begin", err)
	}
	txdb := *db
	txdb.drv = &txDriver{drv: drv, tx: tx}
	defer func() {
		if v := recover(); v != nil {
			if err := tx.Rollback(); err != nil {
				db.logger.ErrorContext(ctx, "rollback after panic failed", "error", err)
			}
			panic(v)
		}
	}()
	if err := fn(&txdb); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, schemix.NewQueryError("", "rollback", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return schemix.NewQueryError("", "commit", err)
	}
	return nil
}
