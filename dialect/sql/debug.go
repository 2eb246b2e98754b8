package sql

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syssam/schemix/dialect"
)

// DebugDriver is a driver that logs every statement and transaction event.
type DebugDriver struct {
	*Driver
	logger *slog.Logger
	level  slog.Level
}

// DebugOption configures a DebugDriver.
type DebugOption func(*DebugDriver)

// DebugLogger sets the logger. Defaults to slog.Default().
func DebugLogger(l *slog.Logger) DebugOption {
	return func(d *DebugDriver) {
		if l != nil {
			d.logger = l
		}
	}
}

// DebugLevel sets the level statements are logged at. Defaults to Info.
func DebugLevel(level slog.Level) DebugOption {
	return func(d *DebugDriver) { d.level = level }
}

// NewDebugDriver wraps drv with statement logging.
//
//	drv := sql.NewDebugDriver(base, sql.DebugLogger(logger), sql.DebugLevel(slog.LevelDebug))
func NewDebugDriver(drv *Driver, opts ...DebugOption) *DebugDriver {
	d := &DebugDriver{Driver: drv, logger: slog.Default(), level: slog.LevelInfo}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DebugDriver) statement(ctx context.Context, tx bool, query string, args any) {
	d.logger.Log(ctx, d.level, "statement", "kind", StatementKind(query), "tx", tx, "sql", query, "args", args)
}

func (d *DebugDriver) event(ctx context.Context, event string) {
	d.logger.Log(ctx, d.level, "transaction", "event", event)
}

// Query implements the dialect.Driver interface.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	d.statement(ctx, false, query, args)
	return d.Driver.Query(ctx, query, args, v)
}

// Exec implements the dialect.Driver interface.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	d.statement(ctx, false, query, args)
	return d.Driver.Exec(ctx, query, args, v)
}

// ExecMany implements the dialect.ManyExecer interface. The argument sets
// are logged as their count.
func (d *DebugDriver) ExecMany(ctx context.Context, query string, argsets [][]any) (int64, error) {
	d.logger.Log(ctx, d.level, "statement", "kind", StatementKind(query), "tx", false, "sql", query, "sets", len(argsets))
	return d.Driver.ExecMany(ctx, query, argsets)
}

// Tx starts a transaction whose statements are logged too.
func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	d.event(ctx, "begin")
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &DebugTx{Tx: tx, driver: d}, nil
}

// DebugTx is a transaction of a DebugDriver.
type DebugTx struct {
	dialect.Tx
	driver *DebugDriver
}

// Query implements the dialect.Tx interface.
func (tx *DebugTx) Query(ctx context.Context, query string, args, v any) error {
	tx.driver.statement(ctx, true, query, args)
	return tx.Tx.Query(ctx, query, args, v)
}

// Exec implements the dialect.Tx interface.
func (tx *DebugTx) Exec(ctx context.Context, query string, args, v any) error {
	tx.driver.statement(ctx, true, query, args)
	return tx.Tx.Exec(ctx, query, args, v)
}

// ExecMany implements the dialect.ManyExecer interface.
func (tx *DebugTx) ExecMany(ctx context.Context, query string, argsets [][]any) (int64, error) {
	me, ok := tx.Tx.(dialect.ManyExecer)
	if !ok {
		return 0, fmt.Errorf("dialect/sql: %T does not support ExecMany", tx.Tx)
	}
	tx.driver.logger.Log(ctx, tx.driver.level, "statement", "kind", StatementKind(query), "tx", true, "sql", query, "sets", len(argsets))
	return me.ExecMany(ctx, query, argsets)
}

// Commit logs and commits the transaction.
func (tx *DebugTx) Commit() error {
	tx.driver.event(context.Background(), "commit")
	return tx.Tx.Commit()
}

// Rollback logs and rolls back the transaction.
func (tx *DebugTx) Rollback() error {
	tx.driver.event(context.Background(), "rollback")
	return tx.Tx.Rollback()
}

var (
	_ dialect.Driver     = (*DebugDriver)(nil)
	_ dialect.ManyExecer = (*DebugDriver)(nil)
	_ dialect.Tx         = (*DebugTx)(nil)
	_ dialect.ManyExecer = (*DebugTx)(nil)
)
