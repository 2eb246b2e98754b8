package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/syssam/schemix"
	"github.com/syssam/schemix/dialect"
)

type (
	// Rows holds the result of Query. It embeds an interface so that the
	// underlying *sql.Rows is never copied.
	Rows struct{ ColumnScanner }
	// Result is the result of Exec.
	Result = sql.Result
	// TxOptions configures BeginTx.
	TxOptions = sql.TxOptions
)

// ExecQuerier is the subset of *sql.DB, *sql.Tx and *sql.Conn that a Conn
// runs statements on.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ColumnScanner is the part of *sql.Rows needed to read a result set.
type ColumnScanner interface {
	Close() error
	ColumnTypes() ([]*sql.ColumnType, error)
	Columns() ([]string, error)
	Err() error
	Next() bool
	NextResultSet() bool
	Scan(dest ...any) error
}

// Driver runs statements on a database/sql pool.
type Driver struct {
	Conn
	dialect string
	onClose func()
}

// NewDriver returns a Driver of the given dialect over c.
func NewDriver(dialect string, c Conn) *Driver {
	return &Driver{Conn: c, dialect: dialect}
}

// Open opens a database/sql pool with a registered driver, such as "sqlite"
// or "pgx", and wraps it. The dialect is derived from driverName.
func Open(driverName, source string) (*Driver, error) {
	name, err := dialect.Parse(driverName)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, schemix.NewConnectionError("open", err)
	}
	return OpenDB(name, db), nil
}

// OpenDB wraps an open pool.
func OpenDB(dialect string, db *sql.DB) *Driver {
	return NewDriver(dialect, Conn{ExecQuerier: db, dialect: dialect})
}

// DB returns the pool the driver runs on.
func (d Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Dialect returns the canonical dialect name.
func (d Driver) Dialect() string {
	name, err := dialect.Parse(d.dialect)
	if err != nil {
		return d.dialect
	}
	return name
}

// Tx begins a transaction with the default options.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx begins a transaction.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (dialect.Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, schemix.NewConnectionError("begin", err)
	}
	return &Tx{Conn: Conn{ExecQuerier: tx, dialect: d.dialect}, Tx: tx}, nil
}

// Close closes the pool and runs the close hook of the opener, if any.
func (d *Driver) Close() error {
	err := d.DB().Close()
	if d.onClose != nil {
		d.onClose()
	}
	return err
}

// Tx is a transaction started by a Driver.
type Tx struct {
	Conn
	driver.Tx
}

// Conn adapts an ExecQuerier to dialect.ExecQuerier. Statement arguments
// are passed as []any.
type Conn struct {
	ExecQuerier
	dialect string
}

func argList(args any) ([]any, error) {
	argv, ok := args.([]any)
	if !ok {
		return nil, fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	return argv, nil
}

// Exec runs a statement. v is either nil or a *sql.Result receiving the
// statement result.
func (c Conn) Exec(ctx context.Context, query string, args, v any) (err error) {
	argv, err := argList(args)
	if err != nil {
		return err
	}
	out, ok := v.(*sql.Result)
	if v != nil && !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Result", v)
	}
	ex, release, err := c.session(ctx)
	if err != nil {
		return schemix.NewConnectionError("exec: set session vars", err)
	}
	if release != nil {
		defer func() { err = errors.Join(err, release()) }()
	}
	res, err := ex.ExecContext(ctx, query, argv...)
	if err != nil {
		return schemix.NewConnectionError("exec", err)
	}
	if out != nil {
		*out = res
	}
	return nil
}

// Query runs a statement returning rows into v, which must be a *Rows.
// The caller closes the rows.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	out, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Rows", v)
	}
	argv, err := argList(args)
	if err != nil {
		return err
	}
	ex, release, err := c.session(ctx)
	if err != nil {
		return schemix.NewConnectionError("query: set session vars", err)
	}
	rows, err := ex.QueryContext(ctx, query, argv...)
	switch {
	case err != nil && release != nil:
		return schemix.NewConnectionError("query", errors.Join(err, release()))
	case err != nil:
		return schemix.NewConnectionError("query", err)
	case release != nil:
		*out = Rows{ColumnScanner: releasingRows{ColumnScanner: rows, release: release}}
	default:
		*out = Rows{ColumnScanner: rows}
	}
	return nil
}

// ExecMany prepares query once and executes it for every argument set. It
// stops at the first failing set and returns the rows affected so far.
func (c Conn) ExecMany(ctx context.Context, query string, argsets [][]any) (int64, error) {
	p, ok := c.ExecQuerier.(interface {
		PrepareContext(context.Context, string) (*sql.Stmt, error)
	})
	if !ok {
		return 0, fmt.Errorf("dialect/sql: %T does not support prepared statements", c.ExecQuerier)
	}
	stmt, err := p.PrepareContext(ctx, query)
	if err != nil {
		return 0, schemix.NewConnectionError("prepare", err)
	}
	defer stmt.Close()
	var affected int64
	for i := range argsets {
		res, err := stmt.ExecContext(ctx, argsets[i]...)
		if err != nil {
			return affected, schemix.NewConnectionError("exec many", fmt.Errorf("argument set %d: %w", i, err))
		}
		if n, err := res.RowsAffected(); err == nil {
			affected += n
		}
	}
	return affected, nil
}

// releasingRows returns the session connection when the rows are closed.
type releasingRows struct {
	ColumnScanner
	release func() error
}

func (r releasingRows) Close() error {
	return errors.Join(r.ColumnScanner.Close(), r.release())
}

// ScanMaps reads the remaining rows into one map per row, keyed by column
// name, and closes rows. Values are kept as the driver returns them.
func ScanMaps(rows ColumnScanner) (_ []map[string]any, err error) {
	defer func() { err = errors.Join(err, rows.Close()) }()
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: columns: %w", err)
	}
	maps := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("dialect/sql: scan: %w", err)
		}
		m := make(map[string]any, len(columns))
		for i, name := range columns {
			m[name] = values[i]
		}
		maps = append(maps, m)
	}
	if err := rows.Err(); err != nil {
		return nil, schemix.NewConnectionError("rows", err)
	}
	return maps, nil
}

var (
	_ dialect.Driver     = (*Driver)(nil)
	_ dialect.ManyExecer = (*Driver)(nil)
	_ dialect.ManyExecer = (*Tx)(nil)
)
