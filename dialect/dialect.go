package dialect

import (
	"context"
	"database/sql/driver"
	"strconv"
	"strings"

	"github.com/syssam/schemix"
)

// Dialect names.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// Dialects returns the supported dialects.
func Dialects() []string {
	return []string{SQLite, Postgres}
}

// Valid reports whether name is one of the supported dialect names.
func Valid(name string) bool {
	return name == SQLite || name == Postgres
}

// Parse normalizes a dialect or driver name, such as "sqlite3", "pgx"
// or "postgresql", to one of the dialect constants.
func Parse(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx", "pq":
		return Postgres, nil
	default:
		return "", schemix.NewDialectNotSupportedError(name, "dialect")
	}
}

// Placeholder returns the bind parameter marker for the given zero-based
// position: "?" for SQLite, "$<pos+1>" for Postgres.
func Placeholder(d string, pos int) (string, error) {
	switch d {
	case SQLite:
		return "?", nil
	case Postgres:
		return "$" + strconv.Itoa(pos+1), nil
	default:
		return "", schemix.NewDialectNotSupportedError(d, "placeholders")
	}
}

// Collector accumulates bind arguments for one rendering pass and hands
// out the matching placeholders. A Collector must not be shared between
// independent renders.
type Collector struct {
	dialect string
	args    []any
}

// NewCollector returns an empty collector for the dialect.
func NewCollector(d string) (*Collector, error) {
	if !Valid(d) {
		return nil, schemix.NewDialectNotSupportedError(d, "parameter collection")
	}
	return &Collector{dialect: d}, nil
}

// Add appends v to the argument list and returns its placeholder.
func (c *Collector) Add(v any) string {
	c.args = append(c.args, v)
	if c.dialect == Postgres {
		return "$" + strconv.Itoa(len(c.args))
	}
	return "?"
}

// Args returns a copy of the collected arguments in call order.
func (c *Collector) Args() []any {
	args := make([]any, len(c.args))
	copy(args, c.args)
	return args
}

// Len returns the number of collected arguments.
func (c *Collector) Len() int { return len(c.args) }

// Dialect returns the collector dialect.
func (c *Collector) Dialect() string { return c.dialect }

// ExecQuerier wraps the 2 database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for the
// query builders to execute their statements.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	driver.Tx
}

// ManyExecer is implemented by drivers able to run one statement against
// several argument sets.
type ManyExecer interface {
	ExecMany(ctx context.Context, query string, argsets [][]any) (int64, error)
}

type nopCloser struct {
	Driver
}

// Close implements the Driver.Close method.
func (nopCloser) Close() error { return nil }

// NopCloser returns a new Driver that ignores the Close call.
func NopCloser(drv Driver) Driver {
	return nopCloser{drv}
}
