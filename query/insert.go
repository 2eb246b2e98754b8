package query

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/syssam/schemix"
	"github.com/syssam/schemix/dialect"
	"github.com/syssam/schemix/dialect/sql"
	"github.com/syssam/schemix/schema"
)

// Row is a mapping from column name to value that remembers the order in
// which columns were first set.
type Row struct {
	keys   []string
	values map[string]any
}

// NewRow returns an empty row.
func NewRow() *Row {
	return &Row{values: make(map[string]any)}
}

// RowOf returns a row holding the entries of m, ordered by column name.
func RowOf(m map[string]any) *Row {
	r := NewRow()
	for _, k := range slices.Sorted(maps.Keys(m)) {
		r.Set(k, m[k])
	}
	return r
}

// Set sets the value of a column. Setting a column again keeps its
// original position.
func (r *Row) Set(column string, v any) *Row {
	if _, ok := r.values[column]; !ok {
		r.keys = append(r.keys, column)
	}
	r.values[column] = v
	return r
}

// Get returns the value of a column.
func (r *Row) Get(column string) (any, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Keys returns the column names in insertion order.
func (r *Row) Keys() []string {
	return slices.Clone(r.keys)
}

// Len returns the number of columns set.
func (r *Row) Len() int { return len(r.keys) }

// InsertResult reports the outcome of an insert.
type InsertResult struct {
	RowsAffected int64
	Batch        bool
	// LastInsertID is set only when the driver reports one.
	LastInsertID *int64
}

// InsertBuilder builds an INSERT statement for one table.
// An InsertBuilder must not be configured concurrently.
type InsertBuilder struct {
	db    *Database
	table schema.Declaration
	rows  []*Row
	batch bool
}

// Insert starts an INSERT statement into table.
//
//	res, err := db.Insert(users).
//		Values(query.NewRow().Set("name", "a8m").Set("age", 30)).
//		Execute(ctx)
func (db *Database) Insert(table schema.Declaration) *InsertBuilder {
	return &InsertBuilder{db: db, table: table}
}

// Values sets a single row to insert.
func (b *InsertBuilder) Values(row *Row) *InsertBuilder {
	b.rows, b.batch = []*Row{row}, false
	return b
}

// Rows sets the rows of a batch insert. Every row must set the same
// columns as the first one.
func (b *InsertBuilder) Rows(rows ...*Row) *InsertBuilder {
	b.rows, b.batch = rows, true
	return b
}

// check validates the rows against the table and returns the column order
// of the statement.
func (b *InsertBuilder) check(t *schema.Table) ([]schema.Column, error) {
	name := t.Name()
	if len(b.rows) == 0 || b.rows[0] == nil {
		return nil, schemix.Queryf(name, "insert", "insert requires values")
	}
	for i, r := range b.rows {
		if r == nil {
			return nil, schemix.Queryf(name, "insert", "row %d is nil", i)
		}
		for _, k := range r.keys {
			if _, ok := t.Column(k); !ok {
				return nil, schemix.Queryf(name, "insert", "column %q does not exist in table %q", k, name)
			}
		}
	}
	first := b.rows[0]
	for i, r := range b.rows[1:] {
		var missing, unexpected []string
		for _, k := range first.keys {
			if _, ok := r.values[k]; !ok {
				missing = append(missing, k)
			}
		}
		for _, k := range r.keys {
			if _, ok := first.values[k]; !ok {
				unexpected = append(unexpected, k)
			}
		}
		if len(missing) > 0 || len(unexpected) > 0 {
			slices.Sort(missing)
			slices.Sort(unexpected)
			return nil, schemix.Queryf(name, "insert", "row %d does not match the columns of row 0: missing %q, unexpected %q", i+1, missing, unexpected)
		}
	}
	columns := make([]schema.Column, len(first.keys))
	for i, k := range first.keys {
		columns[i], _ = t.Column(k)
	}
	return columns, nil
}

// tuple renders the placeholders of one row, serializing every value with
// its column codec.
func tuple(columns []schema.Column, r *Row, c *dialect.Collector) (string, error) {
	ph := make([]string, len(columns))
	for i, col := range columns {
		v, err := col.Serialize(r.values[col.Name()])
		if err != nil {
			return "", err
		}
		ph[i] = c.Add(v)
	}
	return "(" + strings.Join(ph, ", ") + ")", nil
}

func head(name string, columns []schema.Column) string {
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.Name()
	}
	return "INSERT INTO " + name + " (" + strings.Join(names, ", ") + ") VALUES "
}

// SQL renders the statement and its arguments. Columns appear in the
// order they were set on the first row.
func (b *InsertBuilder) SQL() (string, []any, error) {
	t, err := b.db.resolve(b.table)
	if err != nil {
		return "", nil, err
	}
	name := t.Name()
	columns, err := b.check(t)
	if err != nil {
		return "", nil, err
	}
	c, err := dialect.NewCollector(b.db.dialect)
	if err != nil {
		return "", nil, err
	}
	if len(columns) == 0 {
		if len(b.rows) > 1 {
			return "", nil, schemix.Queryf(name, "insert", "batch insert requires at least one column")
		}
		return "INSERT INTO " + name + " DEFAULT VALUES", c.Args(), nil
	}
	tuples := make([]string, len(b.rows))
	for i, r := range b.rows {
		if tuples[i], err = tuple(columns, r, c); err != nil {
			return "", nil, err
		}
	}
	return head(name, columns) + strings.Join(tuples, ", "), c.Args(), nil
}

// SQLMany renders a single-row statement and one argument set per row,
// for drivers executing a statement many times.
func (b *InsertBuilder) SQLMany() (string, [][]any, error) {
	t, err := b.db.resolve(b.table)
	if err != nil {
		return "", nil, err
	}
	name := t.Name()
	columns, err := b.check(t)
	if err != nil {
		return "", nil, err
	}
	if len(columns) == 0 {
		return "", nil, schemix.Queryf(name, "insert", "batch insert requires at least one column")
	}
	var (
		stmt    string
		argsets = make([][]any, len(b.rows))
	)
	for i, r := range b.rows {
		c, err := dialect.NewCollector(b.db.dialect)
		if err != nil {
			return "", nil, err
		}
		tup, err := tuple(columns, r, c)
		if err != nil {
			return "", nil, err
		}
		stmt, argsets[i] = head(name, columns)+tup, c.Args()
	}
	return stmt, argsets, nil
}

// Execute runs the statement. Driver failures are returned as a
// QueryError; constraint violations can be detected with
// schemix.IsConstraintError.
func (b *InsertBuilder) Execute(ctx context.Context) (*InsertResult, error) {
	query, args, err := b.SQL()
	if err != nil {
		return nil, err
	}
	t, _ := b.db.resolve(b.table)
	name, logger := t.Name(), b.db.logger
	drv, err := b.db.driver(name, "insert")
	if err != nil {
		return nil, err
	}
	logger.DebugContext(ctx, "executing insert", "table", name, "sql", query, "args", len(args), "rows", len(b.rows))
	start := time.Now()
	var res sql.Result
	if err := drv.Exec(ctx, query, args, &res); err != nil {
		logger.ErrorContext(ctx, "insert failed", "table", name, "error", err)
		return nil, schemix.NewQueryError(name, "insert", sql.WrapConstraintError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, schemix.NewQueryError(name, "insert", fmt.Errorf("rows affected: %w", err))
	}
	result := &InsertResult{RowsAffected: n, Batch: b.batch}
	if id, err := res.LastInsertId(); err == nil {
		result.LastInsertID = &id
	}
	logger.DebugContext(ctx, "insert executed", "table", name, "rows_affected", n, "elapsed", time.Since(start))
	return result, nil
}

// ExecuteMany runs a single-row statement once per row through one
// prepared statement. The driver must implement dialect.ManyExecer.
// Rows inserted before a failure stay inserted unless the driver is a
// transaction that is rolled back.
func (b *InsertBuilder) ExecuteMany(ctx context.Context) (*InsertResult, error) {
	query, argsets, err := b.SQLMany()
	if err != nil {
		return nil, err
	}
	t, _ := b.db.resolve(b.table)
	name, logger := t.Name(), b.db.logger
	drv, err := b.db.driver(name, "insert")
	if err != nil {
		return nil, err
	}
	me, ok := drv.(dialect.ManyExecer)
	if !ok {
		return nil, schemix.Queryf(name, "insert", "driver %T cannot execute a statement many times", drv)
	}
	logger.DebugContext(ctx, "executing insert many", "table", name, "sql", query, "rows", len(argsets))
	start := time.Now()
	n, err := me.ExecMany(ctx, query, argsets)
	if err != nil {
		logger.ErrorContext(ctx, "insert many failed", "table", name, "rows_affected", n, "error", err)
		return nil, schemix.NewQueryError(name, "insert", sql.WrapConstraintError(err))
	}
	logger.DebugContext(ctx, "insert many executed", "table", name, "rows_affected", n, "elapsed", time.Since(start))
	return &InsertResult{RowsAffected: n, Batch: true}, nil
}
