package sqlschema

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/schemix"
	"github.com/syssam/schemix/dialect"
	"github.com/syssam/schemix/dialect/sql"
	"github.com/syssam/schemix/schema"
)

// CreateOption configures CREATE TABLE rendering.
type CreateOption func(*createOptions)

type createOptions struct {
	ifNotExists bool
	logger      *slog.Logger
}

// IfNotExists renders CREATE TABLE IF NOT EXISTS.
func IfNotExists() CreateOption {
	return func(o *createOptions) { o.ifNotExists = true }
}

// WithLogger sets the logger generated statements are reported to.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) CreateOption {
	return func(o *createOptions) { o.logger = l }
}

func newCreateOptions(opts []CreateOption) *createOptions {
	o := &createOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CreateTable renders the CREATE TABLE statement of t.
func CreateTable(d string, t *schema.Table, opts ...CreateOption) (string, error) {
	return createTable(d, t, newCreateOptions(opts))
}

func createTable(d string, t *schema.Table, o *createOptions) (string, error) {
	if !dialect.Valid(d) {
		return "", schemix.NewDialectNotSupportedError(d, "CREATE TABLE")
	}
	name, err := t.TableName()
	if err != nil {
		return "", err
	}
	var (
		defs []string
		fks  []string
	)
	for _, c := range t.Columns() {
		def, err := ColumnSQL(d, c)
		if err != nil {
			return "", err
		}
		defs = append(defs, def)
		if c.ForeignKey() == nil {
			continue
		}
		fk, err := ForeignKeySQL(c)
		if err != nil {
			return "", err
		}
		fks = append(fks, fk)
	}
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	if o.ifNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(name)
	b.WriteString(" (\n")
	for i, el := range append(defs, fks...) {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("  ")
		b.WriteString(el)
	}
	b.WriteString("\n)")
	o.logger.Debug("generated create table", "table", name, "dialect", d, "columns", len(defs), "foreign_keys", len(fks))
	return b.String(), nil
}

// CreateTables renders the CREATE TABLE statements of all tables. The
// statements are rendered concurrently and returned in the order of tables.
func CreateTables(ctx context.Context, d string, tables []*schema.Table, opts ...CreateOption) ([]string, error) {
	o := newCreateOptions(opts)
	stmts := make([]string, len(tables))
	g, ctx := errgroup.WithContext(ctx)
	for i, t := range tables {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stmt, err := createTable(d, t, o)
			if err != nil {
				return err
			}
			stmts[i] = stmt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stmts, nil
}

// ColumnSQL renders the definition of a single column.
func ColumnSQL(d string, c schema.Column) (string, error) {
	typ, err := c.SQLType(d)
	if err != nil {
		return "", err
	}
	parts := []string{c.Name(), typ}
	if c.IsPrimaryKey() {
		parts = append(parts, "PRIMARY KEY")
	}
	if !c.IsNullable() {
		parts = append(parts, "NOT NULL")
	}
	if c.IsUnique() && !c.IsPrimaryKey() {
		parts = append(parts, "UNIQUE")
	}
	if v, ok := c.DefaultValue(); ok && v != nil {
		lit, err := DefaultLiteral(d, c, v)
		if err != nil {
			return "", err
		}
		parts = append(parts, "DEFAULT "+lit)
	}
	return strings.Join(parts, " "), nil
}

// ForeignKeySQL renders the FOREIGN KEY clause of a referencing column.
// The referenced column must already be registered.
func ForeignKeySQL(c schema.Column) (string, error) {
	fk := c.ForeignKey()
	if fk == nil {
		return "", schemix.Configurationf(c.QualifiedName(), "column has no foreign key")
	}
	if fk.Column == nil || fk.Column.Table() == nil || fk.Column.Table().Name() == "" {
		return "", schemix.Configurationf(c.QualifiedName(), "foreign key references a column of an unregistered table")
	}
	s := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s)", c.Name(), fk.Column.Table().Name(), fk.Column.Name())
	if fk.OnDelete != "" {
		s += " ON DELETE " + string(fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		s += " ON UPDATE " + string(fk.OnUpdate)
	}
	return s, nil
}

// DefaultLiteral renders a column default. Strings are quoted verbatim,
// numbers are written as is, and values of other types are first encoded
// with the column codec.
func DefaultLiteral(d string, c schema.Column, v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case sql.Raw:
		return string(x), nil
	case string:
		return "'" + x + "'", nil
	case bool:
		if d == dialect.SQLite {
			if x {
				return "1", nil
			}
			return "0", nil
		}
		return strings.ToUpper(strconv.FormatBool(x)), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(x), nil
	}
	enc, err := c.Serialize(v)
	if err != nil {
		return "", err
	}
	if s, ok := enc.(string); ok {
		return "'" + s + "'", nil
	}
	return fmt.Sprint(enc), nil
}
