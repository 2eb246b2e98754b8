package query

import (
	"context"
	"errors"
	"log/slog"

	"github.com/syssam/schemix"
	"github.com/syssam/schemix/dialect"
	"github.com/syssam/schemix/dialect/sqlschema"
	"github.com/syssam/schemix/schema"
)

// Database builds queries against an explicit set of tables and executes
// them through a driver.
type Database struct {
	drv     dialect.Driver
	dialect string
	tables  []*schema.Table
	known   map[*schema.Table]bool
	logger  *slog.Logger
}

// Option configures a Database.
type Option func(*Database)

// WithLogger sets the logger used for statement and failure logging.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(db *Database) {
		if l != nil {
			db.logger = l
		}
	}
}

// New returns a Database executing through drv. Only the given tables can
// be queried.
//
//	db, err := query.New(drv, []schema.Declaration{users, posts})
func New(drv dialect.Driver, tables []schema.Declaration, opts ...Option) (*Database, error) {
	if drv == nil {
		return nil, schemix.NewConfigurationError("database", schemix.ErrNoDriver)
	}
	return newDatabase(drv, drv.Dialect(), tables, opts)
}

// ForDialect returns a Database without a driver. It renders statements for
// dialect d; executing them fails.
func ForDialect(d string, tables []schema.Declaration, opts ...Option) (*Database, error) {
	return newDatabase(nil, d, tables, opts)
}

func newDatabase(drv dialect.Driver, d string, decls []schema.Declaration, opts []Option) (*Database, error) {
	d, err := dialect.Parse(d)
	if err != nil {
		return nil, err
	}
	db := &Database{
		drv:     drv,
		dialect: d,
		known:   make(map[*schema.Table]bool, len(decls)),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(db)
	}
	names := make(map[string]bool, len(decls))
	var errs []error
	for _, decl := range decls {
		if decl == nil || decl.Schema() == nil {
			errs = append(errs, errors.New("nil table"))
			continue
		}
		t := decl.Schema()
		name, err := t.TableName()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if names[name] {
			errs = append(errs, schemix.Configurationf(name, "duplicate table"))
			continue
		}
		names[name] = true
		db.known[t] = true
		db.tables = append(db.tables, t)
	}
	if len(errs) > 0 {
		return nil, schemix.NewConfigurationError("database", errors.Join(errs...))
	}
	return db, nil
}

// Dialect returns the dialect statements are rendered for.
func (db *Database) Dialect() string { return db.dialect }

// Driver returns the underlying driver, or nil for render-only databases.
func (db *Database) Driver() dialect.Driver { return db.drv }

// Tables returns the participating tables in registration order.
func (db *Database) Tables() []*schema.Table {
	return append([]*schema.Table(nil), db.tables...)
}

// Table returns the participating table with the given name.
func (db *Database) Table(name string) (*schema.Table, bool) {
	for _, t := range db.tables {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// Close closes the underlying driver.
func (db *Database) Close() error {
	if db.drv == nil {
		return nil
	}
	return db.drv.Close()
}

// resolve returns the table of decl, checking that it participates in db.
func (db *Database) resolve(decl schema.Declaration) (*schema.Table, error) {
	if decl == nil || decl.Schema() == nil {
		return nil, schemix.Configurationf("table", "table is nil")
	}
	t := decl.Schema()
	name, err := t.TableName()
	if err != nil {
		return nil, err
	}
	if !db.known[t] {
		return nil, schemix.Queryf(name, "resolve", "table is not part of the database")
	}
	return t, nil
}

func (db *Database) driver(table, op string) (dialect.Driver, error) {
	if db.drv == nil {
		return nil, schemix.NewQueryError(table, op, schemix.ErrNoDriver)
	}
	return db.drv, nil
}

// CreateTables validates the participating tables and creates them in one
// transaction, in registration order.
func (db *Database) CreateTables(ctx context.Context, opts ...sqlschema.CreateOption) (rerr error) {
	result := sqlschema.ValidateSchema(db.dialect, db.tables)
	for _, w := range result.Warnings {
		db.logger.WarnContext(ctx, "schema warning", "table", w.Table, "column", w.Column, "message", w.Message)
	}
	if err := result.Err(); err != nil {
		return err
	}
	stmts, err := sqlschema.CreateTables(ctx, db.dialect, db.tables, append([]sqlschema.CreateOption{sqlschema.WithLogger(db.logger)}, opts...)...)
	if err != nil {
		return err
	}
	drv, err := db.driver("", "create tables")
	if err != nil {
		return err
	}
	tx, err := drv.Tx(ctx)
	if err != nil {
		return schemix.NewQueryError("", "create tables", err)
	}
	defer func() {
		if rerr != nil {
			rerr = errors.Join(rerr, tx.Rollback())
		}
	}()
	for i, stmt := range stmts {
		name := db.tables[i].Name()
		db.logger.DebugContext(ctx, "creating table", "table", name)
		if err := tx.Exec(ctx, stmt, []any{}, nil); err != nil {
			db.logger.ErrorContext(ctx, "create table failed", "table", name, "error", err)
			return schemix.NewQueryError(name, "create table", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return schemix.NewQueryError("", "create tables", err)
	}
	db.logger.InfoContext(ctx, "tables created", "count", len(stmts))
	return nil
}
