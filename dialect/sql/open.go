package sql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/syssam/schemix"
	"github.com/syssam/schemix/dialect"
)

// pingTimeout bounds the connectivity check done by the openers.
const pingTimeout = 5 * time.Second

// OpenSQLite opens a SQLite database with the modernc.org/sqlite driver and
// foreign key enforcement enabled. In-memory databases are limited to a
// single connection, as every connection to ":memory:" is a new database.
//
//	drv, err := sql.OpenSQLite(ctx, "file:app.db")
//	drv, err := sql.OpenSQLite(ctx, ":memory:")
func OpenSQLite(ctx context.Context, dsn string) (*Driver, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, schemix.Configurationf("sqlite", "DSN must not be empty")
	}
	if !strings.Contains(dsn, "_pragma=foreign_keys") {
		dsn = withParam(dsn, "_pragma=foreign_keys(1)")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, schemix.NewConnectionError("open", err)
	}
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}
	if err := ping(ctx, db); err != nil {
		return nil, err
	}
	return OpenDB(dialect.SQLite, db), nil
}

// PoolOption configures the pgx connection pool used by OpenPostgres.
type PoolOption func(*pgxpool.Config)

// WithMaxConns sets the maximum size of the pool.
func WithMaxConns(n int32) PoolOption {
	return func(c *pgxpool.Config) { c.MaxConns = n }
}

// WithMinConns sets the minimum number of idle connections kept open.
func WithMinConns(n int32) PoolOption {
	return func(c *pgxpool.Config) { c.MinConns = n }
}

// WithMaxConnLifetime sets how long a connection may be reused.
func WithMaxConnLifetime(d time.Duration) PoolOption {
	return func(c *pgxpool.Config) { c.MaxConnLifetime = d }
}

// WithMaxConnIdleTime sets how long a connection may stay idle.
func WithMaxConnIdleTime(d time.Duration) PoolOption {
	return func(c *pgxpool.Config) { c.MaxConnIdleTime = d }
}

// OpenPostgres opens a pgx connection pool and exposes it through
// database/sql. Closing the returned driver closes the pool.
func OpenPostgres(ctx context.Context, dsn string, opts ...PoolOption) (*Driver, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, schemix.NewConfigurationError("postgres", err)
	}
	for _, opt := range opts {
		opt(cfg)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, schemix.NewConnectionError("open", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	if err := ping(ctx, db); err != nil {
		pool.Close()
		return nil, err
	}
	drv := OpenDB(dialect.Postgres, db)
	drv.onClose = pool.Close
	return drv, nil
}

// OpenPQ opens a Postgres database with the lib/pq driver.
func OpenPQ(ctx context.Context, dsn string) (*Driver, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, schemix.NewConnectionError("open", err)
	}
	if err := ping(ctx, db); err != nil {
		return nil, err
	}
	return OpenDB(dialect.Postgres, db), nil
}

func ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return schemix.NewConnectionError("ping", err)
	}
	return nil
}

func withParam(dsn, param string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + param
	}
	return dsn + "?" + param
}
