// Package dialect defines the closed set of SQL dialects supported by schemix
// and the pieces of rendering that depend on them.
//
// # Supported Dialects
//
//   - SQLite: SQLite database
//   - Postgres: PostgreSQL database
//
// Driver names are normalized with Parse:
//
//	dialect.Parse("sqlite3")    // "sqlite"
//	dialect.Parse("postgresql") // "postgres"
//	dialect.Parse("pgx")        // "postgres"
//
// # Placeholders
//
// SQLite binds positional "?" markers while Postgres uses "$1", "$2", ...
// A Collector gathers the arguments of one rendering pass and returns the
// marker for each, so the argument order always equals the order in which
// markers appear in the generated text:
//
//	c, _ := dialect.NewCollector(dialect.Postgres)
//	c.Add(18)   // "$1"
//	c.Add("a%") // "$2"
//	c.Args()    // [18 "a%"]
//
// # Operators
//
// Operator renderings are looked up in a table keyed by (operator, dialect)
// that is checked for completeness when the package is initialized. SQLite
// has no "^" operator and renders POWER(a, b) instead, and it rejects ILIKE
// with a DialectNotSupportedError.
//
// # Driver Interface
//
// Builders execute through the Driver interface:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// The database/sql implementation lives in dialect/sql.
package dialect
