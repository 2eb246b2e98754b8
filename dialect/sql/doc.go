// Package sql provides the expression tree used to build SQL predicates,
// arithmetic and aggregates, together with a database/sql based driver.
//
// # Expressions
//
// Expressions are immutable trees of BinaryNode, UnaryNode and FuncNode
// values. Composing them never evaluates anything:
//
//	sql.GT(users.Age, 18)                       // (users.age > $1)
//	sql.And(users.Age.GTE(18), users.Name.Like("a%"))
//	sql.Not(users.Active.EQ(true))              // (NOT (users.active = $1))
//	sql.CountDistinct(users.Email)              // COUNT(DISTINCT users.email)
//	sql.Pow(users.Score, 2)                     // (users.score ^ $1), POWER(users.score, ?) on SQLite
//
// Operands are rendered by kind: nodes recurse, columns render as their
// qualified name, and everything else is a literal handed to the
// dialect.Collector, which returns the placeholder for it. Raw fragments
// such as sql.Raw("*") are written verbatim.
//
// Render produces the SQL text and the ordered arguments of a standalone node:
//
//	query, args, err := sql.Render(dialect.Postgres, sql.GT(users.Age, 18))
//	// "(users.age > $1)", [18]
//
// # Driver
//
// Driver implements dialect.Driver over database/sql. Every error returned
// by the database is wrapped in a schemix.ConnectionError:
//
//	drv, err := sql.OpenSQLite(ctx, "file:app.db")
//	drv, err := sql.OpenPostgres(ctx, "postgres://localhost:5432/app", sql.WithMaxConns(10))
//	drv, err := sql.OpenPQ(ctx, "postgres://localhost:5432/app?sslmode=disable")
//
// Drivers can also be opened from a YAML Config with OpenConfig.
//
// Query results are read with ScanMaps, which returns one map per row keyed
// by column name. ExecMany runs one statement against several argument sets
// through a prepared statement.
//
// On Postgres, WithVar attaches settings to a context. They are applied
// with SET before each statement run with that context and reset when the
// pooled connection is released:
//
//	ctx = sql.WithVar(ctx, "statement_timeout", "2s")
//
// # Statistics and Debugging
//
// StatsDriver counts statements per kind (select, insert, ddl) and reports
// slow ones through a hook. DebugDriver logs every statement with slog:
//
//	stats := sql.NewStatsDriver(drv, sql.WithSlowThreshold(100*time.Millisecond), sql.WithSlowLog(nil))
//	debug := sql.NewDebugDriver(drv, sql.DebugLevel(slog.LevelDebug))
//
// # Constraint Errors
//
// ConstraintKind classifies driver errors as unique, foreign key, not null
// or check violations using SQLSTATE codes with message fallbacks for SQLite.
package sql
