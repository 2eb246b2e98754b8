// Package query builds and executes SELECT and INSERT statements against an
// explicit set of registered tables.
//
// A Database pairs a driver with the tables it may touch:
//
//	drv, err := sql.OpenSQLite(ctx, "file:app.db")
//	db, err := query.New(drv, []schema.Declaration{users, posts})
//	err = db.CreateTables(ctx, sqlschema.IfNotExists())
//
// Builders accumulate clauses and render on demand. SQL is pure and returns
// the statement with its arguments in placeholder order; Execute renders and
// hands the pair to the driver:
//
//	rows, err := db.Select(query.Col(users.Name), query.As("posts", posts.ID.Count())).
//		From(users).
//		LeftJoin(posts, posts.AuthorID.EQ(users.ID)).
//		GroupBy(users.Name).
//		Execute(ctx)
//
//	res, err := db.Insert(users).Rows(
//		query.NewRow().Set("name", "a8m").Set("age", 30),
//		query.NewRow().Set("name", "nati").Set("age", 28),
//	).Execute(ctx)
//
// Invalid queries fail before any I/O with a schemix.QueryError. Driver
// failures are returned as a QueryError wrapping the driver error, so
// schemix.IsConnectionError and schemix.IsConstraintError work on them.
//
// A context cancelled during Execute aborts the statement in the driver and
// the error wraps context.Canceled. Nothing is rolled back by the builders:
// run statements through Database.WithTx for all-or-nothing batches.
//
// Builders are not safe for concurrent use. A Database is, as long as its
// driver is.
package query
