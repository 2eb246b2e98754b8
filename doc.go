// Package schemix holds the error types shared by the schemix packages.
//
// Tables are declared with package schema and its field and mixin
// subpackages, statements are built with package query, and package
// dialect/sql executes them through database/sql:
//
//	type Users struct {
//		schema.Table
//		ID   *field.Column
//		Name *field.Column
//		Age  *field.Column
//	}
//
//	users := schema.MustDefine(&Users{
//		ID:   field.Integer("id").PrimaryKey(),
//		Name: field.Text("name").NotNull(),
//		Age:  field.Integer("age"),
//	})
//	drv, err := sql.OpenSQLite(ctx, "file:app.db")
//	db, err := query.New(drv, []schema.Declaration{users})
//	rows, err := db.Select(query.Col(users.Name)).From(users).Where(users.Age.GT(18)).Execute(ctx)
//
// Every failure is one of ConfigurationError, QueryError, ConnectionError,
// DialectNotSupportedError or SerializationError, matched by errors.Is
// against the Err sentinels or with the Is helpers. Driver constraint
// violations are additionally wrapped in a ConstraintError.
package schemix
