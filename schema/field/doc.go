// Package field provides the typed columns tables are declared with.
//
// A column is created by a constructor named after its type and configured
// with chained calls:
//
//	field.Integer("id").PrimaryKey()
//	field.Varchar("email", 255).NotNull().Unique()
//	field.Timestamp("created_at", field.WithTimezone()).Default(sql.Raw("CURRENT_TIMESTAMP"))
//	field.Integer("author_id").References(users.ID, field.OnDelete(field.Cascade))
//
// Columns are nullable unless NotNull is called. Once a column is bound to
// its table the configuration is frozen and the setters panic.
//
// Every column type declares the operator groups it supports (see
// Capability). The operator methods of Column return sql.Expr values; an
// operator outside the column's groups yields an expression that fails to
// render with a query error.
//
//	users.Age.GT(18)            // (users.age > $1)
//	users.Name.Like("a%")       // (users.name LIKE $1)
//	users.Score.Pow(2)          // POWER(users.score, ?) on SQLite
//
// Literal operands and inserted values are converted with the column codec:
// dates and times use civil.Date and civil.Time, timestamps RFC 3339 text,
// JSON columns encoding/json, UUID columns uuid.UUID and MsgPack columns
// MessagePack.
package field
