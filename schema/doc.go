// Package schema registers tables and their columns.
//
// A table is declared as a struct that embeds Table and holds its columns
// as exported fields. Define scans the struct once, binds every column to
// the table and fills in the embedded Table:
//
//	type Users struct {
//		schema.Table
//		ID    *field.Column
//		Email *field.Column
//		Age   *field.Column
//	}
//
//	var users = schema.MustDefine(&Users{
//		ID:    field.Integer("id").PrimaryKey(),
//		Email: field.Varchar("email", 255).NotNull().Unique(),
//		Age:   field.Integer("age"),
//	})
//
//	users.Name()           // "users"
//	users.Age.GT(18)       // (users.age > $1)
//	users.Required()       // [email]
//
// Only fields whose type implements Column are registered. Embedded structs
// other than Table are scanned in place, which is how the mixin package
// contributes columns. Tables can also be registered without a declaration
// struct using New.
//
// There is no global registry. A query.Database is given the tables it
// works with explicitly.
package schema
