// Package sqlschema renders CREATE TABLE statements for registered tables
// and validates sets of tables before they are created.
//
//	stmt, err := sqlschema.CreateTable(dialect.Postgres, users.Schema())
//	// CREATE TABLE users (
//	//   id SERIAL PRIMARY KEY,
//	//   email VARCHAR(255) NOT NULL UNIQUE,
//	//   team_id INTEGER,
//	//   FOREIGN KEY (team_id) REFERENCES teams(id) ON DELETE CASCADE
//	// )
//
// Column definitions follow declaration order and are written as
// "name type [PRIMARY KEY] [NOT NULL] [UNIQUE] [DEFAULT literal]". UNIQUE is
// left out for primary keys. Foreign keys follow the columns, one line per
// referencing column.
//
// Default values are declaration time constants and are rendered as
// literals: strings are single quoted without escaping, booleans use 0/1 on
// SQLite and TRUE/FALSE on Postgres, sql.Raw values are written verbatim.
// A nil default renders no DEFAULT clause; use sql.Raw("NULL") to spell it out.
// Defaults must not come from untrusted input.
package sqlschema
