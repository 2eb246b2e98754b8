package query_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/schemix"
	"github.com/syssam/schemix/dialect"
	"github.com/syssam/schemix/dialect/sql"
	"github.com/syssam/schemix/dialect/sqlschema"
	"github.com/syssam/schemix/query"
	"github.com/syssam/schemix/schema"
	"github.com/syssam/schemix/schema/field"
)

type Users struct {
	schema.Table
	ID       *field.Column
	Name     *field.Column
	Age      *field.Column
	Active   *field.Column
	Birthday *field.Column
}

type Posts struct {
	schema.Table
	ID       *field.Column
	AuthorID *field.Column
	Title    *field.Column
}

// fixtures declares a fresh pair of tables; columns bind to one table only.
func fixtures(t *testing.T) (*Users, *Posts) {
	t.Helper()
	users := schema.MustDefine(&Users{
		ID:       field.Integer("id").PrimaryKey(),
		Name:     field.Text("name").NotNull(),
		Age:      field.Integer("age"),
		Active:   field.Boolean("active").Default(true),
		Birthday: field.Date("birthday"),
	})
	posts := schema.MustDefine(&Posts{
		ID:       field.Integer("id").PrimaryKey(),
		AuthorID: field.Integer("author_id").NotNull().References(users.ID, field.OnDelete(field.Cascade)),
		Title:    field.Varchar("title", 120),
	})
	return users, posts
}

func renderOnly(t *testing.T, d string) (*query.Database, *Users, *Posts) {
	t.Helper()
	users, posts := fixtures(t)
	db, err := query.ForDialect(d, []schema.Declaration{users, posts})
	require.NoError(t, err)
	return db, users, posts
}

func mocked(t *testing.T, d string) (*query.Database, sqlmock.Sqlmock, *Users, *Posts) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	users, posts := fixtures(t)
	db, err := query.New(sql.OpenDB(d, conn), []schema.Declaration{users, posts})
	require.NoError(t, err)
	return db, mock, users, posts
}

func TestNew(t *testing.T) {
	t.Run("nil_driver", func(t *testing.T) {
		_, err := query.New(nil, nil)
		require.Error(t, err)
		assert.True(t, schemix.IsConfigurationError(err))
		assert.ErrorIs(t, err, schemix.ErrNoDriver)
	})

	t.Run("duplicate_table", func(t *testing.T) {
		users, _ := fixtures(t)
		_, err := query.ForDialect(dialect.SQLite, []schema.Declaration{users, users})
		require.Error(t, err)
		assert.True(t, schemix.IsConfigurationError(err))
		assert.Contains(t, err.Error(), "duplicate table")
	})

	t.Run("nil_table", func(t *testing.T) {
		_, err := query.ForDialect(dialect.SQLite, []schema.Declaration{nil})
		assert.True(t, schemix.IsConfigurationError(err))
	})

	t.Run("unknown_dialect", func(t *testing.T) {
		_, err := query.ForDialect("oracle", nil)
		assert.True(t, schemix.IsDialectNotSupported(err))
	})

	t.Run("dialect_alias", func(t *testing.T) {
		db, err := query.ForDialect("postgresql", nil)
		require.NoError(t, err)
		assert.Equal(t, dialect.Postgres, db.Dialect())
		assert.Nil(t, db.Driver())
		assert.NoError(t, db.Close())
	})
}

func TestDatabaseTables(t *testing.T) {
	db, users, posts := renderOnly(t, dialect.SQLite)
	tables := db.Tables()
	require.Len(t, tables, 2)
	assert.Same(t, users.Schema(), tables[0])
	assert.Same(t, posts.Schema(), tables[1])

	tbl, ok := db.Table("posts")
	require.True(t, ok)
	assert.Same(t, posts.Schema(), tbl)
	_, ok = db.Table("comments")
	assert.False(t, ok)
}

func TestCreateTables(t *testing.T) {
	t.Run("transaction", func(t *testing.T) {
		db, mock, _, _ := mocked(t, dialect.Postgres)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS users (")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS posts (")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		require.NoError(t, db.CreateTables(context.Background(), sqlschema.IfNotExists()))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		db, mock, _, _ := mocked(t, dialect.Postgres)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE users (")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE posts (")).WillReturnError(errors.New("permission denied"))
		mock.ExpectRollback()

		err := db.CreateTables(context.Background())
		require.Error(t, err)
		assert.True(t, schemix.IsQueryError(err))
		assert.Contains(t, err.Error(), "posts")
		assert.Contains(t, err.Error(), "permission denied")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reference_outside_database", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()
		_, posts := fixtures(t)
		db, err := query.New(sql.OpenDB(dialect.SQLite, conn), []schema.Declaration{posts})
		require.NoError(t, err)

		err = db.CreateTables(context.Background())
		require.Error(t, err)
		assert.True(t, schemix.IsConfigurationError(err))
		assert.Contains(t, err.Error(), "outside the schema")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("render_only", func(t *testing.T) {
		db, _, _ := renderOnly(t, dialect.SQLite)
		err := db.CreateTables(context.Background())
		assert.ErrorIs(t, err, schemix.ErrNoDriver)
	})
}

func TestWithTx(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		db, mock, u, p := mocked(t, dialect.SQLite)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (name) VALUES (?)")).WithArgs("a8m").WillReturnResult(sqlmock.NewResult(1, 1))
		prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO posts (author_id) VALUES (?)"))
		prep.ExpectExec().WithArgs(1).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err := db.WithTx(context.Background(), func(tx *query.Database) error {
			if _, err := tx.Insert(u).Values(query.NewRow().Set("name", "a8m")).Execute(context.Background()); err != nil {
				return err
			}
			_, err := tx.Insert(p).Rows(query.NewRow().Set("author_id", 1)).ExecuteMany(context.Background())
			return err
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		db, mock, u, _ := mocked(t, dialect.SQLite)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (name) VALUES (?)")).WillReturnError(errors.New("NOT NULL constraint failed: users.name"))
		mock.ExpectRollback()

		err := db.WithTx(context.Background(), func(tx *query.Database) error {
			_, err := tx.Insert(u).Values(query.NewRow().Set("name", nil)).Execute(context.Background())
			return err
		})
		require.Error(t, err)
		assert.True(t, schemix.IsConstraintError(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested", func(t *testing.T) {
		db, mock, _, _ := mocked(t, dialect.SQLite)
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := db.WithTx(context.Background(), func(tx *query.Database) error {
			return tx.WithTx(context.Background(), func(*query.Database) error { return nil })
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nested transactions")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("panic", func(t *testing.T) {
		db, mock, _, _ := mocked(t, dialect.SQLite)
		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.PanicsWithValue(t, "boom", func() {
			_ = db.WithTx(context.Background(), func(*query.Database) error { panic("boom") })
		})
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("create_tables_joins_transaction", func(t *testing.T) {
		db, mock, _, _ := mocked(t, dialect.SQLite)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE users (")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE posts (")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := db.WithTx(context.Background(), func(tx *query.Database) error {
			return tx.CreateTables(context.Background())
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
