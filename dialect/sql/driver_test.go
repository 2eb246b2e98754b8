package sql

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/schemix"
	"github.com/syssam/schemix/dialect"
)

func mockDriver(t *testing.T, name string) (*Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return OpenDB(name, db), mock
}

func TestDriverDialect(t *testing.T) {
	tests := map[string]string{
		dialect.SQLite:   dialect.SQLite,
		dialect.Postgres: dialect.Postgres,
		"sqlite3":        dialect.SQLite,
		"pgx":            dialect.Postgres,
		"postgresql":     dialect.Postgres,
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			drv, _ := mockDriver(t, name)
			assert.Equal(t, want, drv.Dialect())
		})
	}
}

func TestOpenUnknownDialect(t *testing.T) {
	_, err := Open("mysql", "root@/test")
	require.Error(t, err)
	assert.True(t, schemix.IsDialectNotSupported(err))
}

func TestDriverQuery(t *testing.T) {
	drv, mock := mockDriver(t, dialect.Postgres)

	t.Run("args", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM users WHERE id = $1")).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Alice"))

		rows := &Rows{}
		require.NoError(t, drv.Query(context.Background(), "SELECT name FROM users WHERE id = $1", []any{1}, rows))
		require.True(t, rows.Next())
		var name string
		require.NoError(t, rows.Scan(&name))
		assert.Equal(t, "Alice", name)
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver_error", func(t *testing.T) {
		cause := errors.New("connection reset")
		mock.ExpectQuery("SELECT").WillReturnError(cause)

		err := drv.Query(context.Background(), "SELECT 1", []any{}, &Rows{})
		assert.True(t, schemix.IsConnectionError(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		mock.ExpectQuery("SELECT").WillReturnError(context.Canceled)

		err := drv.Query(ctx, "SELECT 1", []any{}, &Rows{})
		assert.True(t, schemix.IsConnectionError(err))
	})

	t.Run("bad_arguments", func(t *testing.T) {
		var rows Rows
		assert.EqualError(t, drv.Query(context.Background(), "SELECT 1", []any{}, rows),
			"dialect/sql: invalid type sql.Rows. expect *sql.Rows")
		assert.EqualError(t, drv.Query(context.Background(), "SELECT 1", []int{}, &rows),
			"dialect/sql: invalid type []int. expect []any for args")
	})
}

func TestDriverExec(t *testing.T) {
	drv, mock := mockDriver(t, dialect.SQLite)

	t.Run("result", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (name) VALUES (?)")).
			WithArgs("Alice").
			WillReturnResult(sqlmock.NewResult(7, 1))

		var res sql.Result
		require.NoError(t, drv.Exec(context.Background(), "INSERT INTO users (name) VALUES (?)", []any{"Alice"}, &res))
		id, err := res.LastInsertId()
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no_result", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 3))
		require.NoError(t, drv.Exec(context.Background(), "DELETE FROM users", []any{}, nil))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver_error", func(t *testing.T) {
		mock.ExpectExec("DELETE").WillReturnError(errors.New("database is locked"))
		err := drv.Exec(context.Background(), "DELETE FROM users", []any{}, nil)
		assert.True(t, schemix.IsConnectionError(err))
		assert.EqualError(t, err, "schemix: connection: exec: database is locked")
	})

	t.Run("bad_target", func(t *testing.T) {
		var n int
		assert.EqualError(t, drv.Exec(context.Background(), "DELETE FROM users", []any{}, &n),
			"dialect/sql: invalid type *int. expect *sql.Result")
	})
}

func TestDriverTx(t *testing.T) {
	drv, mock := mockDriver(t, dialect.Postgres)

	t.Run("commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectCommit()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		require.NoError(t, tx.Exec(context.Background(), "INSERT INTO users DEFAULT VALUES", []any{}, nil))
		rows := &Rows{}
		require.NoError(t, tx.Query(context.Background(), "SELECT id FROM users", []any{}, rows))
		require.NoError(t, rows.Close())
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO users").WillReturnError(errors.New("duplicate key"))
		mock.ExpectRollback()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		require.Error(t, tx.Exec(context.Background(), "INSERT INTO users DEFAULT VALUES", []any{}, nil))
		require.NoError(t, tx.Rollback())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin_error", func(t *testing.T) {
		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))
		_, err := drv.Tx(context.Background())
		assert.EqualError(t, err, "schemix: connection: begin: too many connections")
	})
}

func TestDriverClose(t *testing.T) {
	drv, mock := mockDriver(t, dialect.Postgres)
	var closed bool
	drv.onClose = func() { closed = true }
	mock.ExpectClose()
	require.NoError(t, drv.Close())
	assert.True(t, closed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecMany(t *testing.T) {
	drv, mock := mockDriver(t, dialect.SQLite)
	const query = "INSERT INTO users (name) VALUES (?)"

	t.Run("ok", func(t *testing.T) {
		prep := mock.ExpectPrepare(regexp.QuoteMeta(query))
		prep.ExpectExec().WithArgs("a").WillReturnResult(sqlmock.NewResult(1, 1))
		prep.ExpectExec().WithArgs("b").WillReturnResult(sqlmock.NewResult(2, 1))

		n, err := drv.ExecMany(context.Background(), query, [][]any{{"a"}, {"b"}})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stops_at_failing_set", func(t *testing.T) {
		prep := mock.ExpectPrepare(regexp.QuoteMeta(query))
		prep.ExpectExec().WithArgs("a").WillReturnResult(sqlmock.NewResult(1, 1))
		prep.ExpectExec().WithArgs("b").WillReturnError(errors.New("disk full"))

		n, err := drv.ExecMany(context.Background(), query, [][]any{{"a"}, {"b"}, {"c"}})
		assert.Equal(t, int64(1), n)
		assert.True(t, schemix.IsConnectionError(err))
		assert.Contains(t, err.Error(), "argument set 1")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("prepare_error", func(t *testing.T) {
		mock.ExpectPrepare(regexp.QuoteMeta(query)).WillReturnError(errors.New("syntax error"))
		_, err := drv.ExecMany(context.Background(), query, [][]any{{"a"}})
		assert.EqualError(t, err, "schemix: connection: prepare: syntax error")
	})

	t.Run("in_transaction", func(t *testing.T) {
		mock.ExpectBegin()
		prep := mock.ExpectPrepare(regexp.QuoteMeta(query))
		prep.ExpectExec().WithArgs("c").WillReturnResult(sqlmock.NewResult(3, 1))
		mock.ExpectCommit()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		n, err := tx.(dialect.ManyExecer).ExecMany(context.Background(), query, [][]any{{"c"}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestScanMaps(t *testing.T) {
	drv, mock := mockDriver(t, dialect.Postgres)

	t.Run("rows", func(t *testing.T) {
		mock.ExpectQuery("SELECT").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
				AddRow(int64(1), "Alice").
				AddRow(int64(2), nil))

		rows := &Rows{}
		require.NoError(t, drv.Query(context.Background(), "SELECT id, name FROM users", []any{}, rows))
		got, err := ScanMaps(rows)
		require.NoError(t, err)
		assert.Equal(t, []map[string]any{
			{"id": int64(1), "name": "Alice"},
			{"id": int64(2), "name": nil},
		}, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty", func(t *testing.T) {
		mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}))

		rows := &Rows{}
		require.NoError(t, drv.Query(context.Background(), "SELECT id FROM users", []any{}, rows))
		got, err := ScanMaps(rows)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("row_error", func(t *testing.T) {
		mock.ExpectQuery("SELECT").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).
				AddRow(int64(1)).
				RowError(0, errors.New("network reset")))

		rows := &Rows{}
		require.NoError(t, drv.Query(context.Background(), "SELECT id FROM users", []any{}, rows))
		_, err := ScanMaps(rows)
		assert.True(t, schemix.IsConnectionError(err))
	})
}

func BenchmarkDriverExec(b *testing.B) {
	db, mock, err := sqlmock.New()
	if err != nil {
		b.Fatal(err)
	}
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)
	for i := 0; i < b.N; i++ {
		mock.ExpectExec("INSERT").WillReturnResult(sqlmock.NewResult(1, 1))
		_ = drv.Exec(context.Background(), "INSERT INTO t DEFAULT VALUES", []any{}, nil)
	}
}
