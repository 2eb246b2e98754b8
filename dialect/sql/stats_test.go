package sql

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/schemix/dialect"
)

func TestStatementKind(t *testing.T) {
	tests := []struct {
		query string
		want  Kind
	}{
		{"SELECT * FROM users", KindSelect},
		{"  select 1", KindSelect},
		{"WITH t AS (SELECT 1) SELECT * FROM t", KindSelect},
		{"INSERT INTO users DEFAULT VALUES", KindInsert},
		{"CREATE TABLE users (\n  id INTEGER\n)", KindDDL},
		{"DROP TABLE users", KindDDL},
		{"DELETE FROM users", KindOther},
		{"", KindOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatementKind(tt.query), tt.query)
	}
}

func TestStatsDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var slow []SlowStatement
	drv := NewStatsDriver(OpenDB(dialect.SQLite, db),
		WithSlowThreshold(-time.Nanosecond),
		WithSlowHook(func(_ context.Context, st SlowStatement) {
			slow = append(slow, st)
		}),
	)

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())

	mock.ExpectExec("DELETE FROM users").WillReturnError(errors.New("locked"))
	require.Error(t, drv.Exec(context.Background(), "DELETE FROM users", []any{}, nil))

	const insert = "INSERT INTO users (name) VALUES (?)"
	prep := mock.ExpectPrepare(regexp.QuoteMeta(insert))
	prep.ExpectExec().WithArgs("a").WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("b").WillReturnResult(sqlmock.NewResult(2, 1))
	_, err = drv.ExecMany(context.Background(), insert, [][]any{{"a"}, {"b"}})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	snap := drv.Stats().Snapshot()
	assert.Equal(t, int64(1), snap[KindSelect].Statements)
	assert.Equal(t, int64(1), snap[KindOther].Errors)
	assert.Equal(t, int64(1), snap[KindInsert].Statements)
	assert.Equal(t, int64(2), snap[KindInsert].ArgumentSets)

	total := snap.Total()
	assert.Equal(t, int64(3), total.Statements)
	assert.Equal(t, int64(4), total.ArgumentSets)
	assert.Equal(t, int64(3), total.Slow)

	require.Len(t, slow, 3)
	assert.Equal(t, KindOther, slow[1].Kind)
	assert.EqualError(t, slow[1].Err, "schemix: connection: exec: locked")
	assert.Equal(t, SlowStatement{Kind: KindInsert, Query: insert, Sets: 2, Duration: slow[2].Duration}, slow[2])

	lines := strings.Split(snap.String(), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "insert: statements=1 sets=2 errors=0 slow=1"))
	assert.True(t, strings.HasPrefix(lines[2], "select: statements=1"))

	drv.Stats().Reset()
	assert.Empty(t, drv.Stats().Snapshot())
	assert.Equal(t, time.Duration(0), KindStats{}.Avg())
}

func TestStatsDriverThreshold(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := NewStatsDriver(OpenDB(dialect.Postgres, db))
	assert.Equal(t, 100*time.Millisecond, drv.SlowThreshold())
	drv.SetSlowThreshold(time.Second)
	assert.Equal(t, time.Second, drv.SlowThreshold())
}

func TestStatsDriverSlowLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	drv := NewStatsDriver(OpenDB(dialect.Postgres, db),
		WithSlowThreshold(-time.Nanosecond),
		WithSlowLog(slog.New(slog.NewTextHandler(&buf, nil))),
	)
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, drv.Exec(context.Background(), "CREATE TABLE t (id INTEGER)", []any{}, nil))
	require.NoError(t, mock.ExpectationsWereMet())

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="slow statement"`)
	assert.Contains(t, out, "kind=ddl")
}

func TestStatsTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := NewStatsDriver(OpenDB(dialect.Postgres, db))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT").WillReturnResult(sqlmock.NewResult(1, 1))
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO users (name) VALUES ($1)"))
	prep.ExpectExec().WithArgs("a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Exec(context.Background(), "INSERT INTO users DEFAULT VALUES", []any{}, nil))
	n, err := tx.(dialect.ManyExecer).ExecMany(context.Background(), "INSERT INTO users (name) VALUES ($1)", [][]any{{"a"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, int64(2), drv.Stats().Snapshot()[KindInsert].Statements)
}
