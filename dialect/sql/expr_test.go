package sql

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/schemix"
	"github.com/syssam/schemix/dialect"
)

type colRef string

func (c colRef) QualifiedName() string { return string(c) }

const (
	usersAge  = colRef("users.age")
	usersName = colRef("users.name")
	usersID   = colRef("users.id")
)

func TestRenderBinary(t *testing.T) {
	tests := []struct {
		name     string
		dialect  string
		expr     Node
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "gt_postgres",
			dialect:  dialect.Postgres,
			expr:     GT(usersAge, 18),
			wantSQL:  "(users.age > $1)",
			wantArgs: []any{18},
		},
		{
			name:     "gt_sqlite",
			dialect:  dialect.SQLite,
			expr:     GT(usersAge, 18),
			wantSQL:  "(users.age > ?)",
			wantArgs: []any{18},
		},
		{
			name:     "column_to_column",
			dialect:  dialect.Postgres,
			expr:     EQ(usersID, colRef("posts.user_id")),
			wantSQL:  "(users.id = posts.user_id)",
			wantArgs: []any{},
		},
		{
			name:     "nested_and_or",
			dialect:  dialect.Postgres,
			expr:     Or(And(GTE(usersAge, 18), LT(usersAge, 65)), EQ(usersName, "root")),
			wantSQL:  "(((users.age >= $1) AND (users.age < $2)) OR (users.name = $3))",
			wantArgs: []any{18, 65, "root"},
		},
		{
			name:     "and_folds_left",
			dialect:  dialect.SQLite,
			expr:     And(EQ(usersID, 1), EQ(usersID, 2), EQ(usersID, 3)),
			wantSQL:  "(((users.id = ?) AND (users.id = ?)) AND (users.id = ?))",
			wantArgs: []any{1, 2, 3},
		},
		{
			name:     "not",
			dialect:  dialect.Postgres,
			expr:     Not(EQ(usersName, "x")),
			wantSQL:  "(NOT (users.name = $1))",
			wantArgs: []any{"x"},
		},
		{
			name:     "pow_postgres",
			dialect:  dialect.Postgres,
			expr:     Pow(usersAge, 2),
			wantSQL:  "(users.age ^ $1)",
			wantArgs: []any{2},
		},
		{
			name:     "pow_sqlite_rewritten",
			dialect:  dialect.SQLite,
			expr:     Pow(usersAge, 2),
			wantSQL:  "POWER(users.age, ?)",
			wantArgs: []any{2},
		},
		{
			name:     "arithmetic_chain",
			dialect:  dialect.Postgres,
			expr:     Add(usersAge, 1).Mul(2).GT(40),
			wantSQL:  "(((users.age + $1) * $2) > $3)",
			wantArgs: []any{1, 2, 40},
		},
		{
			name:     "is_null_binds_nothing",
			dialect:  dialect.Postgres,
			expr:     IsNull(usersName),
			wantSQL:  "(users.name IS NULL)",
			wantArgs: []any{},
		},
		{
			name:     "is_not_null",
			dialect:  dialect.SQLite,
			expr:     IsNotNull(usersName),
			wantSQL:  "(users.name IS NOT NULL)",
			wantArgs: []any{},
		},
		{
			name:     "null_literal_is_bound",
			dialect:  dialect.Postgres,
			expr:     EQ(usersName, nil),
			wantSQL:  "(users.name = $1)",
			wantArgs: []any{nil},
		},
		{
			name:     "concat_like",
			dialect:  dialect.Postgres,
			expr:     Like(Concat(usersName, "%"), "a%"),
			wantSQL:  "((users.name || $1) LIKE $2)",
			wantArgs: []any{"%", "a%"},
		},
		{
			name:     "ilike_postgres",
			dialect:  dialect.Postgres,
			expr:     NotILike(usersName, "A%"),
			wantSQL:  "(users.name NOT ILIKE $1)",
			wantArgs: []any{"A%"},
		},
		{
			name:     "custom_operator",
			dialect:  dialect.Postgres,
			expr:     Binary(colRef("users.meta"), "->>", "name"),
			wantSQL:  "(users.meta ->> $1)",
			wantArgs: []any{"name"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := Render(tt.dialect, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, query)
			if len(tt.wantArgs) == 0 {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestRenderFunc(t *testing.T) {
	tests := []struct {
		name    string
		expr    Node
		wantSQL string
	}{
		{"count", Count(usersID), "COUNT(users.id)"},
		{"count_star", Count(Raw("*")), "COUNT(*)"},
		{"count_distinct", CountDistinct(usersName), "COUNT(DISTINCT users.name)"},
		{"max", Max(usersAge), "MAX(users.age)"},
		{"min", Min(usersAge), "MIN(users.age)"},
		{"sum", Sum(usersAge), "SUM(users.age)"},
		{"avg", Avg(usersAge), "AVG(users.age)"},
		{"no_args", Func("NOW"), "NOW()"},
		{"modifier_without_args", FuncModifier("COUNT", "DISTINCT"), "COUNT()"},
		{"multi_args", Func("COALESCE", usersName, Raw("'n/a'")), "COALESCE(users.name, 'n/a')"},
		{"asc", Asc(usersName), "users.name ASC"},
		{"desc", Max(usersAge).Desc(), "MAX(users.age) DESC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, _, err := Render(dialect.SQLite, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, query)
		})
	}
}

func TestRenderPlaceholderOrder(t *testing.T) {
	// Literals are collected left to right, including inside function calls.
	expr := And(
		GT(Func("COALESCE", usersAge, 0), 10),
		Like(usersName, "a%"),
	)
	query, args, err := Render(dialect.Postgres, expr)
	require.NoError(t, err)
	assert.Equal(t, "((COALESCE(users.age, $1) > $2) AND (users.name LIKE $3))", query)
	assert.Equal(t, []any{0, 10, "a%"}, args)
}

func TestRenderIdempotent(t *testing.T) {
	expr := And(GT(usersAge, 18), EQ(usersName, "a"))
	q1, a1, err := Render(dialect.Postgres, expr)
	require.NoError(t, err)
	q2, a2, err := Render(dialect.Postgres, expr)
	require.NoError(t, err)
	assert.Equal(t, q1, q2)
	assert.Equal(t, a1, a2)
}

func TestRenderLiterals(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	type custom struct{ A int }
	tests := []struct {
		name string
		v    any
		want any
	}{
		{"time", now, now},
		{"bytes", []byte("x"), []byte("x")},
		{"bool", true, true},
		{"float", 1.5, 1.5},
		{"stringer_fallback", custom{A: 1}, "{1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, args, err := Render(dialect.SQLite, EQ(usersAge, tt.v))
			require.NoError(t, err)
			require.Len(t, args, 1)
			assert.Equal(t, tt.want, args[0])
		})
	}
}

func TestRenderErrors(t *testing.T) {
	t.Run("ilike_sqlite", func(t *testing.T) {
		_, _, err := Render(dialect.SQLite, ILike(usersName, "a%"))
		var dnse *schemix.DialectNotSupportedError
		require.ErrorAs(t, err, &dnse)
		assert.Equal(t, dialect.SQLite, dnse.Dialect)
		assert.Contains(t, dnse.Construct, "ILIKE")
	})

	t.Run("invalid_propagates", func(t *testing.T) {
		cause := errors.New("boom")
		_, _, err := Render(dialect.Postgres, And(GT(usersAge, 1), Invalid(cause)))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("empty_and", func(t *testing.T) {
		_, _, err := Render(dialect.Postgres, And())
		assert.True(t, schemix.IsQueryError(err))
	})

	t.Run("single_and", func(t *testing.T) {
		query, _, err := Render(dialect.Postgres, And(GT(usersAge, 1)))
		require.NoError(t, err)
		assert.Equal(t, "(users.age > $1)", query)
	})

	t.Run("single_non_expression", func(t *testing.T) {
		_, _, err := Render(dialect.Postgres, Or(42))
		assert.True(t, schemix.IsQueryError(err))
	})

	t.Run("empty_expr", func(t *testing.T) {
		_, _, err := Render(dialect.Postgres, Expr{})
		assert.True(t, schemix.IsQueryError(err))
	})

	t.Run("bad_dialect", func(t *testing.T) {
		_, _, err := Render("mysql", GT(usersAge, 1))
		assert.True(t, schemix.IsDialectNotSupported(err))
	})
}

func TestBinaryNodeAccessors(t *testing.T) {
	e := GT(usersAge, 18)
	n, ok := e.Node.(*BinaryNode)
	require.True(t, ok)
	assert.Equal(t, usersAge, n.Left())
	assert.Equal(t, dialect.OpGT, n.Op())
	assert.Equal(t, 18, n.Right())
}
