package field

import (
	"github.com/syssam/schemix"
	"github.com/syssam/schemix/dialect"
	"github.com/syssam/schemix/dialect/sql"
)

// Render implements the sql.Node interface. A column renders as its
// qualified name.
func (c *Column) Render(*dialect.Collector) (string, error) {
	return c.QualifiedName(), nil
}

// Expr returns the column as an expression, for composing with the free
// functions of the sql package.
func (c *Column) Expr() sql.Expr { return sql.Expr{Node: c} }

// operand serializes literal operands with the column codec. Nodes and
// column references are kept as they are.
func (c *Column) operand(v any) (any, error) {
	switch v.(type) {
	case sql.Node, sql.ColumnRef:
		return v, nil
	}
	return c.Serialize(v)
}

func (c *Column) unsupported(op string) sql.Expr {
	return sql.Invalid(schemix.Queryf(c.tableName(), "expression",
		"operator %s is not supported by %s column %s", op, c.typ, c.QualifiedName()))
}

// binary builds "c op v" after checking that the column type supports the
// operator group.
func (c *Column) binary(need Capability, op dialect.Op, v any) sql.Expr {
	if need != 0 && !c.Capabilities().Has(need) {
		return c.unsupported(string(op))
	}
	r, err := c.operand(v)
	if err != nil {
		return sql.Invalid(err)
	}
	return sql.Binary(c, op, r)
}

func (c *Column) aggregate(need Capability, name string, f func(any) sql.Expr) sql.Expr {
	if !c.Capabilities().Has(need) {
		return c.unsupported(name)
	}
	return f(c)
}

// EQ returns the comparison c = v.
func (c *Column) EQ(v any) sql.Expr { return c.binary(0, dialect.OpEQ, v) }

// NEQ returns the comparison c != v.
func (c *Column) NEQ(v any) sql.Expr { return c.binary(0, dialect.OpNEQ, v) }

// IsNull returns c IS NULL.
func (c *Column) IsNull() sql.Expr { return sql.IsNull(c) }

// IsNotNull returns c IS NOT NULL.
func (c *Column) IsNotNull() sql.Expr { return sql.IsNotNull(c) }

// LT returns the comparison c < v.
func (c *Column) LT(v any) sql.Expr { return c.binary(Ordering, dialect.OpLT, v) }

// LTE returns the comparison c <= v.
func (c *Column) LTE(v any) sql.Expr { return c.binary(Ordering, dialect.OpLTE, v) }

// GT returns the comparison c > v.
func (c *Column) GT(v any) sql.Expr { return c.binary(Ordering, dialect.OpGT, v) }

// GTE returns the comparison c >= v.
func (c *Column) GTE(v any) sql.Expr { return c.binary(Ordering, dialect.OpGTE, v) }

// Add returns c + v.
func (c *Column) Add(v any) sql.Expr { return c.binary(Arithmetic, dialect.OpAdd, v) }

// Sub returns c - v.
func (c *Column) Sub(v any) sql.Expr { return c.binary(Arithmetic, dialect.OpSub, v) }

// Mul returns c * v.
func (c *Column) Mul(v any) sql.Expr { return c.binary(Arithmetic, dialect.OpMul, v) }

// Div returns c / v.
func (c *Column) Div(v any) sql.Expr { return c.binary(Arithmetic, dialect.OpDiv, v) }

// Mod returns c % v.
func (c *Column) Mod(v any) sql.Expr { return c.binary(Arithmetic, dialect.OpMod, v) }

// Pow returns c raised to v. SQLite renders it as POWER(c, v).
func (c *Column) Pow(v any) sql.Expr { return c.binary(Arithmetic, dialect.OpPow, v) }

// Concat returns c || v.
func (c *Column) Concat(v any) sql.Expr { return c.binary(StringMatch, dialect.OpConcat, v) }

// Like returns c LIKE pattern.
func (c *Column) Like(pattern any) sql.Expr { return c.binary(StringMatch, dialect.OpLike, pattern) }

// NotLike returns c NOT LIKE pattern.
func (c *Column) NotLike(pattern any) sql.Expr {
	return c.binary(StringMatch, dialect.OpNotLike, pattern)
}

// ILike returns c ILIKE pattern. Rendering fails on SQLite.
func (c *Column) ILike(pattern any) sql.Expr { return c.binary(StringMatch, dialect.OpILike, pattern) }

// NotILike returns c NOT ILIKE pattern. Rendering fails on SQLite.
func (c *Column) NotILike(pattern any) sql.Expr {
	return c.binary(StringMatch, dialect.OpNotILike, pattern)
}

// Count returns COUNT(c).
func (c *Column) Count() sql.Expr { return c.aggregate(Counting, "COUNT", sql.Count) }

// CountDistinct returns COUNT(DISTINCT c).
func (c *Column) CountDistinct() sql.Expr {
	return c.aggregate(Counting, "COUNT DISTINCT", sql.CountDistinct)
}

// Min returns MIN(c).
func (c *Column) Min() sql.Expr { return c.aggregate(MinMax, "MIN", sql.Min) }

// Max returns MAX(c).
func (c *Column) Max() sql.Expr { return c.aggregate(MinMax, "MAX", sql.Max) }

// Sum returns SUM(c).
func (c *Column) Sum() sql.Expr { return c.aggregate(SumAvg, "SUM", sql.Sum) }

// Avg returns AVG(c).
func (c *Column) Avg() sql.Expr { return c.aggregate(SumAvg, "AVG", sql.Avg) }

// Asc returns the order term "c ASC".
func (c *Column) Asc() sql.Expr { return sql.Asc(c) }

// Desc returns the order term "c DESC".
func (c *Column) Desc() sql.Expr { return sql.Desc(c) }
