package sql

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/syssam/schemix"
	"github.com/syssam/schemix/dialect"
)

// Node is an immutable expression tree node. Render writes the node's SQL
// text and registers its literals with the collector, left to right.
type Node interface {
	Render(c *dialect.Collector) (string, error)
}

// ColumnRef is implemented by table columns. Column operands render as
// their qualified name.
type ColumnRef interface {
	QualifiedName() string
}

// Expr wraps a Node with methods that compose new expressions. Composing
// never evaluates anything; each method returns a new tree.
type Expr struct{ Node }

// Render implements the Node interface.
func (e Expr) Render(c *dialect.Collector) (string, error) {
	if e.Node == nil {
		return "", schemix.Queryf("", "render", "empty expression")
	}
	return e.Node.Render(c)
}

// EQ returns the expression e = v.
func (e Expr) EQ(v any) Expr { return EQ(e, v) }

// NEQ returns the expression e != v.
func (e Expr) NEQ(v any) Expr { return NEQ(e, v) }

// LT returns the expression e < v.
func (e Expr) LT(v any) Expr { return LT(e, v) }

// LTE returns the expression e <= v.
func (e Expr) LTE(v any) Expr { return LTE(e, v) }

// GT returns the expression e > v.
func (e Expr) GT(v any) Expr { return GT(e, v) }

// GTE returns the expression e >= v.
func (e Expr) GTE(v any) Expr { return GTE(e, v) }

// Add returns the expression e + v.
func (e Expr) Add(v any) Expr { return Add(e, v) }

// Sub returns the expression e - v.
func (e Expr) Sub(v any) Expr { return Sub(e, v) }

// Mul returns the expression e * v.
func (e Expr) Mul(v any) Expr { return Mul(e, v) }

// Div returns the expression e / v.
func (e Expr) Div(v any) Expr { return Div(e, v) }

// And returns the conjunction of e and other.
func (e Expr) And(other any) Expr { return And(e, other) }

// Or returns the disjunction of e and other.
func (e Expr) Or(other any) Expr { return Or(e, other) }

// Not returns the negation of e.
func (e Expr) Not() Expr { return Not(e) }

// IsNull returns the expression e IS NULL.
func (e Expr) IsNull() Expr { return IsNull(e) }

// IsNotNull returns the expression e IS NOT NULL.
func (e Expr) IsNotNull() Expr { return IsNotNull(e) }

// Asc returns an ascending order term for e.
func (e Expr) Asc() Expr { return Asc(e) }

// Desc returns a descending order term for e.
func (e Expr) Desc() Expr { return Desc(e) }

// BinaryNode renders "(left op right)", or the dialect's function form of
// op when it has no infix syntax.
type BinaryNode struct {
	left, right any
	op          dialect.Op
}

// Left returns the left operand.
func (n *BinaryNode) Left() any { return n.left }

// Op returns the operator.
func (n *BinaryNode) Op() dialect.Op { return n.op }

// Right returns the right operand.
func (n *BinaryNode) Right() any { return n.right }

// Render implements the Node interface.
func (n *BinaryNode) Render(c *dialect.Collector) (string, error) {
	form, err := dialect.Operator(c.Dialect(), n.op)
	if err != nil {
		return "", err
	}
	l, err := renderOperand(n.left, c)
	if err != nil {
		return "", err
	}
	r, err := renderOperand(n.right, c)
	if err != nil {
		return "", err
	}
	if form.Func != "" {
		return form.Func + "(" + l + ", " + r + ")", nil
	}
	return "(" + l + " " + form.Token + " " + r + ")", nil
}

// UnaryNode renders "(op operand)".
type UnaryNode struct {
	operand any
	op      dialect.Op
}

// Operand returns the operand.
func (n *UnaryNode) Operand() any { return n.operand }

// Render implements the Node interface.
func (n *UnaryNode) Render(c *dialect.Collector) (string, error) {
	form, err := dialect.Operator(c.Dialect(), n.op)
	if err != nil {
		return "", err
	}
	x, err := renderOperand(n.operand, c)
	if err != nil {
		return "", err
	}
	if form.Func != "" {
		return form.Func + "(" + x + ")", nil
	}
	return "(" + form.Token + " " + x + ")", nil
}

// FuncNode renders "name(args...)" with an optional leading modifier such
// as DISTINCT, or "name()" without arguments.
type FuncNode struct {
	name     string
	modifier string
	args     []any
}

// Name returns the function name.
func (n *FuncNode) Name() string { return n.name }

// Render implements the Node interface.
func (n *FuncNode) Render(c *dialect.Collector) (string, error) {
	if len(n.args) == 0 {
		return n.name + "()", nil
	}
	args := make([]string, len(n.args))
	for i, a := range n.args {
		s, err := renderOperand(a, c)
		if err != nil {
			return "", err
		}
		args[i] = s
	}
	var b strings.Builder
	b.WriteString(n.name)
	b.WriteByte('(')
	if n.modifier != "" {
		b.WriteString(n.modifier)
		b.WriteByte(' ')
	}
	b.WriteString(strings.Join(args, ", "))
	b.WriteByte(')')
	return b.String(), nil
}

// orderNode renders an ORDER BY term.
type orderNode struct {
	x    any
	desc bool
}

func (n *orderNode) Render(c *dialect.Collector) (string, error) {
	s, err := renderOperand(n.x, c)
	if err != nil {
		return "", err
	}
	if n.desc {
		return s + " DESC", nil
	}
	return s + " ASC", nil
}

// Raw is an SQL fragment rendered verbatim, e.g. Raw("*") or
// Raw("CURRENT_TIMESTAMP").
type Raw string

// Render implements the Node interface.
func (r Raw) Render(*dialect.Collector) (string, error) { return string(r), nil }

// Null is the NULL keyword.
const Null = Raw("NULL")

// invalidNode fails rendering. It lets composition methods report errors
// lazily, keeping their signatures chainable.
type invalidNode struct{ err error }

func (n invalidNode) Render(*dialect.Collector) (string, error) { return "", n.err }

// Invalid returns an expression whose rendering fails with err.
func Invalid(err error) Expr { return Expr{invalidNode{err: err}} }

// Binary returns the node "(l op r)".
func Binary(l any, op dialect.Op, r any) Expr {
	return Expr{&BinaryNode{left: l, op: op, right: r}}
}

// Unary returns the node "(op x)".
func Unary(op dialect.Op, x any) Expr {
	return Expr{&UnaryNode{op: op, operand: x}}
}

// Func returns the function call name(args...).
func Func(name string, args ...any) Expr {
	return Expr{&FuncNode{name: name, args: args}}
}

// FuncModifier returns the function call name(modifier args...).
func FuncModifier(name, modifier string, args ...any) Expr {
	return Expr{&FuncNode{name: name, modifier: modifier, args: args}}
}

// EQ returns the comparison l = r.
func EQ(l, r any) Expr { return Binary(l, dialect.OpEQ, r) }

// NEQ returns the comparison l != r.
func NEQ(l, r any) Expr { return Binary(l, dialect.OpNEQ, r) }

// LT returns the comparison l < r.
func LT(l, r any) Expr { return Binary(l, dialect.OpLT, r) }

// LTE returns the comparison l <= r.
func LTE(l, r any) Expr { return Binary(l, dialect.OpLTE, r) }

// GT returns the comparison l > r.
func GT(l, r any) Expr { return Binary(l, dialect.OpGT, r) }

// GTE returns the comparison l >= r.
func GTE(l, r any) Expr { return Binary(l, dialect.OpGTE, r) }

// Add returns l + r.
func Add(l, r any) Expr { return Binary(l, dialect.OpAdd, r) }

// Sub returns l - r.
func Sub(l, r any) Expr { return Binary(l, dialect.OpSub, r) }

// Mul returns l * r.
func Mul(l, r any) Expr { return Binary(l, dialect.OpMul, r) }

// Div returns l / r.
func Div(l, r any) Expr { return Binary(l, dialect.OpDiv, r) }

// Mod returns l % r.
func Mod(l, r any) Expr { return Binary(l, dialect.OpMod, r) }

// Pow returns l raised to r.
func Pow(l, r any) Expr { return Binary(l, dialect.OpPow, r) }

// Concat returns l || r.
func Concat(l, r any) Expr { return Binary(l, dialect.OpConcat, r) }

// Like returns l LIKE pattern.
func Like(l, pattern any) Expr { return Binary(l, dialect.OpLike, pattern) }

// NotLike returns l NOT LIKE pattern.
func NotLike(l, pattern any) Expr { return Binary(l, dialect.OpNotLike, pattern) }

// ILike returns l ILIKE pattern. Postgres only.
func ILike(l, pattern any) Expr { return Binary(l, dialect.OpILike, pattern) }

// NotILike returns l NOT ILIKE pattern. Postgres only.
func NotILike(l, pattern any) Expr { return Binary(l, dialect.OpNotILike, pattern) }

// IsNull returns x IS NULL.
func IsNull(x any) Expr { return Binary(x, dialect.OpIs, Null) }

// IsNotNull returns x IS NOT NULL.
func IsNotNull(x any) Expr { return Binary(x, dialect.OpIsNot, Null) }

// And folds the predicates left to right with AND.
func And(preds ...any) Expr { return fold(dialect.OpAnd, preds) }

// Or folds the predicates left to right with OR.
func Or(preds ...any) Expr { return fold(dialect.OpOr, preds) }

// Not returns (NOT x).
func Not(x any) Expr { return Unary(dialect.OpNot, x) }

func fold(op dialect.Op, preds []any) Expr {
	switch len(preds) {
	case 0:
		return Invalid(schemix.Queryf("", "render", "%s requires at least one predicate", op))
	case 1:
		if e, ok := preds[0].(Expr); ok {
			return e
		}
		if n, ok := preds[0].(Node); ok {
			return Expr{n}
		}
		return Invalid(schemix.Queryf("", "render", "%s operand %v is not an expression", op, preds[0]))
	}
	e := Binary(preds[0], op, preds[1])
	for _, p := range preds[2:] {
		e = Binary(e, op, p)
	}
	return e
}

// Count returns COUNT(x).
func Count(x any) Expr { return Func("COUNT", x) }

// CountDistinct returns COUNT(DISTINCT x).
func CountDistinct(x any) Expr { return FuncModifier("COUNT", "DISTINCT", x) }

// Max returns MAX(x).
func Max(x any) Expr { return Func("MAX", x) }

// Min returns MIN(x).
func Min(x any) Expr { return Func("MIN", x) }

// Sum returns SUM(x).
func Sum(x any) Expr { return Func("SUM", x) }

// Avg returns AVG(x).
func Avg(x any) Expr { return Func("AVG", x) }

// Asc returns the order term "x ASC".
func Asc(x any) Expr { return Expr{&orderNode{x: x}} }

// Desc returns the order term "x DESC".
func Desc(x any) Expr { return Expr{&orderNode{x: x, desc: true}} }

// Render renders a standalone node and returns its text and arguments.
func Render(d string, n Node) (string, []any, error) {
	c, err := dialect.NewCollector(d)
	if err != nil {
		return "", nil, err
	}
	s, err := n.Render(c)
	if err != nil {
		return "", nil, err
	}
	return s, c.Args(), nil
}

// RenderOperand renders a node, column or literal operand.
func RenderOperand(v any, c *dialect.Collector) (string, error) {
	return renderOperand(v, c)
}

func renderOperand(v any, c *dialect.Collector) (string, error) {
	switch v := v.(type) {
	case Node:
		return v.Render(c)
	case ColumnRef:
		return v.QualifiedName(), nil
	case nil, string, bool, []byte, time.Time,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, driver.Valuer:
		return c.Add(v), nil
	default:
		return c.Add(fmt.Sprint(v)), nil
	}
}
