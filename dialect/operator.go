package dialect

import (
	"fmt"

	"github.com/syssam/schemix"
)

// Op is an SQL operator token.
type Op string

// Operators with dialect dependent renderings.
const (
	OpEQ       Op = "="
	OpNEQ      Op = "!="
	OpLT       Op = "<"
	OpLTE      Op = "<="
	OpGT       Op = ">"
	OpGTE      Op = ">="
	OpIs       Op = "IS"
	OpIsNot    Op = "IS NOT"
	OpAdd      Op = "+"
	OpSub      Op = "-"
	OpMul      Op = "*"
	OpDiv      Op = "/"
	OpMod      Op = "%"
	OpPow      Op = "^"
	OpConcat   Op = "||"
	OpLike     Op = "LIKE"
	OpNotLike  Op = "NOT LIKE"
	OpILike    Op = "ILIKE"
	OpNotILike Op = "NOT ILIKE"
	OpAnd      Op = "AND"
	OpOr       Op = "OR"
	OpNot      Op = "NOT"
)

// Ops returns every operator known to the rendering table.
func Ops() []Op {
	return []Op{
		OpEQ, OpNEQ, OpLT, OpLTE, OpGT, OpGTE, OpIs, OpIsNot,
		OpAdd, OpSub, OpMul, OpDiv, OpMod, OpPow,
		OpConcat, OpLike, OpNotLike, OpILike, OpNotILike,
		OpAnd, OpOr, OpNot,
	}
}

// Form describes how an operator renders in a dialect. Exactly one of
// Token and Func is set for supported forms.
type Form struct {
	Token       string // Infix or prefix token.
	Func        string // Function replacing an infix operator, e.g. POWER(a, b).
	Unsupported bool
}

func native(op Op) Form      { return Form{Token: string(op)} }
func function(f string) Form { return Form{Func: f} }

var unsupported = Form{Unsupported: true}

// operators is keyed by (operator, dialect). Every operator returned by
// Ops must have an entry for every dialect.
var operators = func() map[Op]map[string]Form {
	m := make(map[Op]map[string]Form)
	for _, op := range Ops() {
		m[op] = map[string]Form{SQLite: native(op), Postgres: native(op)}
	}
	m[OpPow][SQLite] = function("POWER")
	m[OpILike][SQLite] = unsupported
	m[OpNotILike][SQLite] = unsupported
	return m
}()

func init() {
	if err := checkOperators(operators); err != nil {
		panic(err)
	}
}

func checkOperators(table map[Op]map[string]Form) error {
	for _, op := range Ops() {
		forms, ok := table[op]
		if !ok {
			return fmt.Errorf("dialect: operator %q has no renderings", op)
		}
		for _, d := range Dialects() {
			if _, ok := forms[d]; !ok {
				return fmt.Errorf("dialect: operator %q has no rendering for %s", op, d)
			}
		}
	}
	return nil
}

// Operator returns the rendering of op under dialect d. Operators outside
// the table, such as the Postgres JSON operators, render verbatim.
func Operator(d string, op Op) (Form, error) {
	if !Valid(d) {
		return Form{}, schemix.NewDialectNotSupportedError(d, "operator "+string(op))
	}
	forms, ok := operators[op]
	if !ok {
		return native(op), nil
	}
	f := forms[d]
	if f.Unsupported {
		return Form{}, schemix.NewDialectNotSupportedError(d, "operator "+string(op))
	}
	return f, nil
}
