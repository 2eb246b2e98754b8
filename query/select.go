package query

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/schemix"
	"github.com/syssam/schemix/dialect"
	"github.com/syssam/schemix/dialect/sql"
	"github.com/syssam/schemix/schema"
)

// Projection is one entry of a select list: a column or an expression
// returned under an alias.
type Projection struct {
	Alias string
	Value any // schema.Column or sql.Node
}

// As returns the projection "v AS alias".
func As(alias string, v any) Projection {
	return Projection{Alias: alias, Value: v}
}

// Col returns the projection of a column under its own name.
func Col(c schema.Column) Projection {
	return Projection{Alias: c.Name(), Value: c}
}

// JoinKind is the kind of a JOIN clause.
type JoinKind string

// Join kinds.
const (
	InnerJoin JoinKind = "INNER"
	LeftJoin  JoinKind = "LEFT"
	RightJoin JoinKind = "RIGHT"
	FullJoin  JoinKind = "FULL"
	CrossJoin JoinKind = "CROSS"
)

type join struct {
	kind  JoinKind
	table schema.Declaration
	on    sql.Node
}

// SelectBuilder holds a projection that has no source table yet.
type SelectBuilder struct {
	db          *Database
	projections []Projection
}

// Select starts a SELECT statement. Without projections all columns are
// selected.
//
//	rows, err := db.Select(query.Col(users.ID), query.As("n", users.Name)).
//		From(users).
//		Where(users.Age.GT(18)).
//		OrderBy(users.Name.Asc()).
//		Limit(10).
//		Execute(ctx)
func (db *Database) Select(projections ...Projection) *SelectBuilder {
	return &SelectBuilder{db: db, projections: projections}
}

// From sets the source table and returns the configurable selector.
func (b *SelectBuilder) From(table schema.Declaration) *Selector {
	return &Selector{db: b.db, projections: b.projections, from: table}
}

// Selector is a SELECT statement with a source table. Every setter
// replaces its clause, except joins which accumulate in call order.
// A Selector must not be configured concurrently.
type Selector struct {
	db          *Database
	projections []Projection
	from        schema.Declaration
	joins       []join
	where       sql.Node
	having      sql.Node
	groupBy     []any
	orderBy     []any
	limit       *int
	offset      *int
}

// Where sets the WHERE predicate. Use sql.And to combine several.
func (s *Selector) Where(pred sql.Node) *Selector {
	s.where = pred
	return s
}

// Having sets the HAVING predicate.
func (s *Selector) Having(pred sql.Node) *Selector {
	s.having = pred
	return s
}

// GroupBy sets the GROUP BY columns or expressions.
func (s *Selector) GroupBy(terms ...any) *Selector {
	s.groupBy = terms
	return s
}

// OrderBy sets the ORDER BY terms. Columns sort in the dialect default
// order; use Asc or Desc for an explicit direction.
func (s *Selector) OrderBy(terms ...any) *Selector {
	s.orderBy = terms
	return s
}

// Limit sets the LIMIT clause.
func (s *Selector) Limit(n int) *Selector {
	s.limit = &n
	return s
}

// Offset sets the OFFSET clause.
func (s *Selector) Offset(n int) *Selector {
	s.offset = &n
	return s
}

// Join appends a join of the given kind. on must be nil for cross joins
// and set for every other kind.
func (s *Selector) Join(kind JoinKind, table schema.Declaration, on sql.Node) *Selector {
	s.joins = append(s.joins, join{kind: kind, table: table, on: on})
	return s
}

// InnerJoin appends an INNER JOIN.
func (s *Selector) InnerJoin(table schema.Declaration, on sql.Node) *Selector {
	return s.Join(InnerJoin, table, on)
}

// LeftJoin appends a LEFT JOIN.
func (s *Selector) LeftJoin(table schema.Declaration, on sql.Node) *Selector {
	return s.Join(LeftJoin, table, on)
}

// RightJoin appends a RIGHT JOIN.
func (s *Selector) RightJoin(table schema.Declaration, on sql.Node) *Selector {
	return s.Join(RightJoin, table, on)
}

// FullJoin appends a FULL JOIN.
func (s *Selector) FullJoin(table schema.Declaration, on sql.Node) *Selector {
	return s.Join(FullJoin, table, on)
}

// CrossJoin appends a CROSS JOIN.
func (s *Selector) CrossJoin(table schema.Declaration) *Selector {
	return s.Join(CrossJoin, table, nil)
}

// SQL renders the statement and its arguments. It does not modify the
// selector; rendering twice yields the same result.
func (s *Selector) SQL() (string, []any, error) {
	from, err := s.db.resolve(s.from)
	if err != nil {
		return "", nil, err
	}
	name := from.Name()
	c, err := dialect.NewCollector(s.db.dialect)
	if err != nil {
		return "", nil, err
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(s.projections) == 0 {
		b.WriteString("*")
	}
	for i, p := range s.projections {
		if i > 0 {
			b.WriteString(", ")
		}
		if p.Alias == "" {
			return "", nil, schemix.Queryf(name, "select", "projection %d has no alias", i)
		}
		v, err := s.operand(name, p.Value, c)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(v + " AS " + p.Alias)
	}
	b.WriteString(" FROM " + name)
	for _, j := range s.joins {
		t, err := s.db.resolve(j.table)
		if err != nil {
			return "", nil, err
		}
		switch j.kind {
		case CrossJoin:
			if j.on != nil {
				return "", nil, schemix.Queryf(name, "select", "cross join of %s does not take an ON condition", t.Name())
			}
			b.WriteString(" CROSS JOIN " + t.Name())
		case InnerJoin, LeftJoin, RightJoin, FullJoin:
			if j.on == nil {
				return "", nil, schemix.Queryf(name, "select", "%s join of %s requires an ON condition", strings.ToLower(string(j.kind)), t.Name())
			}
			on, err := j.on.Render(c)
			if err != nil {
				return "", nil, err
			}
			b.WriteString(" " + string(j.kind) + " JOIN " + t.Name() + " ON " + on)
		default:
			return "", nil, schemix.Queryf(name, "select", "unknown join kind %q", j.kind)
		}
	}
	if s.where != nil {
		w, err := s.where.Render(c)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" WHERE " + w)
	}
	if len(s.groupBy) > 0 {
		terms, err := s.list(name, s.groupBy, c)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" GROUP BY " + terms)
	}
	if s.having != nil {
		h, err := s.having.Render(c)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" HAVING " + h)
	}
	if len(s.orderBy) > 0 {
		terms, err := s.list(name, s.orderBy, c)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" ORDER BY " + terms)
	}
	if s.limit != nil {
		if *s.limit < 0 {
			return "", nil, schemix.Queryf(name, "select", "negative limit %d", *s.limit)
		}
		b.WriteString(" LIMIT " + strconv.Itoa(*s.limit))
	}
	if s.offset != nil {
		if *s.offset < 0 {
			return "", nil, schemix.Queryf(name, "select", "negative offset %d", *s.offset)
		}
		b.WriteString(" OFFSET " + strconv.Itoa(*s.offset))
	}
	return b.String(), c.Args(), nil
}

// operand renders a projection or list term. Only columns and expressions
// are accepted.
func (s *Selector) operand(table string, v any, c *dialect.Collector) (string, error) {
	switch v := v.(type) {
	case sql.Node:
		return v.Render(c)
	case sql.ColumnRef:
		return v.QualifiedName(), nil
	default:
		return "", schemix.Queryf(table, "select", "%v (%T) is neither a column nor an expression", v, v)
	}
}

func (s *Selector) list(table string, terms []any, c *dialect.Collector) (string, error) {
	out := make([]string, len(terms))
	for i, t := range terms {
		v, err := s.operand(table, t, c)
		if err != nil {
			return "", err
		}
		out[i] = v
	}
	return strings.Join(out, ", "), nil
}

// Execute runs the statement and returns one map per row, keyed by alias.
// Values of projected columns are decoded with their column codec.
func (s *Selector) Execute(ctx context.Context) ([]map[string]any, error) {
	query, args, err := s.SQL()
	if err != nil {
		return nil, err
	}
	from, _ := s.db.resolve(s.from)
	name, logger := from.Name(), s.db.logger
	drv, err := s.db.driver(name, "select")
	if err != nil {
		return nil, err
	}
	logger.DebugContext(ctx, "executing select", "table", name, "sql", query, "args", len(args))
	start := time.Now()
	rows := &sql.Rows{}
	if err := drv.Query(ctx, query, args, rows); err != nil {
		logger.ErrorContext(ctx, "select failed", "table", name, "error", err)
		return nil, schemix.NewQueryError(name, "select", err)
	}
	result, err := sql.ScanMaps(rows)
	if err != nil {
		logger.ErrorContext(ctx, "select failed", "table", name, "error", err)
		return nil, schemix.NewQueryError(name, "select", err)
	}
	decoders := s.decoders(from)
	for _, row := range result {
		for key, v := range row {
			c, ok := decoders[key]
			if !ok {
				continue
			}
			if row[key], err = c.Deserialize(v); err != nil {
				return nil, schemix.NewQueryError(name, "select", err)
			}
		}
	}
	logger.DebugContext(ctx, "select executed", "table", name, "rows", len(result), "elapsed", time.Since(start))
	return result, nil
}

// decoders maps result keys to the columns decoding them.
func (s *Selector) decoders(from *schema.Table) map[string]schema.Column {
	m := make(map[string]schema.Column)
	if len(s.projections) == 0 {
		for _, c := range from.Columns() {
			m[c.Name()] = c
		}
		return m
	}
	for _, p := range s.projections {
		if c, ok := p.Value.(schema.Column); ok {
			m[p.Alias] = c
		}
	}
	return m
}
