package field

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/schemix"
)

// Owner is the table a column is bound to.
type Owner interface {
	Name() string
}

// Target is a column that can be referenced by a foreign key.
type Target interface {
	Name() string
	Table() Owner
}

// Action is a referential action of a foreign key.
type Action string

// Referential actions.
const (
	NoAction   Action = "NO ACTION"
	Restrict   Action = "RESTRICT"
	Cascade    Action = "CASCADE"
	SetNull    Action = "SET NULL"
	SetDefault Action = "SET DEFAULT"
)

var upper = cases.Upper(language.Und)

// Normalize returns the canonical, upper-cased form of the action and
// reports whether it is a known action.
func (a Action) Normalize() (Action, bool) {
	n := Action(strings.Join(strings.Fields(upper.String(string(a))), " "))
	switch n {
	case NoAction, Restrict, Cascade, SetNull, SetDefault:
		return n, true
	default:
		return n, false
	}
}

// ForeignKey describes a reference from a column to a column of another table.
type ForeignKey struct {
	Column   Target
	OnDelete Action // Empty when not set.
	OnUpdate Action // Empty when not set.
}

// ReferenceOption configures a foreign key.
type ReferenceOption func(*ForeignKey)

// OnDelete sets the ON DELETE action, e.g. OnDelete(field.Cascade) or OnDelete("cascade").
func OnDelete(a Action) ReferenceOption {
	return func(fk *ForeignKey) { fk.OnDelete = a }
}

// OnUpdate sets the ON UPDATE action.
func OnUpdate(a Action) ReferenceOption {
	return func(fk *ForeignKey) { fk.OnUpdate = a }
}

// Option configures the type parameters of a column.
type Option func(map[string]any)

// Length sets the length of character types.
func Length(n int) Option {
	return func(p map[string]any) { p[ParamLength] = n }
}

// Precision sets the precision of numeric and temporal types.
func Precision(n int) Option {
	return func(p map[string]any) { p[ParamPrecision] = n }
}

// Scale sets the scale of numeric types.
func Scale(n int) Option {
	return func(p map[string]any) { p[ParamScale] = n }
}

// WithTimezone makes time and timestamp columns timezone aware.
func WithTimezone() Option {
	return func(p map[string]any) { p[ParamTimezone] = true }
}

// Column is a typed table column. It is configured with chained calls while
// a table is declared and becomes read-only once bound to its table.
type Column struct {
	name     string
	typ      Type
	nullable bool
	unique   bool
	pk       bool
	def      any
	hasDef   bool
	params   map[string]any
	fk       *ForeignKey
	table    Owner
	err      error
}

// New returns a nullable column of the given type.
func New(name string, t Type, opts ...Option) *Column {
	c := &Column{name: name, typ: t, nullable: true, params: make(map[string]any)}
	for _, opt := range opts {
		opt(c.params)
	}
	if !t.Valid() {
		c.err = fmt.Errorf("invalid column type %d", t)
	}
	return c
}

// Integer returns a new INTEGER column.
func Integer(name string) *Column { return New(name, TypeInteger) }

// SmallInt returns a new SMALLINT column.
func SmallInt(name string) *Column { return New(name, TypeSmallInt) }

// BigInt returns a new BIGINT column.
func BigInt(name string) *Column { return New(name, TypeBigInt) }

// Serial returns a new auto-incrementing SERIAL column (Postgres only).
func Serial(name string) *Column { return New(name, TypeSerial) }

// SmallSerial returns a new SMALLSERIAL column (Postgres only).
func SmallSerial(name string) *Column { return New(name, TypeSmallSerial) }

// BigSerial returns a new BIGSERIAL column (Postgres only).
func BigSerial(name string) *Column { return New(name, TypeBigSerial) }

// Numeric returns a new NUMERIC column. Use Precision and Scale to size it.
func Numeric(name string, opts ...Option) *Column { return New(name, TypeNumeric, opts...) }

// Decimal returns a new DECIMAL column.
func Decimal(name string, opts ...Option) *Column { return New(name, TypeDecimal, opts...) }

// Real returns a new REAL column.
func Real(name string) *Column { return New(name, TypeReal) }

// Varchar returns a new VARCHAR(length) column.
func Varchar(name string, length int) *Column { return New(name, TypeVarchar, Length(length)) }

// Char returns a new CHAR(length) column.
func Char(name string, length int) *Column { return New(name, TypeChar, Length(length)) }

// Text returns a new TEXT column.
func Text(name string) *Column { return New(name, TypeText) }

// Boolean returns a new BOOLEAN column.
func Boolean(name string) *Column { return New(name, TypeBoolean) }

// Date returns a new DATE column holding civil.Date values.
func Date(name string) *Column { return New(name, TypeDate) }

// Time returns a new TIME column holding civil.Time values.
func Time(name string, opts ...Option) *Column { return New(name, TypeTime, opts...) }

// Timestamp returns a new TIMESTAMP column holding time.Time values.
func Timestamp(name string, opts ...Option) *Column { return New(name, TypeTimestamp, opts...) }

// JSON returns a new JSON column.
func JSON(name string) *Column { return New(name, TypeJSON) }

// JSONB returns a new JSONB column.
func JSONB(name string) *Column { return New(name, TypeJSONB) }

// Blob returns a new BLOB column (SQLite only).
func Blob(name string) *Column { return New(name, TypeBlob) }

// UUID returns a new UUID column holding uuid.UUID values.
func UUID(name string) *Column { return New(name, TypeUUID) }

// MsgPack returns a new binary column holding MessagePack encoded values.
func MsgPack(name string) *Column { return New(name, TypeMsgPack) }

// mutable panics if the column was already bound to a table.
func (c *Column) mutable(method string) {
	if c.table != nil {
		panic(fmt.Sprintf("field: %s called on column %q after it was bound to table %q", method, c.name, c.table.Name()))
	}
}

// NotNull marks the column as NOT NULL.
func (c *Column) NotNull() *Column {
	c.mutable("NotNull")
	c.nullable = false
	return c
}

// Nullable marks the column as nullable.
func (c *Column) Nullable() *Column {
	c.mutable("Nullable")
	c.nullable = true
	return c
}

// Unique adds a UNIQUE constraint to the column.
func (c *Column) Unique() *Column {
	c.mutable("Unique")
	c.unique = true
	return c
}

// PrimaryKey marks the column as (part of) the primary key.
func (c *Column) PrimaryKey() *Column {
	c.mutable("PrimaryKey")
	c.pk = true
	return c
}

// Default sets the column default. Strings render quoted, sql.Raw values
// render verbatim.
func (c *Column) Default(v any) *Column {
	c.mutable("Default")
	c.def, c.hasDef = v, true
	return c
}

// References adds a foreign key to target.
//
//	field.Integer("author_id").NotNull().References(users.ID, field.OnDelete(field.Cascade))
func (c *Column) References(target Target, opts ...ReferenceOption) *Column {
	c.mutable("References")
	fk := &ForeignKey{Column: target}
	for _, opt := range opts {
		opt(fk)
	}
	var errs []error
	if target == nil {
		errs = append(errs, errors.New("foreign key target is nil"))
	}
	for _, a := range []*Action{&fk.OnDelete, &fk.OnUpdate} {
		if *a == "" {
			continue
		}
		n, ok := a.Normalize()
		if !ok {
			errs = append(errs, fmt.Errorf("unknown referential action %q", string(*a)))
		}
		*a = n
	}
	c.fk = fk
	c.err = errors.Join(c.err, errors.Join(errs...))
	return c
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Type returns the column type.
func (c *Column) Type() Type { return c.typ }

// IsNullable reports whether the column accepts NULL.
func (c *Column) IsNullable() bool { return c.nullable }

// IsUnique reports whether the column has a UNIQUE constraint.
func (c *Column) IsUnique() bool { return c.unique }

// IsPrimaryKey reports whether the column is part of the primary key.
func (c *Column) IsPrimaryKey() bool { return c.pk }

// DefaultValue returns the column default and whether one is set.
func (c *Column) DefaultValue() (any, bool) { return c.def, c.hasDef }

// Params returns a copy of the type parameters.
func (c *Column) Params() map[string]any { return maps.Clone(c.params) }

// ForeignKey returns a copy of the column foreign key, or nil.
func (c *Column) ForeignKey() *ForeignKey {
	if c.fk == nil {
		return nil
	}
	fk := *c.fk
	return &fk
}

// Capabilities returns the operator groups supported by the column type.
func (c *Column) Capabilities() Capability {
	if info, ok := typeInfos[c.typ]; ok {
		return info.caps
	}
	return 0
}

// Table returns the table the column is bound to, or nil.
func (c *Column) Table() Owner { return c.table }

// Err returns the configuration errors recorded by the chained setters.
// A column with an error cannot be bound.
func (c *Column) Err() error { return c.err }

// Bind attaches the column to its table. Binding closes the configuration
// window: later calls to the chained setters panic. Binding a column that
// already belongs to another table fails.
func (c *Column) Bind(t Owner) error {
	switch {
	case t == nil:
		return schemix.Configurationf(c.name, "cannot bind column to a nil table")
	case c.name == "":
		return schemix.Configurationf(t.Name(), "column name must not be empty")
	case c.err != nil:
		return schemix.NewConfigurationError(t.Name()+"."+c.name, c.err)
	case c.table == t:
		return nil
	case c.table != nil:
		return schemix.Configurationf(t.Name()+"."+c.name, "column already belongs to table %q", c.table.Name())
	}
	c.table = t
	return nil
}

// QualifiedName returns "table.column", or the bare name while unbound.
func (c *Column) QualifiedName() string {
	if c.table == nil {
		return c.name
	}
	return c.table.Name() + "." + c.name
}

// String implements the fmt.Stringer interface.
func (c *Column) String() string { return c.QualifiedName() }

// SQLType returns the SQL type of the column in dialect d.
func (c *Column) SQLType(d string) (string, error) {
	info, ok := typeInfos[c.typ]
	if !ok {
		return "", schemix.NewDialectNotSupportedError(d, "column type "+c.typ.String())
	}
	f, ok := info.sql[d]
	if !ok || f == nil {
		return "", schemix.NewDialectNotSupportedError(d, "column type "+info.name)
	}
	return f(c.params), nil
}

// Serialize converts v to the value bound as a statement argument.
func (c *Column) Serialize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	info, ok := typeInfos[c.typ]
	if !ok {
		return v, nil
	}
	out, err := info.codec.encode(v)
	if err != nil {
		return nil, schemix.NewSerializationError(c.QualifiedName(), "serialize", err)
	}
	return out, nil
}

// Deserialize converts a value read from the database back to its Go
// representation. Already decoded values are returned unchanged.
func (c *Column) Deserialize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	info, ok := typeInfos[c.typ]
	if !ok {
		return v, nil
	}
	out, err := info.codec.decode(v)
	if err != nil {
		return nil, schemix.NewSerializationError(c.QualifiedName(), "deserialize", err)
	}
	return out, nil
}

func (c *Column) tableName() string {
	if c.table == nil {
		return ""
	}
	return c.table.Name()
}
