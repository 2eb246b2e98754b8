package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/syssam/schemix"
	"github.com/syssam/schemix/schema/field"
)

// Column is the contract an attribute of a declaration must satisfy to be
// registered as a table column. *field.Column implements it.
type Column interface {
	Name() string
	Type() field.Type
	IsNullable() bool
	IsUnique() bool
	IsPrimaryKey() bool
	DefaultValue() (any, bool)
	ForeignKey() *field.ForeignKey
	QualifiedName() string
	SQLType(dialect string) (string, error)
	Serialize(v any) (any, error)
	Deserialize(v any) (any, error)
	Bind(t field.Owner) error
	Err() error
	Table() field.Owner
}

var _ Column = (*field.Column)(nil)

// Declaration is implemented by every table declaration. Structs embedding
// Table implement it through the promoted Schema method.
type Declaration interface {
	Schema() *Table
}

// Table is a registered table: a name and its columns in declaration order.
// A Table is immutable once registered.
type Table struct {
	name    string
	columns []Column
	index   map[string]int
}

// Option configures table registration.
type Option func(*options)

type options struct {
	name string
}

// WithName sets the table name, overriding the struct tag and the name
// derived from the declaration type.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// New registers a table from an explicit list of columns.
//
//	users, err := schema.New("users",
//		field.Integer("id").PrimaryKey(),
//		field.Text("name").NotNull(),
//	)
func New(name string, columns ...Column) (*Table, error) {
	t := &Table{}
	if err := t.register(name, columns); err != nil {
		return nil, err
	}
	return t, nil
}

var (
	tableType  = reflect.TypeOf(Table{})
	columnType = reflect.TypeOf((*Column)(nil)).Elem()
)

// Define registers a table declaration: a struct embedding Table whose
// exported column fields, including those of embedded mixin structs, become
// the table columns in field order.
//
//	type Users struct {
//		schema.Table `schema:"users"`
//		ID   *field.Column
//		Name *field.Column
//	}
//
//	var users = schema.MustDefine(&Users{
//		ID:   field.Integer("id").PrimaryKey(),
//		Name: field.Text("name").NotNull(),
//	})
//
// The table name is taken from WithName, then from the `schema` tag of the
// embedded Table field, and otherwise derived from the type name in snake
// case with a trailing "_table" removed (UserProfilesTable: user_profiles).
func Define[T any](decl *T, opts ...Option) (*T, error) {
	if decl == nil {
		return nil, schemix.Configurationf("table", "declaration is nil")
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	v := reflect.ValueOf(decl).Elem()
	if v.Kind() != reflect.Struct {
		return nil, schemix.Configurationf(v.Type().String(), "declaration must be a struct, got %s", v.Kind())
	}
	tf, ok := v.Type().FieldByName(tableType.Name())
	if !ok || tf.Type != tableType || len(tf.Index) != 1 {
		return nil, schemix.Configurationf(v.Type().String(), "declaration must embed schema.Table")
	}
	t := v.FieldByIndex(tf.Index).Addr().Interface().(*Table)
	if t.index != nil {
		return nil, schemix.Configurationf(t.name, "table is already defined")
	}
	name := o.name
	if name == "" {
		name = tf.Tag.Get("schema")
	}
	if name == "" {
		name = TableName(v.Type().Name())
	}
	var columns []Column
	if err := collect(v, &columns); err != nil {
		return nil, schemix.NewConfigurationError(name, err)
	}
	if err := t.register(name, columns); err != nil {
		return nil, err
	}
	return decl, nil
}

// MustDefine is like Define but panics on error. It simplifies package
// level table declarations.
func MustDefine[T any](decl *T, opts ...Option) *T {
	t, err := Define(decl, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// collect appends the column fields of v in field order, descending into
// embedded structs. Fields of other types are not part of the table.
func collect(v reflect.Value, columns *[]Column) error {
	typ := v.Type()
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		fv := v.Field(i)
		switch {
		case f.Type == tableType, !f.IsExported():
		case f.Anonymous && f.Type.Kind() == reflect.Struct:
			if err := collect(fv, columns); err != nil {
				return err
			}
		case f.Type.Implements(columnType):
			if fv.Kind() == reflect.Pointer && fv.IsNil() || fv.Kind() == reflect.Interface && fv.IsNil() {
				return fmt.Errorf("column field %s is nil", f.Name)
			}
			*columns = append(*columns, fv.Interface().(Column))
		}
	}
	return nil
}

// TableName derives a table name from a declaration type name.
func TableName(typeName string) string {
	name := inflect.Underscore(typeName)
	if name != "table" {
		name = strings.TrimSuffix(name, "_table")
	}
	return name
}

func (t *Table) register(name string, columns []Column) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return schemix.Configurationf("table", "table name must not be empty")
	}
	if len(columns) == 0 {
		return schemix.Configurationf(name, "table has no columns")
	}
	index := make(map[string]int, len(columns))
	var errs []error
	for i, c := range columns {
		if c == nil {
			errs = append(errs, fmt.Errorf("column %d is nil", i))
			continue
		}
		if c.Name() == "" {
			errs = append(errs, fmt.Errorf("column %d has no name", i))
			continue
		}
		if err := c.Err(); err != nil {
			errs = append(errs, fmt.Errorf("column %q: %w", c.Name(), err))
			continue
		}
		if _, ok := index[c.Name()]; ok {
			errs = append(errs, fmt.Errorf("duplicate column %q", c.Name()))
			continue
		}
		if owner := c.Table(); owner != nil {
			errs = append(errs, fmt.Errorf("column %q already belongs to table %q", c.Name(), owner.Name()))
			continue
		}
		index[c.Name()] = i
	}
	if len(errs) > 0 {
		return schemix.NewConfigurationError(name, errors.Join(errs...))
	}
	// Every column passed the checks Bind performs, so no column is bound
	// unless all of them are.
	t.name = name
	for _, c := range columns {
		if err := c.Bind(t); err != nil {
			return err
		}
	}
	t.columns = columns
	t.index = index
	return nil
}

// Schema returns the table itself. It makes every struct embedding Table
// a Declaration.
func (t *Table) Schema() *Table { return t }

// Name returns the table name, or an empty string for an unregistered table.
func (t *Table) Name() string { return t.name }

// TableName returns the table name. It fails if the table was never
// registered.
func (t *Table) TableName() (string, error) {
	if t == nil || t.name == "" {
		return "", schemix.Configurationf("table", "table name is not set")
	}
	return t.name, nil
}

// Columns returns the columns in declaration order.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.columns...)
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// PrimaryKey returns the primary key columns.
func (t *Table) PrimaryKey() []Column {
	return t.filter(Column.IsPrimaryKey)
}

// Required returns the NOT NULL columns.
func (t *Table) Required() []Column {
	return t.filter(func(c Column) bool { return !c.IsNullable() })
}

// Optional returns the nullable columns.
func (t *Table) Optional() []Column {
	return t.filter(Column.IsNullable)
}

// Unique returns the columns with a UNIQUE constraint.
func (t *Table) Unique() []Column {
	return t.filter(Column.IsUnique)
}

func (t *Table) filter(keep func(Column) bool) []Column {
	var cs []Column
	for _, c := range t.columns {
		if keep(c) {
			cs = append(cs, c)
		}
	}
	return cs
}

// String implements the fmt.Stringer interface.
func (t *Table) String() string { return t.name }
