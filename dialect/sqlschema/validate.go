package sqlschema

import (
	"fmt"
	"strings"

	"github.com/syssam/schemix"
	"github.com/syssam/schemix/schema"
	"github.com/syssam/schemix/schema/field"
)

// ValidationError is one problem found in a table or one of its columns.
type ValidationError struct {
	Table   string
	Column  string
	Message string
}

func (e *ValidationError) Error() string {
	subject := e.Table
	if e.Column != "" {
		subject += "." + e.Column
	}
	return subject + ": " + e.Message
}

// ValidationResult separates problems that prevent table creation (Errors)
// from ones worth reporting (Warnings).
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

func (r *ValidationResult) HasErrors() bool   { return len(r.Errors) > 0 }
func (r *ValidationResult) HasWarnings() bool { return len(r.Warnings) > 0 }

// Err returns nil when there are no errors, and a ConfigurationError
// aggregating all of them otherwise. Warnings never make Err non-nil.
func (r *ValidationResult) Err() error {
	if !r.HasErrors() {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e)
	}
	return schemix.NewConfigurationError("schema", schemix.NewAggregateError(errs...))
}

// String lists the errors, then the warnings, one per line.
func (r *ValidationResult) String() string {
	if !r.HasErrors() && !r.HasWarnings() {
		return "No issues found"
	}
	var b strings.Builder
	section := func(title string, list []*ValidationError) {
		if len(list) == 0 {
			return
		}
		b.WriteString(title + ":\n")
		for _, e := range list {
			fmt.Fprintf(&b, "  - %v\n", e)
		}
	}
	section("Errors", r.Errors)
	section("Warnings", r.Warnings)
	return b.String()
}

func (r *ValidationResult) errorf(t *schema.Table, column, format string, args ...any) {
	r.Errors = append(r.Errors, &ValidationError{Table: t.Name(), Column: column, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) warnf(t *schema.Table, column, format string, args ...any) {
	r.Warnings = append(r.Warnings, &ValidationError{Table: t.Name(), Column: column, Message: fmt.Sprintf(format, args...)})
}

// ValidateTable checks a single table for dialect d: column types must be
// renderable and foreign keys must point at a registered column. A missing
// primary key and foreign keys whose type differs from the referenced
// column are reported as warnings.
func ValidateTable(d string, t *schema.Table) *ValidationResult {
	r := &ValidationResult{}
	if len(t.PrimaryKey()) == 0 {
		r.warnf(t, "", "table has no primary key")
	}
	for _, c := range t.Columns() {
		if _, err := c.SQLType(d); err != nil {
			r.errorf(t, c.Name(), "%v", err)
		}
		checkReference(r, t, c)
	}
	return r
}

func checkReference(r *ValidationResult, t *schema.Table, c schema.Column) {
	fk := c.ForeignKey()
	switch {
	case fk == nil:
		return
	case fk.Column == nil || fk.Column.Table() == nil:
		r.errorf(t, c.Name(), "foreign key references a column of an unregistered table")
		return
	}
	if !c.IsNullable() && (fk.OnDelete == field.SetNull || fk.OnUpdate == field.SetNull) {
		r.errorf(t, c.Name(), "SET NULL action on a NOT NULL column")
	}
	if target, ok := fk.Column.(schema.Column); ok && target.Type() != c.Type() {
		r.warnf(t, c.Name(), "foreign key type %s differs from referenced %s type %s", c.Type(), target.QualifiedName(), target.Type())
	}
}

// ValidateSchema validates tables as a unit: each table with ValidateTable,
// plus unique table names and foreign keys that stay within the set.
func ValidateSchema(d string, tables []*schema.Table) *ValidationResult {
	r := &ValidationResult{}
	names := make(map[string]bool, len(tables))
	for _, t := range tables {
		if names[t.Name()] {
			r.errorf(t, "", "duplicate table name")
		}
		names[t.Name()] = true
		sub := ValidateTable(d, t)
		r.Errors = append(r.Errors, sub.Errors...)
		r.Warnings = append(r.Warnings, sub.Warnings...)
	}
	for _, t := range tables {
		for _, c := range t.Columns() {
			fk := c.ForeignKey()
			if fk == nil || fk.Column == nil || fk.Column.Table() == nil {
				continue
			}
			if ref := fk.Column.Table().Name(); !names[ref] {
				r.errorf(t, c.Name(), "foreign key references table %q outside the schema", ref)
			}
		}
	}
	return r
}
