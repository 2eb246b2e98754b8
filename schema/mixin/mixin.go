package mixin

import (
	"github.com/syssam/schemix/dialect/sql"
	"github.com/syssam/schemix/schema"
	"github.com/syssam/schemix/schema/field"
)

// Mixin is a reusable group of columns.
type Mixin interface {
	Fields() []schema.Column
}

// Time adds created_at and updated_at timestamp columns to a table.
// Both default to CURRENT_TIMESTAMP.
//
//	type Posts struct {
//		schema.Table
//		ID    *field.Column
//		Title *field.Column
//		mixin.Time
//	}
//
//	var posts = schema.MustDefine(&Posts{
//		ID:    field.Integer("id").PrimaryKey(),
//		Title: field.Text("title").NotNull(),
//		Time:  mixin.NewTime(),
//	})
type Time struct {
	CreatedAt *field.Column
	UpdatedAt *field.Column
}

// NewTime returns fresh created_at and updated_at columns.
func NewTime() Time {
	return Time{
		CreatedAt: field.Timestamp("created_at").NotNull().Default(sql.Raw("CURRENT_TIMESTAMP")),
		UpdatedAt: field.Timestamp("updated_at").NotNull().Default(sql.Raw("CURRENT_TIMESTAMP")),
	}
}

// Fields returns the time tracking columns.
func (m Time) Fields() []schema.Column {
	return []schema.Column{m.CreatedAt, m.UpdatedAt}
}

// SoftDelete adds a nullable deleted_at column. A row with a non-NULL
// deleted_at is considered deleted but remains in the table.
type SoftDelete struct {
	DeletedAt *field.Column
}

// NewSoftDelete returns a fresh deleted_at column.
func NewSoftDelete() SoftDelete {
	return SoftDelete{DeletedAt: field.Timestamp("deleted_at").Nullable()}
}

// Fields returns the soft delete column.
func (m SoftDelete) Fields() []schema.Column {
	return []schema.Column{m.DeletedAt}
}

// Alive returns the predicate selecting rows that are not soft deleted.
func (m SoftDelete) Alive() sql.Expr { return m.DeletedAt.IsNull() }

// UUIDKey adds a UUID primary key column named id.
type UUIDKey struct {
	ID *field.Column
}

// NewUUIDKey returns a fresh id column.
func NewUUIDKey() UUIDKey {
	return UUIDKey{ID: field.UUID("id").PrimaryKey().NotNull()}
}

// Fields returns the key column.
func (m UUIDKey) Fields() []schema.Column {
	return []schema.Column{m.ID}
}

var (
	_ Mixin = Time{}
	_ Mixin = SoftDelete{}
	_ Mixin = UUIDKey{}
)
