// Package mixin provides reusable column groups for table declarations.
//
// A mixin is a struct of columns embedded in a declaration. Define collects
// the columns of embedded structs in field order, so a mixin contributes its
// columns where it is embedded:
//
//	type Users struct {
//		schema.Table
//		mixin.UUIDKey
//		Email *field.Column
//		mixin.Time
//		mixin.SoftDelete
//	}
//
//	var users = schema.MustDefine(&Users{
//		UUIDKey:    mixin.NewUUIDKey(),
//		Email:      field.Varchar("email", 255).NotNull().Unique(),
//		Time:       mixin.NewTime(),
//		SoftDelete: mixin.NewSoftDelete(),
//	})
//
// Every constructor returns new columns. A column belongs to exactly one
// table, so each declaration needs its own mixin values.
//
// Mixins also work with schema.New through their Fields method:
//
//	tags, err := schema.New("tags", append(mixin.NewUUIDKey().Fields(), field.Text("label"))...)
package mixin
