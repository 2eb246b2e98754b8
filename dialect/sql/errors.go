package sql

import (
	"errors"
	"strings"

	"github.com/syssam/schemix"
)

// errorCoder is an interface for database errors that provide string error codes.
type errorCoder interface {
	Code() string
}

// sqlStateError is an interface for errors that provide SQLSTATE codes.
// Implemented by: pgconn.PgError and pq.Error. SQLite errors are matched by message.
type sqlStateError interface {
	SQLState() string
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// Constraint kinds reported by ConstraintKind.
const (
	ConstraintUnique     = "unique"
	ConstraintForeignKey = "foreign key"
	ConstraintNotNull    = "not null"
	ConstraintCheck      = "check"
)

var constraintChecks = []struct {
	kind     string
	sqlState string
	messages []string
}{
	{ConstraintUnique, pgUniqueViolation, []string{"violates unique constraint", "UNIQUE constraint failed"}},
	{ConstraintForeignKey, pgForeignKeyViolation, []string{"violates foreign key constraint", "FOREIGN KEY constraint failed"}},
	{ConstraintNotNull, pgNotNullViolation, []string{"violates not-null constraint", "NOT NULL constraint failed"}},
	{ConstraintCheck, pgCheckViolation, []string{"violates check constraint", "CHECK constraint failed"}},
}

// ConstraintKind classifies err as a constraint violation and returns its
// kind, or "" if err is not one.
func ConstraintKind(err error) string {
	if err == nil {
		return ""
	}
	var state string
	if e, ok := asError[sqlStateError](err); ok {
		state = e.SQLState()
	} else if e, ok := asError[errorCoder](err); ok {
		state = e.Code()
	}
	msg := err.Error()
	for _, c := range constraintChecks {
		if state == c.sqlState || containsAny(msg, c.messages...) {
			return c.kind
		}
	}
	return ""
}

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return schemix.IsConstraintError(err) || ConstraintKind(err) != ""
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
func IsUniqueConstraintError(err error) bool {
	return ConstraintKind(err) == ConstraintUnique
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
func IsForeignKeyConstraintError(err error) bool {
	return ConstraintKind(err) == ConstraintForeignKey
}

// WrapConstraintError wraps err in a schemix.ConstraintError when it is a
// constraint violation and returns it unchanged otherwise. The message
// keeps the driver error text.
func WrapConstraintError(err error) error {
	if kind := ConstraintKind(err); kind != "" && !schemix.IsConstraintError(err) {
		return schemix.NewConstraintError(kind+": "+err.Error(), err)
	}
	return err
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
