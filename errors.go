package schemix

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels. Each typed error below matches its sentinel with errors.Is, so
// callers can test the category without knowing the concrete type.
var (
	// ErrConfiguration reports an invalid table or column declaration.
	ErrConfiguration = errors.New("schemix: invalid configuration")
	// ErrQuery reports a query that could not be built or failed to run.
	ErrQuery = errors.New("schemix: query failed")
	// ErrConnection reports a failure of the database driver.
	ErrConnection = errors.New("schemix: connection failed")
	// ErrDialectNotSupported reports a construct with no rendering in the
	// active dialect.
	ErrDialectNotSupported = errors.New("schemix: dialect not supported")
	// ErrSerialization reports a value its column cannot encode or decode.
	ErrSerialization = errors.New("schemix: serialization failed")
	// ErrNoDriver is returned when executing on a render-only database.
	ErrNoDriver = errors.New("schemix: no driver configured")
)

// is reports whether err is, or wraps, a T or the sentinel.
func is[T error](err error, sentinel error) bool {
	if err == nil {
		return false
	}
	var target T
	return errors.As(err, &target) || errors.Is(err, sentinel)
}

// ConfigurationError is an invalid declaration. Subject names the table,
// column or declaration at fault.
type ConfigurationError struct {
	Subject string
	Err     error
}

// NewConfigurationError returns a ConfigurationError about subject.
func NewConfigurationError(subject string, err error) *ConfigurationError {
	return &ConfigurationError{Subject: subject, Err: err}
}

// Configurationf is NewConfigurationError with a formatted message.
func Configurationf(subject, format string, args ...any) *ConfigurationError {
	return NewConfigurationError(subject, fmt.Errorf(format, args...))
}

func (e *ConfigurationError) Error() string {
	if e.Subject == "" {
		return "schemix: configuration: " + e.Err.Error()
	}
	return fmt.Sprintf("schemix: configuration of %s: %v", e.Subject, e.Err)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }
func (e *ConfigurationError) Unwrap() error        { return e.Err }

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	return is[*ConfigurationError](err, ErrConfiguration)
}

// QueryError is a failure to build or run a statement against Table. Op is
// the statement kind, such as "select", "insert" or "create".
type QueryError struct {
	Table string
	Op    string
	Err   error
}

// NewQueryError returns a QueryError.
func NewQueryError(table, op string, err error) *QueryError {
	return &QueryError{Table: table, Op: op, Err: err}
}

// Queryf is NewQueryError with a formatted message.
func Queryf(table, op, format string, args ...any) *QueryError {
	return NewQueryError(table, op, fmt.Errorf(format, args...))
}

func (e *QueryError) Error() string {
	var b strings.Builder
	b.WriteString("schemix: ")
	switch {
	case e.Op == "":
		b.WriteString("query")
	case e.Table == "":
		b.WriteString(e.Op)
	default:
		b.WriteString(e.Op + " " + e.Table)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *QueryError) Is(target error) bool { return target == ErrQuery }
func (e *QueryError) Unwrap() error        { return e.Err }

// IsQueryError reports whether err is a QueryError.
func IsQueryError(err error) bool {
	return is[*QueryError](err, ErrQuery)
}

// ConnectionError wraps an error of the database driver. Op is the driver
// call that failed: "open", "begin", "exec", "query", ...
type ConnectionError struct {
	Op  string
	Err error
}

// NewConnectionError returns a ConnectionError.
func NewConnectionError(op string, err error) *ConnectionError {
	return &ConnectionError{Op: op, Err: err}
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("schemix: connection: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }
func (e *ConnectionError) Unwrap() error        { return e.Err }

// IsConnectionError reports whether err is a ConnectionError.
func IsConnectionError(err error) bool {
	return is[*ConnectionError](err, ErrConnection)
}

// DialectNotSupportedError reports a column type, operator or feature that
// has no rendering in Dialect.
type DialectNotSupportedError struct {
	Dialect   string
	Construct string
}

// NewDialectNotSupportedError returns a DialectNotSupportedError.
func NewDialectNotSupportedError(dialect, construct string) *DialectNotSupportedError {
	return &DialectNotSupportedError{Dialect: dialect, Construct: construct}
}

func (e *DialectNotSupportedError) Error() string {
	return fmt.Sprintf("schemix: dialect %q does not support %s", e.Dialect, e.Construct)
}

func (e *DialectNotSupportedError) Is(target error) bool { return target == ErrDialectNotSupported }

// IsDialectNotSupported reports whether err is a DialectNotSupportedError.
func IsDialectNotSupported(err error) bool {
	return is[*DialectNotSupportedError](err, ErrDialectNotSupported)
}

// SerializationError is a value Column could not convert. Op is
// "serialize" or "deserialize".
type SerializationError struct {
	Column string
	Op     string
	Err    error
}

// NewSerializationError returns a SerializationError.
func NewSerializationError(column, op string, err error) *SerializationError {
	return &SerializationError{Column: column, Op: op, Err: err}
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("schemix: %s %s: %v", e.Op, e.Column, e.Err)
}

func (e *SerializationError) Is(target error) bool { return target == ErrSerialization }
func (e *SerializationError) Unwrap() error        { return e.Err }

// IsSerializationError reports whether err is a SerializationError.
func IsSerializationError(err error) bool {
	return is[*SerializationError](err, ErrSerialization)
}

// ConstraintError is a constraint violation reported by the database.
type ConstraintError struct {
	msg  string
	wrap error
}

// NewConstraintError returns a ConstraintError wrapping the driver error.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

func (e ConstraintError) Error() string { return "schemix: constraint failed: " + e.msg }
func (e ConstraintError) Unwrap() error { return e.wrap }

// IsConstraintError reports whether err is a ConstraintError.
func IsConstraintError(err error) bool {
	var e ConstraintError
	return err != nil && errors.As(err, &e)
}

// AggregateError holds several independent errors, such as every problem
// found while validating a set of tables.
type AggregateError struct {
	Errors []error
}

// NewAggregateError drops the nil errors of errs. It returns nil when none
// remain, the error itself when one remains, and an AggregateError otherwise.
func NewAggregateError(errs ...error) error {
	var kept []error
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return &AggregateError{Errors: kept}
}

func (e *AggregateError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "schemix: no errors"
	case 1:
		return e.Errors[0].Error()
	}
	lines := make([]string, 0, len(e.Errors)+1)
	lines = append(lines, "schemix: multiple errors:")
	for i, err := range e.Errors {
		lines = append(lines, fmt.Sprintf("  [%d] %v", i+1, err))
	}
	return strings.Join(lines, "\n")
}

func (e *AggregateError) Unwrap() []error { return e.Errors }
