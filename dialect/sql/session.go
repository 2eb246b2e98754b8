package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/schemix/dialect"
)

// resetTimeout bounds the RESET statements run when a session ends.
const resetTimeout = 5 * time.Second

// identRe matches a plain or schema qualified setting name.
var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

func isValidIdentifier(s string) bool {
	return len(s) <= 128 && identRe.MatchString(s)
}

// escapeStringValue doubles single quotes for a standard string literal.
func escapeStringValue(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

type sessionVar struct{ name, value string }

type sessionKey struct{}

func sessionFrom(ctx context.Context) []sessionVar {
	vars, _ := ctx.Value(sessionKey{}).([]sessionVar)
	return vars
}

// WithVar returns a context carrying a Postgres setting that is applied with
// SET before every statement issued with it, and reset afterwards. Later
// values of the same name win.
//
//	ctx = sql.WithVar(ctx, "statement_timeout", "5s")
func WithVar(ctx context.Context, name, value string) context.Context {
	vars := sessionFrom(ctx)
	vars = append(vars[:len(vars):len(vars)], sessionVar{name: name, value: value})
	return context.WithValue(ctx, sessionKey{}, vars)
}

// WithIntVar is WithVar for integer settings.
func WithIntVar(ctx context.Context, name string, value int) context.Context {
	return WithVar(ctx, name, strconv.Itoa(value))
}

// VarFromContext returns the first value set for name.
func VarFromContext(ctx context.Context, name string) (string, bool) {
	for _, v := range sessionFrom(ctx) {
		if v.name == name {
			return v.value, true
		}
	}
	return "", false
}

// session returns the ExecQuerier statements of ctx must run on. When ctx
// carries settings they are applied first: on the transaction itself, or on
// a connection taken from the pool for the duration of the statement. The
// returned release function resets the settings and returns the connection.
func (c Conn) session(ctx context.Context) (ExecQuerier, func() error, error) {
	vars := sessionFrom(ctx)
	if len(vars) == 0 {
		return c, nil, nil
	}
	if c.dialect == dialect.SQLite {
		return nil, nil, fmt.Errorf("session variables are not supported by %s", c.dialect)
	}
	for _, v := range vars {
		if !isValidIdentifier(v.name) {
			return nil, nil, fmt.Errorf("invalid session variable name: %q", v.name)
		}
	}
	var (
		ex      ExecQuerier
		release = func() error { return nil }
	)
	switch e := c.ExecQuerier.(type) {
	case *sql.Tx:
		ex = e
	case *sql.DB:
		conn, err := e.Conn(ctx)
		if err != nil {
			return nil, nil, err
		}
		ex, release = conn, conn.Close
	default:
		return nil, nil, fmt.Errorf("unsupported ExecQuerier type: %T", c.ExecQuerier)
	}
	var names []string
	for _, v := range vars {
		if !slices.Contains(names, v.name) {
			names = append(names, v.name)
		}
		if _, err := ex.ExecContext(ctx, fmt.Sprintf("SET %s = '%s'", v.name, escapeStringValue(v.value))); err != nil {
			return nil, nil, errors.Join(err, release())
		}
	}
	if _, pooled := c.ExecQuerier.(*sql.DB); !pooled {
		return ex, nil, nil
	}
	// The reset runs on its own context so it completes after the
	// statement context is cancelled.
	closeConn := release
	return ex, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), resetTimeout)
		defer cancel()
		for _, name := range names {
			if _, err := ex.ExecContext(ctx, "RESET "+name); err != nil {
				return errors.Join(err, closeConn())
			}
		}
		return closeConn()
	}, nil
}
