package sql

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/syssam/schemix/dialect"
)

// Kind classifies a statement by its leading keyword.
type Kind string

// Statement kinds.
const (
	KindSelect Kind = "select"
	KindInsert Kind = "insert"
	KindDDL    Kind = "ddl"
	KindOther  Kind = "other"
)

// StatementKind returns the kind of a SQL statement.
func StatementKind(query string) Kind {
	word, _, _ := strings.Cut(strings.TrimSpace(query), " ")
	switch strings.ToUpper(word) {
	case "SELECT", "WITH":
		return KindSelect
	case "INSERT":
		return KindInsert
	case "CREATE", "ALTER", "DROP":
		return KindDDL
	default:
		return KindOther
	}
}

// KindStats holds the counters of one statement kind.
type KindStats struct {
	// Statements is the number of statements issued. ExecMany counts once.
	Statements int64
	// ArgumentSets is the number of argument sets executed.
	ArgumentSets int64
	Errors       int64
	Slow         int64
	Elapsed      time.Duration
}

// Avg returns the average statement duration.
func (k KindStats) Avg() time.Duration {
	if k.Statements == 0 {
		return 0
	}
	return k.Elapsed / time.Duration(k.Statements)
}

func (k *KindStats) add(o KindStats) {
	k.Statements += o.Statements
	k.ArgumentSets += o.ArgumentSets
	k.Errors += o.Errors
	k.Slow += o.Slow
	k.Elapsed += o.Elapsed
}

// Stats collects statement counters per kind. It is safe for concurrent use.
type Stats struct {
	mu    sync.Mutex
	kinds map[Kind]*KindStats
}

func (s *Stats) record(kind Kind, sets int64, elapsed time.Duration, failed, slow bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kinds == nil {
		s.kinds = make(map[Kind]*KindStats)
	}
	k, ok := s.kinds[kind]
	if !ok {
		k = &KindStats{}
		s.kinds[kind] = k
	}
	k.Statements++
	k.ArgumentSets += sets
	k.Elapsed += elapsed
	if failed {
		k.Errors++
	}
	if slow {
		k.Slow++
	}
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := make(StatsSnapshot, len(s.kinds))
	for kind, k := range s.kinds {
		snap[kind] = *k
	}
	return snap
}

// Reset sets all counters to zero.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds = nil
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot map[Kind]KindStats

// Total sums the counters of all kinds.
func (s StatsSnapshot) Total() KindStats {
	var total KindStats
	for _, k := range s {
		total.add(k)
	}
	return total
}

// String returns one line per kind, sorted by kind.
func (s StatsSnapshot) String() string {
	kinds := make([]string, 0, len(s))
	for kind := range s {
		kinds = append(kinds, string(kind))
	}
	slices.Sort(kinds)
	lines := make([]string, len(kinds))
	for i, kind := range kinds {
		k := s[Kind(kind)]
		lines[i] = fmt.Sprintf("%s: statements=%d sets=%d errors=%d slow=%d avg=%s",
			kind, k.Statements, k.ArgumentSets, k.Errors, k.Slow, k.Avg())
	}
	return strings.Join(lines, "\n")
}

// SlowStatement describes a statement that exceeded the slow threshold.
type SlowStatement struct {
	Kind     Kind
	Query    string
	Sets     int
	Duration time.Duration
	Err      error
}

// SlowHook is called for every slow statement.
type SlowHook func(context.Context, SlowStatement)

// StatsDriver is a driver that counts the statements it executes and
// reports slow ones.
type StatsDriver struct {
	*Driver
	stats     *Stats
	threshold atomic.Int64
	hook      SlowHook
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement is slow.
// Defaults to 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) { s.threshold.Store(int64(d)) }
}

// WithSlowHook sets the function called for slow statements.
func WithSlowHook(hook SlowHook) StatsOption {
	return func(s *StatsDriver) { s.hook = hook }
}

// WithSlowLog reports slow statements to l at Warn level, or to
// slog.Default() when l is nil.
func WithSlowLog(l *slog.Logger) StatsOption {
	return WithSlowHook(func(ctx context.Context, st SlowStatement) {
		logger := l
		if logger == nil {
			logger = slog.Default()
		}
		logger.WarnContext(ctx, "slow statement", "kind", st.Kind, "duration", st.Duration, "sets", st.Sets, "sql", st.Query, "error", st.Err)
	})
}

// NewStatsDriver wraps drv with statement statistics.
//
//	drv := sql.NewStatsDriver(base, sql.WithSlowThreshold(200*time.Millisecond), sql.WithSlowLog(nil))
//	db, err := query.New(drv, tables)
//	...
//	fmt.Println(drv.Stats().Snapshot()[sql.KindInsert].Statements)
func NewStatsDriver(drv *Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv, stats: &Stats{}}
	s.threshold.Store(int64(100 * time.Millisecond))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the collected statistics.
func (d *StatsDriver) Stats() *Stats { return d.stats }

// SlowThreshold returns the slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	return time.Duration(d.threshold.Load())
}

// SetSlowThreshold changes the slow statement threshold.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.threshold.Store(int64(threshold))
}

// Query implements the dialect.Driver interface.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.observe(ctx, query, 1, start, err)
	return err
}

// Exec implements the dialect.Driver interface.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.observe(ctx, query, 1, start, err)
	return err
}

// ExecMany implements the dialect.ManyExecer interface.
func (d *StatsDriver) ExecMany(ctx context.Context, query string, argsets [][]any) (int64, error) {
	start := time.Now()
	n, err := d.Driver.ExecMany(ctx, query, argsets)
	d.observe(ctx, query, len(argsets), start, err)
	return n, err
}

func (d *StatsDriver) observe(ctx context.Context, query string, sets int, start time.Time, err error) {
	elapsed := time.Since(start)
	kind := StatementKind(query)
	slow := elapsed > d.SlowThreshold()
	d.stats.record(kind, int64(sets), elapsed, err != nil, slow)
	if slow && d.hook != nil {
		d.hook(ctx, SlowStatement{Kind: kind, Query: query, Sets: sets, Duration: elapsed, Err: err})
	}
}

// Tx starts a transaction whose statements are counted too.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsTx{Tx: tx, driver: d}, nil
}

// StatsTx is a transaction of a StatsDriver.
type StatsTx struct {
	dialect.Tx
	driver *StatsDriver
}

// Query implements the dialect.Tx interface.
func (tx *StatsTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.driver.observe(ctx, query, 1, start, err)
	return err
}

// Exec implements the dialect.Tx interface.
func (tx *StatsTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.driver.observe(ctx, query, 1, start, err)
	return err
}

// ExecMany implements the dialect.ManyExecer interface.
func (tx *StatsTx) ExecMany(ctx context.Context, query string, argsets [][]any) (int64, error) {
	me, ok := tx.Tx.(dialect.ManyExecer)
	if !ok {
		return 0, fmt.Errorf("dialect/sql: %T does not support ExecMany", tx.Tx)
	}
	start := time.Now()
	n, err := me.ExecMany(ctx, query, argsets)
	tx.driver.observe(ctx, query, len(argsets), start, err)
	return n, err
}

var (
	_ dialect.Driver     = (*StatsDriver)(nil)
	_ dialect.ManyExecer = (*StatsDriver)(nil)
	_ dialect.Tx         = (*StatsTx)(nil)
	_ dialect.ManyExecer = (*StatsTx)(nil)
)
