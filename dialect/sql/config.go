package sql

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syssam/schemix"
	"github.com/syssam/schemix/dialect"
)

// Config describes how to open a database.
//
//	driver: pgx
//	dsn: postgres://app@localhost:5432/app
//	max_open_conns: 10
//	conn_max_lifetime: 30m
//	slow_threshold: 200ms
type Config struct {
	// Driver is the database/sql driver name: "sqlite", "pgx" or "postgres" (lib/pq).
	Driver string `yaml:"driver"`
	// DSN is the data source name passed to the driver.
	DSN string `yaml:"dsn"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`

	// SlowThreshold enables statistics collection with slow statement logging.
	SlowThreshold time.Duration `yaml:"slow_threshold"`
	// Debug logs every statement. It takes precedence over SlowThreshold.
	Debug bool `yaml:"debug"`
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, schemix.NewConfigurationError(path, err)
	}
	return ParseConfig(b)
}

// ParseConfig decodes and validates a YAML configuration. Unknown keys are
// rejected.
func ParseConfig(b []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, schemix.NewConfigurationError("database config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for missing or invalid values.
func (c *Config) Validate() error {
	var errs []error
	if _, err := dialect.Parse(c.Driver); err != nil {
		errs = append(errs, fmt.Errorf("unknown driver %q", c.Driver))
	}
	if strings.TrimSpace(c.DSN) == "" {
		errs = append(errs, errors.New("dsn must not be empty"))
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		errs = append(errs, errors.New("connection limits must not be negative"))
	}
	if len(errs) > 0 {
		return schemix.NewConfigurationError("database config", errors.Join(errs...))
	}
	return nil
}

// OpenConfig opens the database described by cfg and wraps it with the
// debug or statistics driver when configured.
func OpenConfig(ctx context.Context, cfg *Config) (dialect.Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var (
		drv *Driver
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case "sqlite", "sqlite3":
		drv, err = OpenSQLite(ctx, cfg.DSN)
	case "postgres", "pq":
		drv, err = OpenPQ(ctx, cfg.DSN)
	default:
		var opts []PoolOption
		if cfg.MaxOpenConns > 0 {
			opts = append(opts, WithMaxConns(int32(cfg.MaxOpenConns)))
		}
		if cfg.ConnMaxLifetime > 0 {
			opts = append(opts, WithMaxConnLifetime(cfg.ConnMaxLifetime))
		}
		if cfg.ConnMaxIdleTime > 0 {
			opts = append(opts, WithMaxConnIdleTime(cfg.ConnMaxIdleTime))
		}
		drv, err = OpenPostgres(ctx, cfg.DSN, opts...)
	}
	if err != nil {
		return nil, err
	}
	db := drv.DB()
	if cfg.MaxOpenConns > 0 && drv.Dialect() != dialect.SQLite {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	switch {
	case cfg.Debug:
		return NewDebugDriver(drv), nil
	case cfg.SlowThreshold > 0:
		return NewStatsDriver(drv, WithSlowThreshold(cfg.SlowThreshold), WithSlowLog(nil)), nil
	default:
		return drv, nil
	}
}
