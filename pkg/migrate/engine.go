package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/lib/pq"
	"github.com/platinummonkey/dockgen/pkg/observability"
	"github.com/sirupsen/logrus"
)

// OpenFunc opens a database handle for a DSN
type OpenFunc func(dsn string) (*sql.DB, error)

// SQLEngine applies migrations in-process over database/sql and lib/pq
type SQLEngine struct {
	log     logrus.FieldLogger
	metrics *observability.Metrics
	open    OpenFunc
}

// Option configures an SQLEngine
type Option func(*SQLEngine)

// WithLogger sets the engine logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *SQLEngine) {
		e.log = log
	}
}

// WithMetrics counts applied scripts
func WithMetrics(m *observability.Metrics) Option {
	return func(e *SQLEngine) {
		e.metrics = m
	}
}

// WithOpener replaces sql.Open("postgres", dsn)
func WithOpener(open OpenFunc) Option {
	return func(e *SQLEngine) {
		e.open = open
	}
}

// NewSQLEngine creates a Postgres migration engine
func NewSQLEngine(opts ...Option) *SQLEngine {
	e := &SQLEngine{
		open: func(dsn string) (*sql.DB, error) {
			return sql.Open("postgres", dsn)
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = observability.OrDefault(e.log)
	return e
}

// DSN merges user and password into the database URL
func DSN(rawURL, user, password string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid database url: %w", err)
	}
	if user != "" {
		if password != "" {
			u.User = url.UserPassword(user, password)
		} else {
			u.User = url.User(user)
		}
	}
	return u.String(), nil
}

// Migrate creates the configured schemas and the history table, validates
// already applied scripts and applies pending ones in version order. Each
// script runs in its own transaction together with its history row.
func (e *SQLEngine) Migrate(ctx context.Context, cfg Config) (*Result, error) {
	opts, err := resolveOptions(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}

	scripts, err := Scan(cfg.Locations)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	dsn, err := DSN(cfg.URL, cfg.User, cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}

	db, err := e.open(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", ErrMigrationFailed, err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: failed to connect to database: %v", ErrMigrationFailed, err)
	}

	log := e.log.WithFields(logrus.Fields{
		"schema": opts.defaultSchema,
		"table":  opts.table,
	})

	if err := ensureSchemas(ctx, db, append([]string{opts.defaultSchema}, cfg.Schemas...)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}

	h := history{schema: opts.defaultSchema, table: opts.table}
	if err := h.create(ctx, db); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}

	applied, err := h.applied(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}

	pending, current, err := plan(scripts, applied, opts.validateOnMigrate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	result := &Result{
		DefaultSchema:  opts.defaultSchema,
		Table:          opts.table,
		InitialVersion: current,
		TargetVersion:  current,
	}

	if len(pending) == 0 {
		log.WithField("version", current).Info("Schema is up to date")
		return result, nil
	}

	rank := len(applied)
	for _, s := range pending {
		rank++
		log.WithFields(logrus.Fields{
			"script":  s.Name,
			"version": s.Version.String(),
		}).Info("Migrating schema")

		if err := e.apply(ctx, db, h, rank, s, opts); err != nil {
			e.metrics.AddMigrations(len(result.Applied))
			return result, &ScriptError{Script: s.Name, Err: err}
		}
		result.Applied = append(result.Applied, s.Name)
		result.TargetVersion = s.Version.String()
	}

	e.metrics.AddMigrations(len(result.Applied))
	log.WithFields(logrus.Fields{
		"applied": len(result.Applied),
		"version": result.TargetVersion,
	}).Info("Successfully applied migrations")

	return result, nil
}

func (e *SQLEngine) apply(ctx context.Context, db *sql.DB, h history, rank int, s Script, opts options) error {
	body, err := replacePlaceholders(s.SQL, opts.placeholders)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "SET LOCAL search_path TO "+pq.QuoteIdentifier(opts.defaultSchema)); err != nil {
		return fmt.Errorf("failed to set search_path: %w", err)
	}

	start := time.Now()
	if _, err := tx.ExecContext(ctx, body); err != nil {
		return err
	}

	if err := h.record(ctx, tx, rank, s, opts.installedBy, time.Since(start)); err != nil {
		return err
	}

	return tx.Commit()
}

func ensureSchemas(ctx context.Context, db *sql.DB, schemas []string) error {
	seen := make(map[string]bool)
	for _, schema := range schemas {
		if schema == "" || seen[schema] {
			continue
		}
		seen[schema] = true
		if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+pq.QuoteIdentifier(schema)); err != nil {
			return fmt.Errorf("failed to create schema %s: %w", schema, err)
		}
	}
	return nil
}

// plan returns the scripts still to apply and the current version.
// With validation on, applied scripts must still exist locally with an
// unchanged checksum, no failed migration may be recorded, and no pending
// script may be older than the current version.
func plan(scripts []Script, applied []AppliedMigration, validate bool) ([]Script, string, error) {
	local := make(map[string]Script, len(scripts))
	for _, s := range scripts {
		local[s.Version.String()] = s
	}

	done := make(map[string]bool, len(applied))
	var versions []string
	for _, a := range applied {
		if a.Version == "" {
			continue
		}
		v, err := ParseVersion(a.Version)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrValidation, err)
		}
		key := v.String()

		if validate {
			if !a.Success {
				return nil, "", fmt.Errorf("%w: failed migration %s (%s) found in history", ErrValidation, a.Version, a.Script)
			}
			s, ok := local[key]
			if !ok {
				return nil, "", fmt.Errorf("%w: applied migration %s (%s) not found locally", ErrValidation, a.Version, a.Script)
			}
			if a.Checksum.Valid && a.Checksum.Int32 != s.Checksum {
				return nil, "", fmt.Errorf("%w: version %s: applied %d, local %d", ErrChecksumMismatch, a.Version, a.Checksum.Int32, s.Checksum)
			}
		}

		if a.Success {
			done[key] = true
			versions = append(versions, key)
		}
	}

	current := MaxVersion(versions)
	var currentVersion Version
	if current != "" {
		currentVersion, _ = ParseVersion(current)
	}

	var pending []Script
	for _, s := range scripts {
		if done[s.Version.String()] {
			continue
		}
		if current != "" && s.Version.Compare(currentVersion) < 0 {
			if validate {
				return nil, "", fmt.Errorf("%w: pending migration %s is older than current version %s", ErrValidation, s.Name, current)
			}
			continue
		}
		pending = append(pending, s)
	}
	return pending, current, nil
}

var _ Engine = (*SQLEngine)(nil)
