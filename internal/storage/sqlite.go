// Package storage persists rule catalogs and quality profiles in SQLite,
// using the table layout of the original profile database: rules and their
// parameters, profiles, active rules with their severity stored as a
// failure level, and active rule parameter values.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"qpdiff/internal/log"
)

var (
	// ErrProfileNotFound is returned when no profile has the requested key.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrCorruptRow is returned when a stored row cannot be mapped back.
	ErrCorruptRow = errors.New("corrupt row")
)

const schema = `
CREATE TABLE IF NOT EXISTS rules (
  id              INTEGER PRIMARY KEY AUTOINCREMENT,
  plugin_name     TEXT NOT NULL,
  plugin_rule_key TEXT NOT NULL,
  name            TEXT NOT NULL,
  UNIQUE (plugin_name, plugin_rule_key)
);

CREATE TABLE IF NOT EXISTS rules_parameters (
  id      INTEGER PRIMARY KEY AUTOINCREMENT,
  rule_id INTEGER NOT NULL REFERENCES rules(id),
  name    TEXT NOT NULL,
  UNIQUE (rule_id, name)
);

CREATE TABLE IF NOT EXISTS rules_profiles (
  id       INTEGER PRIMARY KEY AUTOINCREMENT,
  kee      TEXT NOT NULL UNIQUE,
  name     TEXT NOT NULL,
  language TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS active_rules (
  id            INTEGER PRIMARY KEY AUTOINCREMENT,
  profile_id    INTEGER NOT NULL REFERENCES rules_profiles(id),
  rule_id       INTEGER NOT NULL REFERENCES rules(id),
  failure_level INTEGER NOT NULL,
  UNIQUE (profile_id, rule_id)
);

CREATE TABLE IF NOT EXISTS active_rule_parameters (
  id                 INTEGER PRIMARY KEY AUTOINCREMENT,
  active_rule_id     INTEGER NOT NULL REFERENCES active_rules(id),
  rules_parameter_id INTEGER NOT NULL REFERENCES rules_parameters(id),
  value              TEXT NOT NULL,
  UNIQUE (active_rule_id, rules_parameter_id)
);

CREATE INDEX IF NOT EXISTS idx_active_rules_profile ON active_rules(profile_id);
CREATE INDEX IF NOT EXISTS idx_active_rule_parameters_rule ON active_rule_parameters(active_rule_id);
`

// SQLiteStore reads and writes catalogs and profiles.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger sets the logger used for debug records.
func WithLogger(l *slog.Logger) Option {
	return func(s *SQLiteStore) {
		s.logger = l
	}
}

// NewSQLiteStore wraps db and creates the tables if they are missing.
func NewSQLiteStore(db *sql.DB, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, logger: log.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Open opens the database at dsn with the modernc driver. A plain path gets
// a busy timeout and foreign keys enabled. An in-memory database is held on
// a single connection, since each connection would see its own database.
func Open(dsn string, opts ...Option) (*SQLiteStore, error) {
	memory := dsn == ":memory:"
	if !strings.HasPrefix(dsn, "file:") && !memory {
		dsn = "file:" + dsn + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	}
	s, err := NewSQLiteStore(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) migrate() error {
	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// withTx runs fn in a transaction, committing on success.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
