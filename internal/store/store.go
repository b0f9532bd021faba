package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/drolta/internal/catalog"
)

// Store is a SQLite database that compiled queries run against.
// It satisfies engine.Executor.
type Store struct {
	db *sql.DB
}

type options struct {
	wal       bool
	queryOnly bool
}

// Option configures Open.
type Option func(*options)

// WithWAL switches the database to WAL journaling with NORMAL synchronous
// mode. Only meaningful for file databases.
func WithWAL() Option {
	return func(o *options) { o.wal = true }
}

// WithQueryOnly sets PRAGMA query_only, so any statement that would modify
// the database fails.
func WithQueryOnly() Option {
	return func(o *options) { o.queryOnly = true }
}

// Open opens the SQLite database at path (":memory:" for a private
// in-memory database). Open never creates or alters tables.
//
// The database is configured with:
//   - a single connection, so an in-memory database is one database
//   - 5-second busy timeout for lock contention
//   - foreign key enforcement
func Open(path string, opts ...Option) (*Store, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(db, o); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// QueryContext runs a query and returns its rows. Callers must close them.
func (s *Store) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// ExecScript runs one or more semicolon-separated statements, such as a
// fixture that creates and fills tables.
func (s *Store) ExecScript(ctx context.Context, script string) error {
	if _, err := s.db.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("exec script: %w", err)
	}
	return nil
}

// Catalog introspects the tables and views of the database.
func (s *Store) Catalog(ctx context.Context) (*catalog.Schema, error) {
	schema, err := catalog.Introspect(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("introspect: %w", err)
	}
	return schema, nil
}

func applyPragmas(db *sql.DB, o options) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	if o.wal {
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
		)
	}
	if o.queryOnly {
		pragmas = append(pragmas, "PRAGMA query_only = ON")
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
