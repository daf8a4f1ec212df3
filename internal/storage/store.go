package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Store owns the single embedded database handle. All reads and writes in
// the application go through it, directly or via the entity repositories.
type Store struct {
	path string

	mu       sync.Mutex // guards db, migrated
	db       *sql.DB
	migrated bool

	txMu sync.Mutex // one logical writer at a time
}

func New(path string) *Store {
	return &Store{path: path}
}

// Open acquires the database handle. Calling Open on an already open store
// is a no-op returning the existing handle.
func (s *Store) Open() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db, nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return nil, fmt.Errorf("%w: create db directory: %v", ErrUnavailable, err)
	}

	db, err := sql.Open("sqlite", dsn(s.path))
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite database: %v", ErrUnavailable, err)
	}
	// Single connection: sqlite allows one writer, and a shared pool would
	// let reads observe another connection's open transaction.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %v", ErrUnavailable, err)
	}

	s.db = db
	slog.Info("Storage opened", "path", s.path)
	return s.db, nil
}

func dsn(path string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
}

// Migrate applies all pending migrations and marks the store ready.
func (s *Store) Migrate() error {
	if _, err := s.Open(); err != nil {
		return err
	}
	if err := RunMigrations(s.path); err != nil {
		return err
	}
	s.mu.Lock()
	s.migrated = true
	s.mu.Unlock()
	return nil
}

// Ready reports whether Open plus all pending migrations have completed.
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db != nil && s.migrated
}

// DB exposes the handle for read queries. Returns nil before Open.
func (s *Store) DB() *sql.DB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db
}

// WithTx runs fn inside a write transaction: commit on normal return,
// rollback on any error. Write transactions are mutually exclusive, and a
// transaction once begun always runs to commit-or-rollback regardless of
// context cancellation.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return fmt.Errorf("%w: store is not open", ErrUnavailable)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	// context.Background: a cancelled ctx must not abort a transaction
	// mid-flight and leave the driver connection in a torn state.
	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Transaction rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.migrated = false
	return err
}
