package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"moneta/internal/core"
)

// newTestStore opens and migrates a store backed by a throwaway database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "test.db"))
	if err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustDate(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func seedCategory(t *testing.T, s *Store, id, name string, kind core.CategoryKind) {
	t.Helper()
	repo := NewCategoryRepo(s)
	if err := repo.Create(context.Background(), core.Category{ID: id, Name: name, Kind: kind, Active: true}); err != nil {
		t.Fatalf("seed category %s: %v", id, err)
	}
}

func TestOpenIdempotent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "test.db"))
	defer s.Close()

	db1, err := s.Open()
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	db2, err := s.Open()
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if db1 != db2 {
		t.Error("second Open should return the same handle")
	}
}

func TestReadyLifecycle(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "test.db"))
	defer s.Close()

	if s.Ready() {
		t.Error("store should not be ready before Open")
	}
	if _, err := s.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.Ready() {
		t.Error("store should not be ready before migrations run")
	}
	if err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !s.Ready() {
		t.Error("store should be ready after Migrate")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if s.Ready() {
		t.Error("store should not be ready after Close")
	}
}

func TestWithTxRollbackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO categories(id, name, kind, active) VALUES ('c1', 'Food', 'expense', 1)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx should return fn error, got %v", err)
	}

	var count int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("insert should have rolled back, found %d rows", count)
	}
}

func TestWithTxCommit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO categories(id, name, kind, active) VALUES ('c1', 'Food', 'expense', 1)`)
		return err
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	var count int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row after commit, got %d", count)
	}
}

func TestWithTxRequiresOpen(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "test.db"))
	err := s.WithTx(context.Background(), func(tx *sql.Tx) error { return nil })
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable before Open, got %v", err)
	}
}
