// Package storetest builds seeded store files for tests.
package storetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sqlask/sqlask/internal/store"
	"github.com/sqlask/sqlask/internal/store/seed"
)

// Seeded returns a store over a fresh file in t.TempDir() holding the
// demonstration STUDENT table.
func Seeded(t testing.TB, driver string) *store.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "student."+driver)

	creator, err := store.New(store.Config{Driver: driver, Path: path, Create: true})
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	db, err := creator.Open(context.Background())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, _, err := seed.NewRunner().Reset(context.Background(), db); err != nil {
		_ = db.Close()
		t.Fatalf("seed store: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	file, err := store.New(store.Config{Driver: driver, Path: path})
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	return file
}

// Count returns the number of rows in table.
func Count(t testing.TB, s store.Store, table string) int {
	t.Helper()
	db, err := s.Open(context.Background())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = db.Close() }()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&count); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return count
}
