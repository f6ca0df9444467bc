// Package store opens the single local database file that questions run
// against. Every operation gets its own handle; nothing is pooled between
// operations.
package store

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"
	_ "modernc.org/sqlite"

	apperr "github.com/sqlask/sqlask/internal/errors"
)

// Store hands out short-lived database handles. Callers close the handle
// once their single operation completes.
type Store interface {
	Open(ctx context.Context) (*sql.DB, error)
	Driver() Driver
}

type Config struct {
	Driver string
	Path   string
	// Create allows Open to create a missing file. Only bootstrap sets it.
	Create bool
}

type File struct {
	driver Driver
	path   string
	create bool
}

func New(cfg Config) (*File, error) {
	driver := ParseDriver(cfg.Driver)
	if cfg.Driver == "" {
		driver = DriverSQLite
	}
	if !driver.IsValid() {
		return nil, apperr.Newf(apperr.KindConfig, "unsupported store driver %q", cfg.Driver)
	}
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, apperr.New(apperr.KindConfig, "store path is required")
	}
	return &File{driver: driver, path: path, create: cfg.Create}, nil
}

func (f *File) Driver() Driver {
	return f.driver
}

func (f *File) Path() string {
	return f.path
}

// Open connects to the store file and verifies it answers a ping.
func (f *File) Open(ctx context.Context) (*sql.DB, error) {
	if f.create {
		if dir := filepath.Dir(f.path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, apperr.Wrapf(err, apperr.KindStoreUnavailable, "create store directory %s", dir)
			}
		}
	} else if _, err := os.Stat(f.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.Newf(apperr.KindStoreUnavailable, "store file %s does not exist; run sqlask-bootstrap first", f.path)
		}
		return nil, apperr.Wrapf(err, apperr.KindStoreUnavailable, "stat store file %s", f.path)
	}

	db, err := sql.Open(f.driver.Name(), f.path)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.KindStoreUnavailable, "open %s store", f.driver)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, apperr.Wrapf(err, apperr.KindStoreUnavailable, "ping %s store", f.driver)
	}
	return db, nil
}

// Func adapts a function into a Store.
type Func struct {
	OpenFunc func(ctx context.Context) (*sql.DB, error)
	Dialect  Driver
}

func (f Func) Open(ctx context.Context) (*sql.DB, error) {
	return f.OpenFunc(ctx)
}

func (f Func) Driver() Driver {
	return f.Dialect
}
