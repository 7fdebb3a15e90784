// Package engine wires the catalog, durable store, transaction manager and
// executor into one database handle.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/tuannm99/coldb/internal"
	"github.com/tuannm99/coldb/internal/catalog"
	"github.com/tuannm99/coldb/internal/colstore"
	"github.com/tuannm99/coldb/internal/persist"
	"github.com/tuannm99/coldb/internal/sql/ast"
	"github.com/tuannm99/coldb/internal/sql/executor"
	"github.com/tuannm99/coldb/internal/txn"
)

var ErrDatabaseClosed = errors.New("coldb: database is closed")

// DatabaseOperation is the public surface of a Database.
type DatabaseOperation interface {
	Exec(stmt ast.Statement) (*executor.Result, error)
	Begin() error
	Commit() error
	Abort() error
	HasActiveTransaction() bool
	Close() error
}

var _ DatabaseOperation = (*Database)(nil)

type Database struct {
	DataDir string

	mu     sync.Mutex
	closed bool

	store   *persist.Store
	catalog *catalog.Catalog
	txn     *txn.Manager
	exec    *executor.Executor
}

// tableDir holds one image file per table.
func tableDir(dataDir string) string {
	return filepath.Join(dataDir, "tables")
}

// Open creates the data directory if needed, recovers every durable table
// and returns a ready handle.
func Open(ctx context.Context, cfg *internal.ColdbConfig) (*Database, error) {
	if cfg == nil {
		cfg = internal.DefaultConfig()
	}
	if err := os.MkdirAll(cfg.Storage.Workdir, 0o755); err != nil {
		return nil, fmt.Errorf("open: create data dir: %w", err)
	}

	opts := []colstore.Option{colstore.WithTreeDegree(cfg.Index.TreeDegree)}
	store, err := persist.NewStore(tableDir(cfg.Storage.Workdir), opts...)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	cat := catalog.New(opts...)
	mgr := txn.NewManager(store, cat)
	mgr.SetPersistence(cfg.Storage.Persistence)

	if err := mgr.Recover(ctx); err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	db := &Database{
		DataDir: cfg.Storage.Workdir,
		store:   store,
		catalog: cat,
		txn:     mgr,
		exec:    executor.NewExecutor(cat, mgr),
	}
	slog.Info("engine.open", "dir", db.DataDir, "tables", len(cat.Tables()), "persistence", cfg.Storage.Persistence)
	return db, nil
}

func (db *Database) check() error {
	if db.closed {
		return ErrDatabaseClosed
	}
	return nil
}

// Exec runs one statement. Outside an explicit transaction it takes part in
// auto-commit.
func (db *Database) Exec(stmt ast.Statement) (*executor.Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.check(); err != nil {
		return nil, err
	}
	return db.exec.Exec(stmt)
}

func (db *Database) Begin() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.check(); err != nil {
		return err
	}
	return db.txn.Begin()
}

func (db *Database) Commit() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.check(); err != nil {
		return err
	}
	return db.txn.Commit()
}

func (db *Database) Abort() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.check(); err != nil {
		return err
	}
	return db.txn.Abort()
}

func (db *Database) HasActiveTransaction() bool {
	return db.txn.HasActiveTransaction()
}

// SetPersistence turns durable commits on or off. Turning it off first
// flushes a pending auto-commit batch.
func (db *Database) SetPersistence(enabled bool) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.check(); err != nil {
		return err
	}
	if !enabled {
		if err := db.txn.Flush(); err != nil {
			return err
		}
	}
	db.txn.SetPersistence(enabled)
	return nil
}

func (db *Database) Persistence() bool { return db.txn.Persistence() }

func (db *Database) Catalog() *catalog.Catalog { return db.catalog }

// DeleteAll removes every durable image and empties the catalog.
func (db *Database) DeleteAll() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.check(); err != nil {
		return err
	}
	if err := db.store.RemoveAll(); err != nil {
		return fmt.Errorf("delete all: %w", err)
	}
	db.catalog.Clear()
	db.txn.Forget()
	slog.Info("engine.delete_all", "dir", db.DataDir)
	return nil
}

// Close commits a pending auto-commit batch. An explicit transaction still
// open is left uncommitted.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrDatabaseClosed
	}
	if db.txn.HasActiveTransaction() {
		slog.Warn("engine.close.uncommitted", "tx", db.txn.ID())
	}
	if err := db.txn.Flush(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	db.closed = true
	slog.Info("engine.close", "dir", db.DataDir)
	return nil
}
