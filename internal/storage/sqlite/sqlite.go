// Package sqlite is the embedded relational StorageEngine (C1): a single
// ncruces/go-sqlite3 (pure Go, no cgo, WASM-backed via tetratelabs/wazero)
// connection per process, guarded by a gofrs/flock workspace lock so two
// processes never open the same database file concurrently in write mode.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/tjpilant/idse-spine/internal/debug"
	"github.com/tjpilant/idse-spine/internal/storage"
)

const flockRetryInterval = 50 * time.Millisecond

// Store is the sqlite-backed implementation of storage.Storage.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock

	mu sync.Mutex // serializes concurrent top-level RunInTransaction calls
}

// txCtxKey marks a context as already carrying an in-flight transaction, so
// a nested RunInTransaction call (made with that same ctx, or one derived
// from it) can detect it and reuse it.
type txCtxKey struct{}

var _ storage.Storage = (*Store)(nil)

// Open creates or opens the database at cfg.Path, applies the schema and any
// pending migrations, and returns a ready Store. The workspace lock is held
// for the lifetime of the Store and released on Close.
func Open(ctx context.Context, cfg storage.Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: empty database path", storage.ErrDBNotInitialized)
	}

	lock := flock.New(cfg.Path + ".lock")
	locked, err := lock.TryLockContext(ctx, flockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("workspace is locked by another process: %s", cfg.Path)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate", cfg.Path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1) // a single writer; see storage.Transaction doc

	if err := RunMigrations(db); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	debug.Logf("storage: opened %s", cfg.Path)

	return &Store{db: db, path: cfg.Path, lock: lock}, nil
}

// Close releases the database handle and the workspace lock.
func (s *Store) Close() error {
	err := s.db.Close()
	if lockErr := s.lock.Unlock(); lockErr != nil && err == nil {
		err = lockErr
	}
	return err
}

// Path returns the backing database file path.
func (s *Store) Path() string { return s.path }

// UnderlyingDB returns the underlying *sql.DB connection.
func (s *Store) UnderlyingDB() *sql.DB { return s.db }

// querier is satisfied by both *sql.DB and *sql.Tx, letting every per-entity
// method run identically whether called directly on the Store or via a
// transaction's embedded *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) q() querier { return s.db }

// tx implements storage.Transaction over a single *sql.Tx.
type tx struct {
	t *sql.Tx
}

func (t *tx) q() querier { return t.t }

// RunInTransaction runs fn inside a BEGIN IMMEDIATE transaction. If fn
// invokes RunInTransaction again using the ctx it was handed, the nested
// call reuses the outermost transaction rather than attempting a second
// BEGIN on the same connection, per spec.md §4.1 ("nested calls reuse the
// outermost transaction"). The mutex only serializes unrelated top-level
// calls from separate goroutines racing to open one; nested reuse is
// resolved entirely through ctx, not the mutex.
func (s *Store) RunInTransaction(ctx context.Context, fn func(context.Context, storage.Transaction) error) (err error) {
	if t, ok := ctx.Value(txCtxKey{}).(*tx); ok {
		return fn(ctx, t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	t := &tx{t: sqlTx}
	txCtx := context.WithValue(ctx, txCtxKey{}, t)

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
			return
		}
		err = sqlTx.Commit()
	}()

	err = fn(txCtx, t)
	return err
}
