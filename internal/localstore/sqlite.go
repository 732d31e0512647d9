// Package localstore implements the four storage.* backend contracts
// against a local file: SQLite via modernc.org/sqlite, assets via a
// go-billy filesystem, and go-billy directory trees (one file per key) as
// stand-ins for Kv/ObjectStore for local runs and the `dump` subcommand.
package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"

	_ "modernc.org/sqlite" // database/sql driver registration

	"golang.org/x/sys/unix"

	"github.com/agentic-research/mache/internal/storage"
)

// Sqlite opens a local SQLite file pinned to a single connection, since
// a file-backed SQLite database only tolerates one writer at a time.
type Sqlite struct {
	db   *sql.DB
	lock *flock
}

// OpenSqlite opens (creating if absent) the database at path and applies
// the pragmas a single-writer batch run needs.
func OpenSqlite(path string) (*Sqlite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("localstore: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA synchronous=NORMAL;",
	} {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("localstore: apply pragma %q: %w", pragma, err)
		}
	}

	lock, err := acquireFlock(path)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("localstore: lock %s: %w", path, err)
	}

	return &Sqlite{db: db, lock: lock}, nil
}

func (s *Sqlite) Close() error {
	closeErr := s.db.Close()
	if s.lock != nil {
		_ = s.lock.release()
	}
	return closeErr
}

func (s *Sqlite) Exec(ctx context.Context, statement string, params ...any) error {
	_, err := s.db.ExecContext(ctx, statement, params...)
	return err
}

func (s *Sqlite) Query(ctx context.Context, statement string, scan func(row storage.Row) error, params ...any) error {
	rows, err := s.db.QueryContext(ctx, statement, params...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

var _ storage.Sqlite = (*Sqlite)(nil)

// flock is an advisory lock on the database file, best-effort and
// unix-only.
type flock struct {
	fd int
}

func (l *flock) release() error {
	if l == nil {
		return nil
	}
	return unix.Close(l.fd)
}

func acquireFlock(path string) (*flock, error) {
	if runtime.GOOS == "windows" {
		return nil, nil
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("database is locked by another writer: %w", err)
	}
	return &flock{fd: fd}, nil
}
