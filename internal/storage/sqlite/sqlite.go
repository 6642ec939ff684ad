// Package sqlite implements storage.Store on an embedded SQLite file.
//
// WHY SQLITE FOR A KEY/VALUE STORE?
// The session snapshot must survive restarts and be written atomically.
// A single-file SQLite database gives both without a server process, and
// modernc.org/sqlite is pure Go, so the binary cross-compiles without cgo.
//
// LAYOUT:
// One table, kv(key, value, updated_at). The session manager only ever
// touches the "user" row.
//
//	store, err := sqlite.New("data/session.db")
//	if err != nil { ... }
//	defer store.Close()
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/apperror"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/storage"

	// registers the "sqlite" driver with database/sql
	_ "modernc.org/sqlite"
)

var _ storage.Store = (*Store)(nil)

// Store wraps a sql.DB connection pool.
type Store struct {
	conn *sql.DB
}

// New opens (or creates) the database at path and runs migrations.
//
// path examples:
//   - "data/session.db" → file-based, survives restarts
//   - ":memory:"        → in-memory, gone on Close (tests)
func New(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database exists per connection. Pinning the pool to one
	// connection keeps every query on the same database.
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while the single writer commits.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return s, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS makes it safe to
// run on every start.
func (s *Store) migrate() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating kv table: %w", err)
	}
	return nil
}

// Get returns the value stored under key.
// Returns apperror.ErrNotFound if the key is absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.conn.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ?`, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("storage key", key)
		}
		return nil, fmt.Errorf("sqlite: reading key %q: %w", key, err)
	}
	return value, nil
}

// Set inserts or replaces the value under key.
//
// ON CONFLICT ... DO UPDATE keeps the row in place (same rowid) instead of
// deleting and re-inserting it the way INSERT OR REPLACE does.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: writing key %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key succeeds.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite: deleting key %q: %w", key, err)
	}
	return nil
}
