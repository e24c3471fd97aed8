// Package kvstore implements a durable, single-writer key-value map backed
// by SQLite. It underlies both the Tap Registry and the Package Registry:
// each gets its own database file and table, sharing this thin wrapper.
package kvstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// Store is a durable name -> blob map. All writes are serialized through
// a single mutex; reads see the last committed write (point-in-time,
// since SQLite's default journal mode already isolates readers from an
// in-flight writer).
type Store struct {
	db    *sql.DB
	mu    sync.Mutex
	table string
}

// Open opens (creating if absent) a SQLite-backed store at path, with
// records held in the named table.
func Open(path, table string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (key TEXT PRIMARY KEY, value BLOB NOT NULL)`, table)
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}
	return &Store{db: db, table: table}, nil
}

// Close flushes and releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value []byte
	q := fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, s.table)
	err := s.db.QueryRowContext(ctx, q, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Put inserts or overwrites the value for key.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := fmt.Sprintf(`INSERT INTO %s (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, s.table)
	if _, err := s.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Delete removes key if present; deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, s.table)
	if _, err := s.db.ExecContext(ctx, q, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Has reports whether key is present.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

// Iterate calls fn for every (key, value) pair in ascending key order,
// giving readers a point-in-time snapshot. Iteration stops at the first
// error returned by fn.
func (s *Store) Iterate(ctx context.Context, fn func(key string, value []byte) error) error {
	s.mu.Lock()
	q := fmt.Sprintf(`SELECT key, value FROM %s ORDER BY key ASC`, s.table)
	rows, err := s.db.QueryContext(ctx, q)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("iterate: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("iterate scan: %w", err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return rows.Err()
}
