// Package sqlitestore backs kv.Store with a local sqlite file for
// single-box deployments that don't run Redis.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/meetsentinel/meetsentinel/kv"
)

var _ kv.Store = (*store)(nil)

type store struct {
	db *sql.DB
}

func New(path string) (kv.Store, error) {
	db, err := initDatabase(path)
	if err != nil {
		return nil, err
	}

	return &store{db: db}, nil
}

func initDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	const q = `CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`

	if _, err := db.Exec(q); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	return db, nil
}

func (s *store) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT value FROM kv WHERE key = ?`

	var val []byte

	err := s.db.QueryRowContext(ctx, q, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kv.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("sqlite get %s: %w", key, err)
	}

	return val, nil
}

func (s *store) Set(ctx context.Context, key string, value []byte) error {
	const q = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, q, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}

	return nil
}

func (s *store) Remove(ctx context.Context, key string) error {
	const q = `DELETE FROM kv WHERE key = ?`

	if _, err := s.db.ExecContext(ctx, q, key); err != nil {
		return fmt.Errorf("sqlite del %s: %w", key, err)
	}

	return nil
}

func (s *store) Close() error {
	return s.db.Close()
}
