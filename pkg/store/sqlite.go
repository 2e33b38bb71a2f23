package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

const layerSQLite = "sqlite"

// SQLite stores entries in a single table with an expires column holding
// unix milliseconds (0 means no expiry). Expired rows are purged on read.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path. Use ":memory:" for a
// throwaway database.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// A :memory: database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS cache (key TEXT PRIMARY KEY, expires INTEGER, bytes BLOB)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS expires_idx ON cache (expires)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("create expires index: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Get retrieves the value stored under key.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var expires int64
	var bytes []byte
	err := s.db.QueryRowContext(ctx, "SELECT expires, bytes FROM cache WHERE key = ?", key).Scan(&expires, &bytes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			StoreMisses.WithLabelValues(layerSQLite).Inc()
			return nil, false, nil
		}
		StoreErrors.WithLabelValues(layerSQLite, "get").Inc()
		return nil, false, fmt.Errorf("sqlite get: %w", err)
	}

	if expires > 0 && time.Now().After(time.UnixMilli(expires)) {
		StoreMisses.WithLabelValues(layerSQLite).Inc()
		if err := s.Delete(ctx, key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	StoreHits.WithLabelValues(layerSQLite).Inc()
	return bytes, true, nil
}

// Set stores value under key, replacing any previous row.
func (s *SQLite) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expires int64
	if ttl > 0 {
		expires = time.Now().Add(ttl).UnixMilli()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO cache (key, expires, bytes) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET expires = excluded.expires, bytes = excluded.bytes",
		key, expires, value)
	if err != nil {
		StoreErrors.WithLabelValues(layerSQLite, "set").Inc()
		return fmt.Errorf("sqlite set: %w", err)
	}
	return nil
}

// Delete removes a cache entry.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache WHERE key = ?", key); err != nil {
		StoreErrors.WithLabelValues(layerSQLite, "delete").Inc()
		return fmt.Errorf("sqlite delete: %w", err)
	}
	return nil
}

// Purge removes every expired row and returns how many were removed.
func (s *SQLite) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cache WHERE expires > 0 AND expires < ?", time.Now().UnixMilli())
	if err != nil {
		StoreErrors.WithLabelValues(layerSQLite, "delete").Inc()
		return 0, fmt.Errorf("sqlite purge: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
