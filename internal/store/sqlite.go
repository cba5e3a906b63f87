package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

type SQLite struct {
	db   *sql.DB
	lock *flock.Flock
	now  func() time.Time
}

func OpenSQLite(path, lockPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"CREATE TABLE IF NOT EXISTS kv_entries (key TEXT PRIMARY KEY, value BLOB NOT NULL, created_at INTEGER NOT NULL, ttl_seconds INTEGER NOT NULL);",
	}
	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init store schema: %w", err)
		}
	}

	s := &SQLite{db: db, lock: flock.New(lockPath), now: time.Now}
	_ = s.Prune(context.Background())
	return s, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Prune deletes expiring entries whose TTL has fully elapsed. Entries
// written without a TTL are kept forever.
func (s *SQLite) Prune(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	nowUnix := s.now().UTC().Unix()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE ttl_seconds > 0 AND created_at + ttl_seconds < ?", nowUnix); err != nil {
		return fmt.Errorf("prune store: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := s.Lookup(ctx, key, 0)
	if err != nil || !entry.Hit || entry.Stale {
		return nil, false, err
	}
	return entry.Value, true, nil
}

func (s *SQLite) Lookup(ctx context.Context, key string, maxStale time.Duration) (Entry, error) {
	var value []byte
	var createdUnix int64
	var ttlSeconds int64
	err := s.db.QueryRowContext(ctx, "SELECT value, created_at, ttl_seconds FROM kv_entries WHERE key = ?", key).Scan(&value, &createdUnix, &ttlSeconds)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, nil
		}
		return Entry{}, fmt.Errorf("store read: %w", err)
	}
	created := time.Unix(createdUnix, 0).UTC()
	return entryFor(value, created, time.Duration(ttlSeconds)*time.Second, maxStale, s.now()), nil
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	return s.write(ctx, key, value, 0)
}

func (s *SQLite) SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ttlSeconds := int64(ttl.Seconds())
	if ttlSeconds <= 0 {
		ttlSeconds = 1
	}
	return s.write(ctx, key, value, ttlSeconds)
}

func (s *SQLite) write(ctx context.Context, key string, value []byte, ttlSeconds int64) error {
	locked, err := s.lock.TryLockContext(ctx, 5*time.Second)
	if err != nil {
		return fmt.Errorf("lock store: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock store: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, created_at, ttl_seconds)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value=excluded.value,
			created_at=excluded.created_at,
			ttl_seconds=excluded.ttl_seconds
	`, key, value, s.now().UTC().Unix(), ttlSeconds)
	if err != nil {
		return fmt.Errorf("store write: %w", err)
	}
	return nil
}
