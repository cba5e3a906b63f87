// Package store is the durable key/value surface used for todos, the
// created-token registry and cached market data.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Store is an opaque get/set surface. A missing key is reported with ok=false
// and no error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// TTLStore is implemented by backends that can expire entries.
type TTLStore interface {
	Store
	SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Lookup(ctx context.Context, key string, maxStale time.Duration) (Entry, error)
}

// Entry describes a cached value and how far past its TTL it is.
type Entry struct {
	Hit      bool
	Value    []byte
	Age      time.Duration
	Stale    bool
	TooStale bool
}

// Keys shared by the chat pipeline.
const (
	KeyTodos         = "todos"
	KeyCreatedTokens = "tokens:created"
)

// GetJSON decodes the value at key into out. It reports ok=false on a miss.
func GetJSON(ctx context.Context, s Store, key string, out any) (bool, error) {
	buf, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, buf)
}

// Open builds the backend named by driver.
func Open(driver, path, lockPath, redisURL string) (TTLStore, error) {
	switch driver {
	case "", "sqlite":
		return OpenSQLite(path, lockPath)
	case "redis":
		return OpenRedis(redisURL)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q (expected sqlite|redis|memory)", driver)
	}
}

func entryFor(value []byte, created time.Time, ttl, maxStale time.Duration, now time.Time) Entry {
	age := now.Sub(created)
	if age < 0 {
		age = 0
	}
	stale := ttl > 0 && age > ttl
	tooStale := stale && maxStale >= 0 && age > ttl+maxStale
	return Entry{Hit: true, Value: value, Age: age, Stale: stale, TooStale: tooStale}
}
