package store

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value   []byte
	created time.Time
	ttl     time.Duration
}

// Memory is a process-local store used by tests and the --store memory mode.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

// WithClock replaces the time source used to age entries.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := m.Lookup(ctx, key, 0)
	if err != nil || !entry.Hit || entry.Stale {
		return nil, false, err
	}
	return entry.Value, true, nil
}

func (m *Memory) Lookup(_ context.Context, key string, maxStale time.Duration) (Entry, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return Entry{}, nil
	}
	value := append([]byte(nil), e.value...)
	return entryFor(value, e.created, e.ttl, maxStale, m.now()), nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	return m.SetTTL(ctx, key, value, 0)
}

func (m *Memory) SetTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: append([]byte(nil), value...), created: m.now(), ttl: ttl}
	return nil
}

func (m *Memory) Close() error { return nil }
