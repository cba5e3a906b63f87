package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	tmp := t.TempDir()
	s, err := OpenSQLite(filepath.Join(tmp, "store.db"), filepath.Join(tmp, "store.lock"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteSetGetPersistent(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, KeyTodos, []byte(`["a"]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	s.now = func() time.Time { return time.Now().Add(365 * 24 * time.Hour) }
	got, ok, err := s.Get(ctx, KeyTodos)
	if err != nil || !ok || string(got) != `["a"]` {
		t.Fatalf("expected persistent hit, got %q ok=%v err=%v", got, ok, err)
	}
}

func TestSQLiteTTLStaleness(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)
	base := time.Now()
	s.now = func() time.Time { return base }

	if err := s.SetTTL(ctx, "price:SEI", []byte(`{"p":1}`), time.Minute); err != nil {
		t.Fatalf("SetTTL failed: %v", err)
	}
	entry, err := s.Lookup(ctx, "price:SEI", time.Minute)
	if err != nil || !entry.Hit || entry.Stale {
		t.Fatalf("expected fresh hit, got %+v err=%v", entry, err)
	}

	s.now = func() time.Time { return base.Add(90 * time.Second) }
	entry, err = s.Lookup(ctx, "price:SEI", time.Minute)
	if err != nil || !entry.Stale || entry.TooStale {
		t.Fatalf("expected stale within budget, got %+v err=%v", entry, err)
	}
	if _, ok, _ := s.Get(ctx, "price:SEI"); ok {
		t.Fatal("Get should not return stale entries")
	}

	s.now = func() time.Time { return base.Add(5 * time.Minute) }
	entry, err = s.Lookup(ctx, "price:SEI", time.Minute)
	if err != nil || !entry.TooStale {
		t.Fatalf("expected too stale, got %+v err=%v", entry, err)
	}
}

func TestSQLiteConcurrentOpenAndSet(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "store.db")
	lockPath := filepath.Join(tmp, "store.lock")

	const workers = 8
	const iterations = 20

	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for worker := 0; worker < workers; worker++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			ctx := context.Background()

			s, err := OpenSQLite(dbPath, lockPath)
			if err != nil {
				errCh <- fmt.Errorf("worker %d open: %w", workerID, err)
				return
			}
			defer s.Close()

			for i := 0; i < iterations; i++ {
				key := fmt.Sprintf("worker-%d-key-%d", workerID, i)
				if err := s.Set(ctx, key, []byte(`{"ok":true}`)); err != nil {
					errCh <- fmt.Errorf("worker %d set iter %d: %w", workerID, i, err)
					return
				}
				if _, ok, err := s.Get(ctx, key); err != nil || !ok {
					errCh <- fmt.Errorf("worker %d get iter %d: ok=%v err=%v", workerID, i, ok, err)
					return
				}
			}
		}(worker)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatal(err)
	}
}
