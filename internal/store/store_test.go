package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestJSONHelpersRoundTripThroughMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var todos []string
	ok, err := GetJSON(ctx, m, KeyTodos, &todos)
	if err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := SetJSON(ctx, m, KeyTodos, []string{"stake", "claim"}); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}
	ok, err = GetJSON(ctx, m, KeyTodos, &todos)
	if err != nil || !ok || len(todos) != 2 || todos[1] != "claim" {
		t.Fatalf("unexpected todos %v ok=%v err=%v", todos, ok, err)
	}
}

func TestGetJSONRejectsCorruptValue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.Set(ctx, KeyCreatedTokens, []byte("{not json"))
	var out []string
	if _, err := GetJSON(ctx, m, KeyCreatedTokens, &out); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestMemoryTTL(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Now()
	m.now = func() time.Time { return base }
	_ = m.SetTTL(ctx, "k", []byte("v"), time.Second)
	m.now = func() time.Time { return base.Add(2 * time.Second) }
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatal("expected expired entry to miss")
	}
	entry, _ := m.Lookup(ctx, "k", time.Minute)
	if !entry.Hit || !entry.Stale || entry.TooStale {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestOpenDrivers(t *testing.T) {
	tmp := t.TempDir()
	s, err := Open("sqlite", filepath.Join(tmp, "kv.db"), filepath.Join(tmp, "kv.lock"), "")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	_ = s.Close()
	if _, err := Open("memory", "", "", ""); err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if _, err := Open("redis", "", "", "::not a url::"); err == nil {
		t.Fatal("expected redis url parse error")
	}
	if _, err := Open("etcd", "", "", ""); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}
