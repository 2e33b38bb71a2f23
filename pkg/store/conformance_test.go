package store

import (
	"context"
	"testing"
	"time"
)

// runStoreConformance checks the behavior every Store must share.
func runStoreConformance(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		_, ok, err := s.Get(ctx, "missing")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if ok {
			t.Error("Get on missing key should miss")
		}
	})

	t.Run("set and get", func(t *testing.T) {
		if err := s.Set(ctx, "key-1", []byte(`{"a":1}`), time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, ok, err := s.Get(ctx, "key-1")
		if err != nil || !ok {
			t.Fatalf("Get = %v, %v; want hit", ok, err)
		}
		if string(got) != `{"a":1}` {
			t.Errorf("Get = %s, want {\"a\":1}", got)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		if err := s.Set(ctx, "key-2", []byte("one"), time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := s.Set(ctx, "key-2", []byte("two"), time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, _, _ := s.Get(ctx, "key-2")
		if string(got) != "two" {
			t.Errorf("Get = %s, want two", got)
		}
	})

	t.Run("no ttl", func(t *testing.T) {
		if err := s.Set(ctx, "key-3", []byte("forever"), 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if _, ok, _ := s.Get(ctx, "key-3"); !ok {
			t.Error("entry without ttl should be retrievable")
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := s.Set(ctx, "key-4", []byte("x"), time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := s.Delete(ctx, "key-4"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, ok, _ := s.Get(ctx, "key-4"); ok {
			t.Error("Get after Delete should miss")
		}
		if err := s.Delete(ctx, "key-4"); err != nil {
			t.Errorf("Delete of missing key failed: %v", err)
		}
	})

	t.Run("expiry", func(t *testing.T) {
		if err := s.Set(ctx, "key-5", []byte("short"), time.Second); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		time.Sleep(1100 * time.Millisecond)
		if _, ok, _ := s.Get(ctx, "key-5"); ok {
			t.Error("expired entry should miss")
		}
	})
}
