package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client for testing.
// Skips when no Redis is listening on localhost; the integration build tag
// runs the same checks against a container.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	// Flush test DB before each test
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	s := NewRedis(client)
	if s == nil {
		t.Fatal("NewRedis returned nil")
	}
	if s.redis != client {
		t.Error("Store redis client not set correctly")
	}
}

func TestNewRedis_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedis should panic with nil redis client")
		}
	}()
	NewRedis(nil)
}

func TestRedis_Conformance(t *testing.T) {
	client := setupTestRedis(t)
	runStoreConformance(t, NewRedis(client))
}

func TestRedis_TTL(t *testing.T) {
	client := setupTestRedis(t)
	s := NewRedis(client)
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v"), 5*time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	ttl, err := client.TTL(ctx, "httpclient:k").Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > 5*time.Minute {
		t.Errorf("redis TTL = %v, want (0, 5m]", ttl)
	}
}
