package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestHashKey(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
	}{
		{
			name:  "single part",
			parts: []string{"test"},
		},
		{
			name:  "multiple parts",
			parts: []string{"test", "key", "with", "many", "parts"},
		},
		{
			name:  "empty parts",
			parts: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hashed1 := HashKey(tt.parts...)
			hashed2 := HashKey(tt.parts...)

			if hashed1 != hashed2 {
				t.Errorf("HashKey() should be consistent, got %s and %s", hashed1, hashed2)
			}

			// Hash should be 32 characters (MD5 hex)
			if len(hashed1) != 32 {
				t.Errorf("HashKey() should return 32 character hex string, got length %d", len(hashed1))
			}
		})
	}

	if HashKey("ab", "c") == HashKey("a", "bc") {
		t.Error("HashKey() should separate parts")
	}
}

func TestCache_NamespaceKey(t *testing.T) {
	cache := &Cache{}

	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{
			name:     "simple key",
			key:      "test",
			expected: "discussion:test",
		},
		{
			name:     "key with colon",
			key:      "thread:stock:AAPL",
			expected: "discussion:thread:stock:AAPL",
		},
		{
			name:     "empty key",
			key:      "",
			expected: "discussion:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := cache.namespaceKey(tt.key)
			if result != tt.expected {
				t.Errorf("namespaceKey() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestCache_Disabled(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheDisabled) {
		t.Errorf("Get() error = %v, want ErrCacheDisabled", err)
	}
	if err := c.Set(ctx, "k", "v", time.Minute); !errors.Is(err, ErrCacheDisabled) {
		t.Errorf("Set() error = %v, want ErrCacheDisabled", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
	if c.Client() != nil {
		t.Error("Client() should be nil when disabled")
	}
}

func TestCache_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer c.Close()
	ctx := context.Background()

	if _, err := c.Get(ctx, "thread:stock:1"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get() on empty cache error = %v, want ErrCacheMiss", err)
	}

	if err := c.Set(ctx, "thread:stock:1", "[]", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !mr.Exists("discussion:thread:stock:1") {
		t.Error("expected namespaced key in redis")
	}

	val, err := c.Get(ctx, "thread:stock:1")
	if err != nil || val != "[]" {
		t.Errorf("Get() = %q, %v, want \"[]\", nil", val, err)
	}

	mr.FastForward(2 * time.Minute)
	if ok, _ := c.Exists(ctx, "thread:stock:1"); ok {
		t.Error("expected key to expire")
	}

	_ = c.Set(ctx, "a", "1", time.Minute)
	_ = c.Set(ctx, "b", "2", time.Minute)
	if err := c.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if ok, _ := c.Exists(ctx, "a"); ok {
		t.Error("expected key a to be deleted")
	}
	if err := c.Health(ctx); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}

func TestLocalCache(t *testing.T) {
	c := NewLocal(2, time.Minute)
	ctx := context.Background()

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}

	_ = c.Set(ctx, "a", "1", 0)
	_ = c.Set(ctx, "b", "2", 0)
	_ = c.Set(ctx, "c", "3", 0)

	if _, err := c.Get(ctx, "a"); !errors.Is(err, ErrCacheMiss) {
		t.Error("expected least recently used key to be evicted")
	}
	if val, err := c.Get(ctx, "c"); err != nil || val != "3" {
		t.Errorf("Get(c) = %q, %v, want \"3\", nil", val, err)
	}

	_ = c.Delete(ctx, "c")
	if _, err := c.Get(ctx, "c"); !errors.Is(err, ErrCacheMiss) {
		t.Error("expected deleted key to miss")
	}
}

func TestCounters(t *testing.T) {
	mr := miniredis.RunT(t)
	redisCache := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer redisCache.Close()

	stores := map[string]Store{
		"redis": redisCache,
		"local": NewLocal(1, time.Minute),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if n, err := store.Counter(ctx, "gen"); err != nil || n != 0 {
				t.Fatalf("Counter() = %d, %v, want 0, nil", n, err)
			}
			for want := int64(1); want <= 3; want++ {
				if n, err := store.Incr(ctx, "gen"); err != nil || n != want {
					t.Fatalf("Incr() = %d, %v, want %d, nil", n, err, want)
				}
			}
			// plain entries must not evict counters
			_ = store.Set(ctx, "x", "1", time.Minute)
			_ = store.Set(ctx, "y", "2", time.Minute)
			if n, err := store.Counter(ctx, "gen"); err != nil || n != 3 {
				t.Errorf("Counter() = %d, %v, want 3, nil", n, err)
			}
		})
	}

	var disabled *Cache
	if _, err := disabled.Incr(context.Background(), "gen"); !errors.Is(err, ErrCacheDisabled) {
		t.Errorf("Incr() error = %v, want ErrCacheDisabled", err)
	}
}
