package utils

import (
	"testing"
	"time"
)

func TestTagCacheSetGet(t *testing.T) {
	cache := NewTagCache(time.Minute)

	if _, ok := cache.Get("missing"); ok {
		t.Fatal("empty cache should miss")
	}

	cache.Set("gifts:casamento", []string{"a", "b"}, "gifts-casamento")
	value, ok := cache.Get("gifts:casamento")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if items := value.([]string); len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
}

func TestTagCacheInvalidate(t *testing.T) {
	cache := NewTagCache(time.Minute)
	cache.Set("gifts:casamento", 1, "gifts-casamento")
	cache.Set("gifts:cha-panela", 2, "gifts-cha-panela")
	cache.Set("honeymoon:status", 3, "honeymoon")

	if removed := cache.Invalidate("gifts-casamento"); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := cache.Get("gifts:casamento"); ok {
		t.Fatal("invalidated entry should miss")
	}
	if _, ok := cache.Get("gifts:cha-panela"); !ok {
		t.Fatal("other tags must survive")
	}
	if removed := cache.Invalidate("no-such-tag"); removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
}

func TestTagCacheTTL(t *testing.T) {
	cache := NewTagCache(10 * time.Millisecond)
	cache.Set("key", "value", "tag")

	if _, ok := cache.Get("key"); !ok {
		t.Fatal("fresh entry should hit")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := cache.Get("key"); ok {
		t.Fatal("expired entry should miss")
	}
}
