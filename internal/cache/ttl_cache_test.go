package cache

import (
	"testing"
	"time"
)

func TestTTLCacheSetGet(t *testing.T) {
	c := NewTTLCache[string, string]()
	c.Set("pm", "pm_123", time.Minute)

	got, ok := c.Get("pm")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if got != "pm_123" {
		t.Fatalf("expected pm_123, got %q", got)
	}
}

func TestTTLCacheExpires(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("key", 7, time.Nanosecond)
	time.Sleep(2 * time.Millisecond)

	if _, ok := c.Get("key"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("key", 7, 0)

	if _, ok := c.Get("key"); !ok {
		t.Fatalf("expected entry without TTL to remain")
	}
}

func TestTTLCacheDelete(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("key", 1, time.Minute)
	c.Delete("key")

	if _, ok := c.Get("key"); ok {
		t.Fatalf("expected deleted entry to miss")
	}
}
