package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestCache_GetSet(t *testing.T) {
	c := New[string](10, time.Minute, nil)

	c.Set("a", "hello")

	got, ok := c.Get("a")
	if !ok {
		t.Fatal("Get() should find freshly set key")
	}
	if got != "hello" {
		t.Errorf("Get() = %q, want %q", got, "hello")
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("Get() should miss for unknown key")
	}
}

func TestCache_Expiry(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := func() time.Time { return now }

	c := New[int](10, time.Minute, clock)
	c.Set("a", 42)

	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry should be live before TTL")
	}

	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Error("entry should expire after TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed on read, Len() = %d", c.Len())
	}
}

func TestCache_BoundedEviction(t *testing.T) {
	c := New[int](3, time.Minute, nil)

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}

	if c.Len() > 3 {
		t.Errorf("Len() = %d, want <= 3", c.Len())
	}

	// The most recent entry always survives eviction.
	if _, ok := c.Get("k4"); !ok {
		t.Error("most recently set key should survive")
	}
}

func TestCache_OverwriteDoesNotEvict(t *testing.T) {
	c := New[int](2, time.Minute, nil)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3)

	if got, _ := c.Get("a"); got != 3 {
		t.Errorf("Get(a) = %d, want 3", got)
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("overwriting an existing key should not evict others")
	}
}
