package memcache

import (
	"testing"
	"time"
)

func TestLRU_EvictsByEntryCount(t *testing.T) {
	c := New[string, int](2, 0, 0, nil)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected 'a' to be evicted")
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Fatalf("expected 'b' to survive")
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("expected 'c' to survive")
	}
}

func TestLRU_EvictsByByteBudget(t *testing.T) {
	sizeOf := func(v int) int64 { return int64(v) }
	c := New[string, int](0, 10, 0, sizeOf)
	c.Set("a", 6)
	c.Set("b", 6) // total would be 12 > 10, evicts "a"

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected 'a' evicted once byte budget exceeded")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatalf("expected 'b' present")
	}
}

func TestLRU_RecentlyUsedSurvives(t *testing.T) {
	c := New[string, int](2, 0, 0, nil)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // bump a to front
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected 'b' to be evicted as least recently used")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected 'a' to survive after being touched")
	}
}

func TestLRU_ExpiresAfterTTL(t *testing.T) {
	c := New[string, int](0, 0, 10*time.Millisecond, nil)
	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected entry to have expired")
	}
}

func TestLRU_TouchRefreshesTTL(t *testing.T) {
	c := New[string, int](0, 0, 30*time.Millisecond, nil)
	c.Set("a", 1)

	time.Sleep(20 * time.Millisecond)
	c.Touch("a")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected touched entry to still be alive")
	}
}

func TestLRU_Remove(t *testing.T) {
	c := New[string, int](0, 0, 0, nil)
	c.Set("a", 1)
	if !c.Remove("a") {
		t.Fatalf("expected removal to report true")
	}
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected entry gone after Remove")
	}
	if c.Remove("a") {
		t.Fatalf("expected second removal to report false")
	}
}
