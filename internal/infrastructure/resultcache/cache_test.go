package resultcache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/spritestack/avatar-render/internal/core/ports"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c := New(zerolog.Nop(), t.TempDir())
	t.Cleanup(c.Close)
	return c
}

func TestCache_MemoryRoundTrip(t *testing.T) {
	c := newTestCache(t)
	c.PutMemory(42, ports.CachedResult{Bytes: []byte("hi"), CustomizationHash: 42})

	got, ok := c.GetMemory(42)
	if !ok {
		t.Fatalf("expected memory hit")
	}
	if string(got.Bytes) != "hi" {
		t.Fatalf("unexpected bytes: %q", got.Bytes)
	}
	if _, ok := c.GetMemory(99); ok {
		t.Fatalf("expected memory miss for unknown fingerprint")
	}
}

func TestCache_DiskRoundTripPopulatesMemory(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.PutDisk(ctx, 7, ports.CachedResult{Bytes: []byte("avatar-bytes"), CustomizationHash: 7}); err != nil {
		t.Fatalf("put disk: %v", err)
	}

	// Fresh process view: memory tier must not already have it.
	c2 := New(zerolog.Nop(), c.root)
	defer c2.Close()

	got, ok := c2.GetDisk(ctx, 7)
	if !ok {
		t.Fatalf("expected disk hit")
	}
	if string(got.Bytes) != "avatar-bytes" {
		t.Fatalf("unexpected bytes: %q", got.Bytes)
	}
	if _, ok := c2.GetMemory(7); !ok {
		t.Fatalf("expected disk hit to populate memory tier")
	}
}

func TestCache_DiskWriteIsAtomic(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	if err := c.PutDisk(ctx, 1, ports.CachedResult{Bytes: []byte("x")}); err != nil {
		t.Fatalf("put disk: %v", err)
	}
	if _, err := os.Stat(c.diskPath(1) + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be renamed away")
	}
	if _, err := os.Stat(c.diskPath(1)); err != nil {
		t.Fatalf("expected final file to exist: %v", err)
	}
}

func TestCache_PurgeClearsMemoryAndDisk(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	c.PutMemory(1, ports.CachedResult{Bytes: []byte("a")})
	if err := c.PutDisk(ctx, 1, ports.CachedResult{Bytes: []byte("a")}); err != nil {
		t.Fatalf("put disk: %v", err)
	}

	if err := c.Purge(ctx); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if _, ok := c.GetMemory(1); ok {
		t.Fatalf("expected memory purged")
	}
	if _, ok := c.GetDisk(ctx, 1); ok {
		t.Fatalf("expected disk purged")
	}
}

func TestCache_SweepRemovesStaleEntries(t *testing.T) {
	c := newTestCache(t)
	dir := filepath.Join(c.root, "avatars")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	stale := filepath.Join(dir, "999.webp")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatalf("write stale: %v", err)
	}
	old := time.Now().Add(-8 * 24 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	fresh := filepath.Join(dir, "1.webp")
	if err := os.WriteFile(fresh, []byte("new"), 0o644); err != nil {
		t.Fatalf("write fresh: %v", err)
	}

	c.sweepOnce()

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale entry to be swept")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("expected fresh entry to survive: %v", err)
	}
}
