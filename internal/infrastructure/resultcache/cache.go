// Package resultcache implements the Result Cache (C4) memory and disk
// tiers. The remote tier is the object store itself (internal/infrastructure/
// objectstore) written to directly by the render pipeline, matching
// ports.ResultCache's contract: this package owns only the two node-local
// tiers consulted before a render is ever attempted.
package resultcache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/spritestack/avatar-render/internal/core/ports"
	"github.com/spritestack/avatar-render/internal/infrastructure/memcache"
)

const (
	memMaxEntries = 50
	memMaxBytes   = 50 << 20 // spec §4.4: "≤50 MiB"
	memTTL        = time.Hour

	sweepInterval = 24 * time.Hour
	diskMaxAge    = 7 * 24 * time.Hour
)

// Cache implements ports.ResultCache.
type Cache struct {
	log zerolog.Logger

	root string // "<root>/avatars/<fingerprint>.webp"
	mem  *memcache.LRU[uint32, ports.CachedResult]

	stopSweep chan struct{}
}

// New creates a Cache rooted at diskRoot ("<root>" in spec §4.4) and starts
// its daily disk sweeper. Call Close to stop the sweeper.
func New(log zerolog.Logger, diskRoot string) *Cache {
	sizeOf := func(r ports.CachedResult) int64 { return int64(len(r.Bytes)) }
	c := &Cache{
		log:       log.With().Str("component", "resultcache").Logger(),
		root:      diskRoot,
		mem:       memcache.New[uint32, ports.CachedResult](memMaxEntries, memMaxBytes, memTTL, sizeOf),
		stopSweep: make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

func (c *Cache) Close() {
	close(c.stopSweep)
}

func (c *Cache) GetMemory(fingerprint uint32) (*ports.CachedResult, bool) {
	r, ok := c.mem.Get(fingerprint)
	if !ok {
		return nil, false
	}
	c.mem.Touch(fingerprint) // spec §4.4: "TTL 1h with access-refresh"
	return &r, true
}

func (c *Cache) PutMemory(fingerprint uint32, result ports.CachedResult) {
	c.mem.Set(fingerprint, result)
}

func (c *Cache) diskPath(fingerprint uint32) string {
	return filepath.Join(c.root, "avatars", fmt.Sprintf("%d.webp", fingerprint))
}

func (c *Cache) GetDisk(ctx context.Context, fingerprint uint32) (*ports.CachedResult, bool) {
	if c.root == "" {
		return nil, false
	}
	path := c.diskPath(fingerprint)
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	result := ports.CachedResult{
		Bytes:             data,
		CustomizationHash: fingerprint,
		StoredAt:          info.ModTime(),
	}
	c.PutMemory(fingerprint, result)
	return &result, true
}

// PutDisk writes the avatar atomically via write-temp-then-rename (spec
// §4.4's explicit requirement).
func (c *Cache) PutDisk(ctx context.Context, fingerprint uint32, result ports.CachedResult) error {
	if c.root == "" {
		return nil
	}
	dir := filepath.Join(c.root, "avatars")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("resultcache: mkdir: %w", err)
	}
	path := c.diskPath(fingerprint)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, result.Bytes, 0o644); err != nil {
		return fmt.Errorf("resultcache: write temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("resultcache: rename: %w", err)
	}
	return nil
}

// Purge empties memory and disk tiers (GET /clear-cache). The remote store
// is the system of record and is left untouched.
func (c *Cache) Purge(ctx context.Context) error {
	c.mem.Purge()
	if c.root == "" {
		return nil
	}
	dir := filepath.Join(c.root, "avatars")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("resultcache: read disk dir: %w", err)
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			c.log.Warn().Err(err).Str("file", e.Name()).Msg("resultcache: purge: failed to remove disk entry")
		}
	}
	return nil
}

func (c *Cache) Stats() ports.ResultCacheStats {
	stats := ports.ResultCacheStats{
		MemoryEntries: c.mem.Len(),
		MemoryBytes:   c.mem.Bytes(),
	}
	if c.root != "" {
		if entries, err := os.ReadDir(filepath.Join(c.root, "avatars")); err == nil {
			stats.DiskEntries = int64(len(entries))
		}
	}
	return stats
}

// sweepLoop removes disk entries older than diskMaxAge once per day (spec
// §4.4: "A 7-day time-based sweeper runs once per day").
func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopSweep:
			return
		case <-ticker.C:
			c.sweepOnce()
		}
	}
}

func (c *Cache) sweepOnce() {
	if c.root == "" {
		return
	}
	dir := filepath.Join(c.root, "avatars")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-diskMaxAge)
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(dir, e.Name())
			if err := os.Remove(path); err != nil {
				c.log.Warn().Err(err).Str("file", e.Name()).Msg("resultcache: sweep: failed to remove stale disk entry")
			}
		}
	}
}
