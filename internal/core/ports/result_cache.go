package ports

import (
	"context"
	"time"
)

// CachedResult is a result-cache hit: the bytes plus the fingerprint they
// were rendered from, so callers can apply the validity rule of spec §4.4.
type CachedResult struct {
	Bytes             []byte
	CustomizationHash uint32
	StoredAt          time.Time
}

// ResultCacheStats backs the cache section of GET /health.
type ResultCacheStats struct {
	MemoryEntries int
	MemoryBytes   int64
	DiskEntries   int64
}

// ResultCache covers the two node-local tiers of C4: process memory and
// local disk. The third, remote tier is the ObjectStore, which the render
// pipeline writes after these two (the write policy in spec §4.4).
type ResultCache interface {
	// GetMemory and GetDisk look up a single node-local tier by fingerprint.
	GetMemory(fingerprint uint32) (*CachedResult, bool)
	GetDisk(ctx context.Context, fingerprint uint32) (*CachedResult, bool)

	// PutMemory and PutDisk populate a single tier after a render.
	PutMemory(fingerprint uint32, result CachedResult)
	PutDisk(ctx context.Context, fingerprint uint32, result CachedResult) error

	// Purge empties memory and disk tiers (GET /clear-cache). It does not
	// touch the remote store, which is the system of record.
	Purge(ctx context.Context) error

	Stats() ResultCacheStats
}
