// Package partcache implements the Part-Image Loader (C1): a two-tier
// memory+disk cache in front of the part-sprite CDN, grounded on the
// teacher's repository-with-cache layering and on gogpu-gg's internal/image
// decode pipeline for the WebP origin fetch.
package partcache

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/image/webp"

	"github.com/rs/zerolog"

	"github.com/spritestack/avatar-render/internal/core/ports"
	"github.com/spritestack/avatar-render/internal/infrastructure/breaker"
	"github.com/spritestack/avatar-render/internal/infrastructure/memcache"
)

const (
	memMaxEntries = 2000
	memMaxBytes   = 256 << 20 // 256MiB of decoded part rasters

	maxInFlightFetches = 10
)

// Loader implements ports.PartLoader.
type Loader struct {
	log zerolog.Logger

	cdnBase string
	diskDir string

	client *http.Client
	breaker *breaker.Breaker
	sem     chan struct{}

	mem *memcache.LRU[string, *ports.Raster]

	memHits, memMisses     atomic.Int64
	diskHits, diskMisses   atomic.Int64
	originFetches, originErrors atomic.Int64
}

// New creates a Loader. cdnBase is the part-sprite CDN root (spec §4.2,
// "<cdn>/item-sprite/<itemRef>.webp"); diskDir is the local disk tier's
// directory, created if absent.
func New(log zerolog.Logger, cdnBase, diskDir string, br *breaker.Breaker) *Loader {
	rasterSize := func(r *ports.Raster) int64 { return int64(len(r.Pix)) }
	return &Loader{
		log:     log.With().Str("component", "partcache").Logger(),
		cdnBase: strings.TrimRight(cdnBase, "/"),
		diskDir: diskDir,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: br,
		sem:     make(chan struct{}, maxInFlightFetches),
		mem:     memcache.New[string, *ports.Raster](memMaxEntries, memMaxBytes, 0, rasterSize),
	}
}

// LoadPart fetches a single part sprite. It never fails a render: a missing
// reference or a failed fetch both resolve to (nil, false) (spec §4.2).
func (l *Loader) LoadPart(ctx context.Context, itemRef string) (*ports.Raster, bool) {
	if itemRef == "" {
		return nil, false
	}
	key := strings.ToLower(itemRef)

	if r, ok := l.mem.Get(key); ok {
		l.memHits.Add(1)
		return r, true
	}
	l.memMisses.Add(1)

	if r, ok := l.loadDisk(key); ok {
		l.diskHits.Add(1)
		l.mem.Set(key, r)
		return r, true
	}
	l.diskMisses.Add(1)

	r, ok := l.fetchOrigin(ctx, itemRef, key)
	if !ok {
		return nil, false
	}
	return r, true
}

func (l *Loader) Stats() ports.PartLoaderStats {
	return ports.PartLoaderStats{
		MemoryHits:    l.memHits.Load(),
		MemoryMisses:  l.memMisses.Load(),
		DiskHits:      l.diskHits.Load(),
		DiskMisses:    l.diskMisses.Load(),
		OriginFetches: l.originFetches.Load(),
		OriginErrors:  l.originErrors.Load(),
	}
}

// diskPath returns the flat, filename-safe path for a cache key: spec §4.2
// mandates "one file per key named by a 128-bit digest of the key".
func (l *Loader) diskPath(key string) string {
	sum := md5.Sum([]byte(key))
	return filepath.Join(l.diskDir, hex.EncodeToString(sum[:])+".png")
}

func (l *Loader) loadDisk(key string) (*ports.Raster, bool) {
	if l.diskDir == "" {
		return nil, false
	}
	data, err := os.ReadFile(l.diskPath(key))
	if err != nil {
		return nil, false
	}
	img, err := decodePNGRaster(data)
	if err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("partcache: corrupt disk entry")
		return nil, false
	}
	return img, true
}

// fetchOrigin GETs the part sprite from the CDN, gated by the circuit
// breaker and the concurrency limiter (spec §4.2, "≤10 in-flight part
// fetches per process").
func (l *Loader) fetchOrigin(ctx context.Context, itemRef, key string) (*ports.Raster, bool) {
	if l.breaker != nil && !l.breaker.Allow() {
		l.originErrors.Add(1)
		return nil, false
	}

	select {
	case l.sem <- struct{}{}:
		defer func() { <-l.sem }()
	case <-ctx.Done():
		return nil, false
	}

	url := fmt.Sprintf("%s/item-sprite/%s.webp", l.cdnBase, itemRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		l.recordFailure()
		return nil, false
	}

	l.originFetches.Add(1)
	resp, err := l.client.Do(req)
	if err != nil {
		l.log.Warn().Err(err).Str("url", url).Msg("partcache: origin fetch failed")
		l.recordFailure()
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		l.recordSuccess()
		return nil, false
	}
	if resp.StatusCode != http.StatusOK {
		l.log.Warn().Int("status", resp.StatusCode).Str("url", url).Msg("partcache: origin fetch non-200")
		l.recordFailure()
		return nil, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		l.recordFailure()
		return nil, false
	}

	img, err := webp.Decode(bytes.NewReader(body))
	if err != nil {
		l.log.Warn().Err(err).Str("url", url).Msg("partcache: webp decode failed")
		l.recordFailure()
		return nil, false
	}
	l.recordSuccess()

	raster := rasterFromImage(img)

	if l.diskDir != "" {
		go l.writeDiskFireAndForget(key, raster)
	}
	l.mem.Set(key, raster)
	return raster, true
}

func (l *Loader) recordSuccess() {
	if l.breaker != nil {
		l.breaker.Success()
	}
}

func (l *Loader) recordFailure() {
	l.originErrors.Add(1)
	if l.breaker != nil {
		l.breaker.Failure()
	}
}

// writeDiskFireAndForget re-encodes a fetched raster to canonical PNG and
// writes it to the disk tier. Failures are logged, never surfaced: a render
// must never fail because the disk tier couldn't be populated (spec §4.2).
func (l *Loader) writeDiskFireAndForget(key string, r *ports.Raster) {
	data, err := encodePNGRaster(r)
	if err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("partcache: disk re-encode failed")
		return
	}
	if err := os.MkdirAll(l.diskDir, 0o755); err != nil {
		l.log.Warn().Err(err).Msg("partcache: mkdir disk dir failed")
		return
	}
	tmp := l.diskPath(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("partcache: disk write failed")
		return
	}
	if err := os.Rename(tmp, l.diskPath(key)); err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("partcache: disk rename failed")
	}
}

func rasterFromImage(img image.Image) *ports.Raster {
	b := img.Bounds()
	r := &ports.Raster{Width: b.Dx(), Height: b.Dy(), Pix: make([]uint8, b.Dx()*b.Dy()*4)}
	o := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			cr, cg, cb, ca := img.At(x, y).RGBA()
			r.Pix[o] = uint8(cr >> 8)
			r.Pix[o+1] = uint8(cg >> 8)
			r.Pix[o+2] = uint8(cb >> 8)
			r.Pix[o+3] = uint8(ca >> 8)
			o += 4
		}
	}
	return r
}
