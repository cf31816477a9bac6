package ports

import "context"

// Raster is the minimal in-memory image representation passed between the
// Part-Image Loader and the Layer Compositor: tightly packed RGBA pixels at
// a known width/height. Either a single 425x850 frame or a full 2550x850
// sheet (spec §4.3 "Direction extraction").
type Raster struct {
	Width, Height int
	Pix           []uint8 // 4 bytes per pixel, row-major, straight alpha
}

// PartLoaderStats exposes cache-tier hit/miss counters (SPEC_FULL §4,
// supplemental Stats() accessor).
type PartLoaderStats struct {
	MemoryHits   int64
	MemoryMisses int64
	DiskHits     int64
	DiskMisses   int64
	OriginFetches int64
	OriginErrors  int64
}

// PartLoader fetches a single part sprite by item reference (spec §4.2).
// LoadPart never fails a render: a missing reference or a failed fetch both
// resolve to (nil, false).
type PartLoader interface {
	LoadPart(ctx context.Context, itemRef string) (*Raster, bool)
	Stats() PartLoaderStats
}
