// Package defaultasset implements the small built-in placeholder the
// Request Handler serves when the render queue is overloaded and the user
// has no previous render to fall back to (spec §4.6 step 5).
package defaultasset

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/chai2010/webp"

	"github.com/spritestack/avatar-render/internal/core/domain"
)

const (
	placeholderSize    = 64
	placeholderQuality = 75
)

// placeholderColor is a flat mid-grey, distinguishable at a glance from any
// real render (which always carries transparent padding at minimum).
var placeholderColor = color.RGBA{R: 0x9a, G: 0x9a, B: 0x9a, A: 0xff}

// Provider lazily encodes one placeholder WebP per view type and caches the
// bytes for the lifetime of the process. Grounded on the teacher's
// once-initialized-singleton idiom (pkg/logger.go's package-level
// sync.Once) generalized here to per-key lazy init instead of a single
// global.
type Provider struct {
	once  [3]sync.Once
	bytes [3][]byte
	ok    [3]bool
}

func New() *Provider {
	return &Provider{}
}

func (p *Provider) DefaultAsset(view domain.ViewType) ([]byte, bool) {
	idx := int(view)
	if idx < 0 || idx >= len(p.once) {
		return nil, false
	}
	p.once[idx].Do(func() {
		data, err := encodePlaceholder()
		if err != nil {
			return
		}
		p.bytes[idx] = data
		p.ok[idx] = true
	})
	return p.bytes[idx], p.ok[idx]
}

func encodePlaceholder() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, placeholderSize, placeholderSize))
	for y := 0; y < placeholderSize; y++ {
		for x := 0; x < placeholderSize; x++ {
			img.Set(x, y, placeholderColor)
		}
	}
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: placeholderQuality}); err != nil {
		return nil, fmt.Errorf("defaultasset: encode: %w", err)
	}
	return buf.Bytes(), nil
}
