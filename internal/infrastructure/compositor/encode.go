package compositor

import (
	"bytes"
	"image"
	"image/png"

	"github.com/chai2010/webp"

	"github.com/spritestack/avatar-render/internal/core/ports"
)

// toRGBA converts a Raster into a stdlib image.RGBA without copying pixels.
func toRGBA(r *ports.Raster) *image.RGBA {
	return &image.RGBA{
		Pix:    r.Pix,
		Stride: r.Width * 4,
		Rect:   image.Rect(0, 0, r.Width, r.Height),
	}
}

// encodePNG produces the canonical raster form used for debugging/
// re-derivation (spec §4.2 "re-encoded to a canonical raster (PNG)").
func encodePNG(r *ports.Raster) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, toRGBA(r)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeWebP encodes a raster at the given quality (0-100), matching
// spec §3: avatar at q95, thumbnail at q75-100.
func encodeWebP(r *ports.Raster, quality float32) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, toRGBA(r), &webp.Options{Lossless: false, Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
