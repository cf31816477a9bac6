package partcache

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"

	"github.com/spritestack/avatar-render/internal/core/ports"
)

// decodePNGRaster reads the disk tier's canonical PNG form back into a
// Raster (spec §4.2, "re-encoded to a canonical raster (PNG) for downstream
// use").
func decodePNGRaster(data []byte) (*ports.Raster, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, image.Point{}, draw.Src)
	return &ports.Raster{Width: rgba.Rect.Dx(), Height: rgba.Rect.Dy(), Pix: rgba.Pix}, nil
}

func encodePNGRaster(r *ports.Raster) ([]byte, error) {
	rgba := &image.RGBA{Pix: r.Pix, Stride: r.Width * 4, Rect: image.Rect(0, 0, r.Width, r.Height)}
	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
