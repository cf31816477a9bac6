package compositor

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"
	"testing"

	"github.com/spritestack/avatar-render/internal/core/domain"
	"github.com/spritestack/avatar-render/internal/core/ports"
)

func solidFrame(w, h int, r, g, b, a uint8) *ports.Raster {
	rast := newRaster(w, h)
	for i := 0; i < w*h; i++ {
		o := i * 4
		rast.Pix[o] = r
		rast.Pix[o+1] = g
		rast.Pix[o+2] = b
		rast.Pix[o+3] = a
	}
	return rast
}

func baseLayers() ports.LayerSet {
	return ports.LayerSet{
		"base": solidFrame(domain.FrameWidth, domain.FrameHeight, 200, 180, 160, 255),
	}
}

func TestComposite_Deterministic(t *testing.T) {
	c := New()
	layers := baseLayers()
	layers["shoes"] = solidFrame(domain.FrameWidth, domain.FrameHeight, 10, 10, 10, 255)
	layers["bottom"] = solidFrame(domain.FrameWidth, domain.FrameHeight, 20, 20, 200, 128)

	out1, err := c.Composite(layers, ports.CompositeFlags{})
	if err != nil {
		t.Fatalf("composite 1: %v", err)
	}
	out2, err := c.Composite(layers, ports.CompositeFlags{})
	if err != nil {
		t.Fatalf("composite 2: %v", err)
	}

	if !bytes.Equal(out1.SpriteSheetPNG, out2.SpriteSheetPNG) {
		t.Fatalf("expected byte-identical sprite sheets across independent renders")
	}
	if !bytes.Equal(out1.AvatarWebP, out2.AvatarWebP) {
		t.Fatalf("expected byte-identical avatar bytes across independent renders")
	}
}

func TestComposite_ShoesBehindPantsFlag(t *testing.T) {
	c := New()

	layers := baseLayers()
	layers["shoes"] = solidFrame(domain.FrameWidth, domain.FrameHeight, 255, 0, 0, 255)   // opaque red
	layers["bottom"] = solidFrame(domain.FrameWidth, domain.FrameHeight, 0, 255, 0, 255) // opaque green

	behind, err := c.Composite(layers, ports.CompositeFlags{ShoesBehindPants: true})
	if err != nil {
		t.Fatalf("composite behind: %v", err)
	}
	front, err := c.Composite(layers, ports.CompositeFlags{ShoesBehindPants: false})
	if err != nil {
		t.Fatalf("composite front: %v", err)
	}

	// Both are opaque full-frame layers, so whichever paints last wins the
	// front-frame pixel entirely.
	behindSheet := decodeSheet(t, behind.SpriteSheetPNG)
	frontSheet := decodeSheet(t, front.SpriteSheetPNG)

	px := behindSheet.Pix[0:4] // top-left pixel of frame 0
	if !(px[0] == 0 && px[1] == 255) {
		t.Fatalf("shoesBehindPants=true: expected bottom (green) on top, got %v", px)
	}

	px2 := frontSheet.Pix[0:4]
	if !(px2[0] == 255 && px2[1] == 0) {
		t.Fatalf("shoesBehindPants=false: expected shoes (red) on top, got %v", px2)
	}
}

func decodeSheet(t *testing.T, pngBytes []byte) *ports.Raster {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		t.Fatalf("decode sheet png: %v", err)
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, image.Point{}, draw.Src)
	return &ports.Raster{Width: rgba.Rect.Dx(), Height: rgba.Rect.Dy(), Pix: rgba.Pix}
}
