package compositor

import "github.com/spritestack/avatar-render/internal/core/ports"

// newRaster allocates a zeroed (fully transparent) raster.
func newRaster(w, h int) *ports.Raster {
	return &ports.Raster{Width: w, Height: h, Pix: make([]uint8, w*h*4)}
}

// extractFrame returns the 425x850 region for the given direction from a
// layer raster. A raster already sized to a single frame is returned as-is
// (spec §4.3 "Direction extraction"); a full 2550x850 sheet is cropped at
// [direction*425, 0, 425, 850].
func extractFrame(r *ports.Raster, direction int) *ports.Raster {
	const fw, fh = 425, 850
	if r.Width == fw && r.Height == fh {
		return r
	}
	if r.Width != fw*6 || r.Height != fh {
		// Malformed asset: treat as absent rather than panic mid-render.
		return nil
	}
	out := newRaster(fw, fh)
	xOff := direction * fw
	for y := 0; y < fh; y++ {
		srcStart := (y*r.Width + xOff) * 4
		dstStart := y * fw * 4
		copy(out.Pix[dstStart:dstStart+fw*4], r.Pix[srcStart:srcStart+fw*4])
	}
	return out
}

// compositeOver paints src onto dst using the standard straight-alpha
// "over" operator, in place.
func compositeOver(dst, src *ports.Raster) {
	if src == nil || dst == nil {
		return
	}
	n := len(dst.Pix) / 4
	if len(src.Pix)/4 != n {
		return
	}
	for i := 0; i < n; i++ {
		o := i * 4
		sa := float64(src.Pix[o+3]) / 255.0
		if sa == 0 {
			continue
		}
		if sa == 1 {
			dst.Pix[o] = src.Pix[o]
			dst.Pix[o+1] = src.Pix[o+1]
			dst.Pix[o+2] = src.Pix[o+2]
			dst.Pix[o+3] = 255
			continue
		}
		da := float64(dst.Pix[o+3]) / 255.0
		outA := sa + da*(1-sa)
		if outA == 0 {
			continue
		}
		for c := 0; c < 3; c++ {
			sc := float64(src.Pix[o+c])
			dc := float64(dst.Pix[o+c])
			out := (sc*sa + dc*da*(1-sa)) / outA
			if out < 0 {
				out = 0
			} else if out > 255 {
				out = 255
			}
			dst.Pix[o+c] = uint8(out)
		}
		dst.Pix[o+3] = uint8(outA * 255)
	}
}

// blendTattoos combines the ten per-body-part tattoo rasters into a single
// straight-alpha layer before direction compositing treats them as one
// item (spec §4.3 "tattoos (derived)").
func blendTattoos(parts [10]*ports.Raster, w, h int) *ports.Raster {
	out := newRaster(w, h)
	any := false
	for _, p := range parts {
		if p == nil {
			continue
		}
		any = true
		compositeOver(out, p)
	}
	if !any {
		return nil
	}
	return out
}

// cropRect extracts a sub-rectangle from a raster.
func cropRect(r *ports.Raster, x, y, w, h int) *ports.Raster {
	out := newRaster(w, h)
	for row := 0; row < h; row++ {
		srcY := y + row
		if srcY < 0 || srcY >= r.Height {
			continue
		}
		for col := 0; col < w; col++ {
			srcX := x + col
			if srcX < 0 || srcX >= r.Width {
				continue
			}
			srcOff := (srcY*r.Width + srcX) * 4
			dstOff := (row*w + col) * 4
			copy(out.Pix[dstOff:dstOff+4], r.Pix[srcOff:srcOff+4])
		}
	}
	return out
}
