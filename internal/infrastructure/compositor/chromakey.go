package compositor

import "github.com/spritestack/avatar-render/internal/core/ports"

// Chroma-key target color and per-channel tolerance (spec §4.3, "historical
// mode"). Values are the exact constants from the specification.
const (
	chromaTargetR, chromaTargetG, chromaTargetB = 0, 255, 4
	chromaToleranceR, chromaToleranceG, chromaToleranceB = 50, 150, 50
)

func inChromaBox(r, g, b uint8) bool {
	return withinTolerance(int(r), chromaTargetR, chromaToleranceR) &&
		withinTolerance(int(g), chromaTargetG, chromaToleranceG) &&
		withinTolerance(int(b), chromaTargetB, chromaToleranceB)
}

func withinTolerance(v, target, tolerance int) bool {
	lo, hi := target-tolerance, target+tolerance
	iv := int(v)
	return iv >= lo && iv <= hi
}

// applyChromaMask erases pixels of src wherever mask has a fully opaque
// pixel whose color lies in the chroma-key target box. When mask is nil,
// src masks itself: a single-image form that erases its own matching
// pixels (spec §4.3).
func applyChromaMask(src, mask *ports.Raster) {
	if src == nil {
		return
	}
	if mask == nil {
		mask = src
	}
	n := len(src.Pix) / 4
	if len(mask.Pix)/4 != n {
		return
	}
	for i := 0; i < n; i++ {
		o := i * 4
		if mask.Pix[o+3] != 255 {
			continue
		}
		if inChromaBox(mask.Pix[o], mask.Pix[o+1], mask.Pix[o+2]) {
			src.Pix[o] = 0
			src.Pix[o+1] = 0
			src.Pix[o+2] = 0
			src.Pix[o+3] = 0
		}
	}
}
