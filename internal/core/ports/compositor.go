package ports

import "github.com/spritestack/avatar-render/internal/core/domain"

// LayerSet maps a named layer to its loaded raster. Keys are the slot
// names from domain.SlotName, the synthetic "base" layer, one
// "tattoo:<sub-slot>" key per tattoo sub-slot (blended by the compositor
// into its single "tattoos" layer), and optional "<key>_mask" rasters for
// chroma-key mode.
type LayerSet map[string]*Raster

// CompositeFlags are the two layout booleans threaded through every
// direction's layer order (spec §4.3).
type CompositeFlags struct {
	ShoesBehindPants bool
	HairInFrontOfTop bool
	ChromaKey        domain.ChromaKeyMode
}

// Compositor is the pure rendering function (C2): given loaded part
// rasters and the two layout flags, it produces the sprite sheet and its
// derived crops. It performs no I/O and has no side effects.
type Compositor interface {
	Composite(layers LayerSet, flags CompositeFlags) (*domain.RenderOutput, error)
}
