// Package compositor implements the Layer Compositor (C2): a pure function
// from loaded part rasters to the six-direction sprite sheet and its two
// derived crops. Nothing in this package performs I/O.
package compositor

import "github.com/spritestack/avatar-render/internal/core/domain"

// Pseudo-layer keys. Every direction's layer order names either one of
// these or a domain.SlotName.String() key, except "hair" and "shoes" which
// never appear directly — they are always resolved to one of the four
// conditional pseudo-layers below.
const (
	LayerBase         = "base"
	LayerTattoos      = "tattoos"
	LayerShoesBefore  = "shoes_before"
	LayerShoesAfter   = "shoes_after"
	LayerHairBehind   = "hair_behind"
	LayerHairInFront  = "hair_in_front"
)

// directionGroup identifies which of the four layer-order tables a frame
// direction uses.
type directionGroup int

const (
	groupFront directionGroup = iota
	groupSide
	groupThreeQuarter
	groupBack
)

func groupFor(d domain.Direction) directionGroup {
	switch d {
	case domain.DirectionFront:
		return groupFront
	case domain.DirectionSideLeft, domain.DirectionSideRight:
		return groupSide
	case domain.DirectionThreeQuarterLeft, domain.DirectionThreeQuarterRight:
		return groupThreeQuarter
	case domain.DirectionBack:
		return groupBack
	default:
		return groupFront
	}
}

// Layer orders, back-to-front (index 0 painted first, last index painted
// last i.e. on top). These four tables are the specification: every
// conforming implementation must reproduce them exactly (spec §4.3).
//
// The base body and tattoos sit at the bottom. Skin-adjacent slots (socks,
// underwear-equivalent bottom) sit just above; outerwear and accessories
// build up from there; head/face slots cluster together. Hair is painted at
// hair_behind (just below top/coat) or at hair_in_front (above the face
// slots) depending on the hairInFrontOfTop flag; shoes are painted at
// shoes_before (below bottom) when shoesBehindPants is set and at
// shoes_after (above bottom) otherwise; headwear and held/worn accessories
// paint last so they are never occluded by clothing.
var (
	frontOrder = []string{
		LayerBase, LayerTattoos,
		"socks", LayerShoesBefore, "bottom", LayerShoesAfter,
		"belt", LayerHairBehind, "top", "coat",
		"necklace", "neckwear", "bracelets", "gloves",
		"wings", "bag",
		"head", "beard", "eyebrows", "eyes", "nose", "mouth", "makeup",
		"earPiece", "piercings", "glasses", "horns",
		LayerHairInFront,
		"hat", "handheld",
	}

	sideOrder = []string{
		LayerBase, LayerTattoos,
		"socks", LayerShoesBefore, "bottom", LayerShoesAfter,
		"belt", LayerHairBehind, "top", "coat",
		"wings", "bag",
		"necklace", "neckwear", "bracelets", "gloves",
		"head", "beard", "eyebrows", "eyes", "nose", "mouth", "makeup",
		"earPiece", "piercings", "glasses", "horns",
		LayerHairInFront,
		"hat", "handheld",
	}

	threeQuarterOrder = []string{
		LayerBase, LayerTattoos,
		"socks", LayerShoesBefore, "bottom", LayerShoesAfter,
		"wings", "belt", LayerHairBehind, "top", "coat",
		"necklace", "neckwear", "bracelets", "gloves", "bag",
		"head", "beard", "eyebrows", "eyes", "nose", "mouth", "makeup",
		"earPiece", "piercings", "glasses", "horns",
		LayerHairInFront,
		"hat", "handheld",
	}

	backOrder = []string{
		LayerBase, LayerTattoos,
		"socks", LayerShoesBefore, "bottom", LayerShoesAfter,
		"belt", LayerHairBehind, "top", "coat",
		"necklace", "neckwear", "bracelets", "gloves", "bag",
		"wings",
		"head", "beard", "eyebrows", "eyes", "nose", "mouth", "makeup",
		"earPiece", "piercings", "glasses", "horns",
		LayerHairInFront,
		"hat", "handheld",
	}
)

// layerOrderFor returns the fixed z-order for the given direction.
func layerOrderFor(d domain.Direction) []string {
	switch groupFor(d) {
	case groupFront:
		return frontOrder
	case groupSide:
		return sideOrder
	case groupThreeQuarter:
		return threeQuarterOrder
	case groupBack:
		return backOrder
	default:
		return frontOrder
	}
}

// resolveLayerSource maps a layer-order key to the LayerSet key it draws
// from under the given composite flags: a conditional pseudo-layer resolves
// to "hair" or "shoes" when its flag selects it and to ok=false otherwise;
// every other key is returned unchanged. "hair" and "shoes" as raw LayerSet
// keys are only ever read through this indirection.
func resolveLayerSource(orderKey string, flags struct {
	shoesBehind bool
	hairInFront bool
}) (sourceKey string, ok bool) {
	switch orderKey {
	case LayerShoesBefore:
		if flags.shoesBehind {
			return "shoes", true
		}
		return "", false
	case LayerShoesAfter:
		if !flags.shoesBehind {
			return "shoes", true
		}
		return "", false
	case LayerHairBehind:
		if !flags.hairInFront {
			return "hair", true
		}
		return "", false
	case LayerHairInFront:
		if flags.hairInFront {
			return "hair", true
		}
		return "", false
	default:
		return orderKey, true
	}
}
