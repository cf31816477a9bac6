package compositor

import (
	"fmt"
	"time"

	"github.com/spritestack/avatar-render/internal/core/domain"
	"github.com/spritestack/avatar-render/internal/core/ports"
)

const (
	avatarQuality    = 95
	thumbnailQuality = 85 // within the documented 75-100 range
)

// Compositor implements ports.Compositor (C2). It holds no state: every
// call is a pure function of its arguments.
type Compositor struct{}

func New() *Compositor {
	return &Compositor{}
}

var tattooSlots = [10]domain.TattooSlot{
	domain.TattooHead, domain.TattooNeck, domain.TattooChest, domain.TattooStomach,
	domain.TattooBackUpper, domain.TattooBackLower, domain.TattooArmRight,
	domain.TattooArmLeft, domain.TattooLegRight, domain.TattooLegLeft,
}

// Composite renders the six-direction sprite sheet and its two derived
// crops from a set of loaded layer rasters (spec §4.3).
func (Compositor) Composite(layers ports.LayerSet, flags ports.CompositeFlags) (*domain.RenderOutput, error) {
	sheet := newRaster(domain.SpriteSheetWidth, domain.SpriteSheetHeight)

	tattoosByPart := [10]*ports.Raster{}
	for i, slot := range tattooSlots {
		if r, ok := layers["tattoo:"+slot.String()]; ok {
			tattoosByPart[i] = r
		}
	}

	for dir := 0; dir < domain.FrameCount; dir++ {
		frame := newRaster(domain.FrameWidth, domain.FrameHeight)
		order := layerOrderFor(domain.Direction(dir))

		var tattooLayer *ports.Raster
		var tattooExtracted bool

		for _, key := range order {
			if key == LayerTattoos {
				if !tattooExtracted {
					blended := blendTattoos(tattoosByPart, domain.SpriteSheetWidth, domain.SpriteSheetHeight)
					if blended != nil {
						tattooLayer = extractFrame(blended, dir)
					}
					tattooExtracted = true
				}
				compositeOver(frame, tattooLayer)
				continue
			}

			sourceKey, ok := resolveLayerSource(key, struct {
				shoesBehind bool
				hairInFront bool
			}{flags.ShoesBehindPants, flags.HairInFrontOfTop})
			if !ok {
				continue
			}

			raster, ok := layers[sourceKey]
			if !ok || raster == nil {
				continue
			}
			frameLayer := extractFrame(raster, dir)
			if frameLayer == nil {
				continue
			}

			if flags.ChromaKey == domain.ChromaKeyHistorical {
				if mask, hasMask := layers[sourceKey+"_mask"]; hasMask {
					maskFrame := extractFrame(mask, dir)
					applyChromaMask(frameLayer, maskFrame)
				} else if sourceKey == "base" {
					// The base layer's historical assets self-mask.
					applyChromaMask(frameLayer, nil)
				}
			}

			compositeOver(frame, frameLayer)
		}

		// Paste this frame into the sheet at [dir*425, 0].
		xOff := dir * domain.FrameWidth
		for y := 0; y < domain.FrameHeight; y++ {
			srcStart := y * domain.FrameWidth * 4
			dstStart := (y*domain.SpriteSheetWidth + xOff) * 4
			copy(sheet.Pix[dstStart:dstStart+domain.FrameWidth*4], frame.Pix[srcStart:srcStart+domain.FrameWidth*4])
		}
	}

	frontFrame := extractFrame(sheet, int(domain.DirectionFront))

	spritePNG, err := encodePNG(sheet)
	if err != nil {
		return nil, fmt.Errorf("compositor: encode sprite sheet: %w", err)
	}
	clothingWebP, err := encodeWebP(sheet, thumbnailQuality)
	if err != nil {
		return nil, fmt.Errorf("compositor: encode clothing webp: %w", err)
	}
	avatarWebP, err := encodeWebP(frontFrame, avatarQuality)
	if err != nil {
		return nil, fmt.Errorf("compositor: encode avatar webp: %w", err)
	}

	thumbRaster := cropRect(frontFrame, domain.ThumbnailOffsetX, domain.ThumbnailOffsetY, domain.ThumbnailWidth, domain.ThumbnailHeight)
	thumbWebP, err := encodeWebP(thumbRaster, thumbnailQuality)
	if err != nil {
		return nil, fmt.Errorf("compositor: encode thumbnail webp: %w", err)
	}

	return &domain.RenderOutput{
		SpriteSheetPNG: spritePNG,
		AvatarWebP:     avatarWebP,
		ClothingWebP:   clothingWebP,
		ThumbnailWebP:  thumbWebP,
		RenderedAt:     time.Now(),
	}, nil
}
