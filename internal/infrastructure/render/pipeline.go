package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/spritestack/avatar-render/internal/core/domain"
	"github.com/spritestack/avatar-render/internal/core/ports"
	"github.com/spritestack/avatar-render/internal/infrastructure/compositor"
	"github.com/spritestack/avatar-render/internal/infrastructure/objectstore"
)

// Pipeline implements ports.RenderPipeline: the actual C1 -> C2 -> C4 work
// a queued job performs, kept separate from the Coordinator's queueing
// mechanics (see DESIGN.md's RenderCoordinator/RenderPipeline port split).
type Pipeline struct {
	parts      ports.PartLoader
	composite  ports.Compositor
	cache      ports.ResultCache
	objects    ports.ObjectStore
	users      ports.UserStore
	log        zerolog.Logger
	baseAssetDir string
}

func NewPipeline(
	parts ports.PartLoader,
	composite ports.Compositor,
	cache ports.ResultCache,
	objects ports.ObjectStore,
	users ports.UserStore,
	baseAssetDir string,
	log zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		parts:        parts,
		composite:    composite,
		cache:        cache,
		objects:      objects,
		users:        users,
		baseAssetDir: baseAssetDir,
		log:          log.With().Str("component", "render.Pipeline").Logger(),
	}
}

func (p *Pipeline) Render(ctx context.Context, req ports.RenderRequest) (*domain.RenderOutput, error) {
	c := req.Customization

	layers := ports.LayerSet{}
	if base, ok := p.loadBase(c.BaseImageKey()); ok {
		layers[compositor.LayerBase] = base
	}

	for i := 0; i < int(domain.SlotCount); i++ {
		slot := domain.SlotName(i)
		ref := c.Get(slot)
		if ref.IsZero() {
			continue
		}
		if raster, ok := p.parts.LoadPart(ctx, ref.ID); ok {
			layers[slot.String()] = raster
		}
	}

	for i := 0; i < int(domain.TattooSlotCount); i++ {
		sub := domain.TattooSlot(i)
		ref := c.Tattoos.Get(sub)
		if ref.IsZero() {
			continue
		}
		if raster, ok := p.parts.LoadPart(ctx, ref.ID); ok {
			layers["tattoo:"+sub.String()] = raster
		}
	}

	flags := ports.CompositeFlags{ChromaKey: c.ChromaKey}
	if top := c.Get(domain.SlotTop); !top.IsZero() {
		if item, err := p.users.GetItem(ctx, top.ID); err == nil {
			flags.HairInFrontOfTop = item.HairInFrontOfTop()
		}
		// lookup failures default the flag to false (spec §7 propagation policy)
	}
	if bottom := c.Get(domain.SlotBottom); !bottom.IsZero() {
		if item, err := p.users.GetItem(ctx, bottom.ID); err == nil {
			flags.ShoesBehindPants = item.ShoesBehindPants()
		}
	}

	out, err := p.composite.Composite(layers, flags)
	if err != nil {
		return nil, fmt.Errorf("%w: composite: %v", domain.ErrInternal, err)
	}
	out.Fingerprint = req.Fingerprint

	p.writeBack(ctx, req, out)
	return out, nil
}

func (p *Pipeline) loadBase(key string) (*ports.Raster, bool) {
	if p.baseAssetDir == "" {
		return nil, false
	}
	path := filepath.Join(p.baseAssetDir, key+".png")
	data, err := os.ReadFile(path)
	if err != nil {
		p.log.Warn().Err(err).Str("path", path).Msg("pipeline: base asset missing")
		return nil, false
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		p.log.Warn().Err(err).Str("path", path).Msg("pipeline: base asset corrupt")
		return nil, false
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, image.Point{}, draw.Src)
	return &ports.Raster{Width: rgba.Rect.Dx(), Height: rgba.Rect.Dy(), Pix: rgba.Pix}, true
}

// writeBack implements spec §4.4's write policy: the node-local tiers first
// (memory, then disk), then the three remote objects, then the user record,
// in that order, with every
// failure logged but never turned into a render failure once bytes exist
// (spec §7 propagation policy).
func (p *Pipeline) writeBack(ctx context.Context, req ports.RenderRequest, out *domain.RenderOutput) {
	result := ports.CachedResult{Bytes: out.AvatarWebP, CustomizationHash: req.Fingerprint, StoredAt: time.Now()}
	p.cache.PutMemory(req.Fingerprint, result)
	if err := p.cache.PutDisk(ctx, req.Fingerprint, result); err != nil {
		p.log.Warn().Err(err).Str("username", req.Username).Msg("pipeline: disk write failed")
	}

	avatarKey := objectstore.KeyForUsername(ports.KeyPrefixAvatar, req.Username)
	clothingKey := objectstore.KeyForUsername(ports.KeyPrefixClothing, req.Username)
	thumbnailKey := objectstore.KeyForUsername(ports.KeyPrefixThumbnail, req.Username)

	ok := true
	if err := p.objects.Put(ctx, avatarKey, "image/webp", bytes.NewReader(out.AvatarWebP), int64(len(out.AvatarWebP))); err != nil {
		p.log.Warn().Err(err).Str("key", avatarKey).Msg("pipeline: remote write failed")
		ok = false
	}
	if err := p.objects.Put(ctx, clothingKey, "image/webp", bytes.NewReader(out.ClothingWebP), int64(len(out.ClothingWebP))); err != nil {
		p.log.Warn().Err(err).Str("key", clothingKey).Msg("pipeline: remote write failed")
		ok = false
	}
	if err := p.objects.Put(ctx, thumbnailKey, "image/webp", bytes.NewReader(out.ThumbnailWebP), int64(len(out.ThumbnailWebP))); err != nil {
		p.log.Warn().Err(err).Str("key", thumbnailKey).Msg("pipeline: remote write failed")
		ok = false
	}

	// A remote-write failure leaves customizationHash unchanged so the next
	// request retries the render (spec §7 propagation policy, spec §3
	// invariant 1: either all-updated or hash-unchanged).
	if !ok {
		return
	}
	if err := p.users.UpdateRenderResult(ctx, req.Username, req.Fingerprint, avatarKey, clothingKey, thumbnailKey); err != nil {
		p.log.Warn().Err(err).Str("username", req.Username).Msg("pipeline: user record update failed")
	}
}
