package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/spritestack/avatar-render/internal/core/domain"
	"github.com/spritestack/avatar-render/internal/core/ports"
	"github.com/spritestack/avatar-render/internal/infrastructure/compositor"
)

type fakePartLoader struct {
	available map[string]*ports.Raster
}

func (f *fakePartLoader) LoadPart(_ context.Context, itemRef string) (*ports.Raster, bool) {
	r, ok := f.available[itemRef]
	return r, ok
}

func (f *fakePartLoader) Stats() ports.PartLoaderStats { return ports.PartLoaderStats{} }

type fakeCompositor struct {
	lastLayers ports.LayerSet
	lastFlags  ports.CompositeFlags
	err        error
}

func (f *fakeCompositor) Composite(layers ports.LayerSet, flags ports.CompositeFlags) (*domain.RenderOutput, error) {
	f.lastLayers = layers
	f.lastFlags = flags
	if f.err != nil {
		return nil, f.err
	}
	return &domain.RenderOutput{
		AvatarWebP:    []byte("avatar"),
		ClothingWebP:  []byte("clothing"),
		ThumbnailWebP: []byte("thumb"),
	}, nil
}

type fakeResultCache struct {
	memPuts  int
	diskPuts int
	diskErr  error
}

func (f *fakeResultCache) GetMemory(uint32) (*ports.CachedResult, bool) { return nil, false }

func (f *fakeResultCache) GetDisk(context.Context, uint32) (*ports.CachedResult, bool) {
	return nil, false
}

func (f *fakeResultCache) PutMemory(uint32, ports.CachedResult) { f.memPuts++ }

func (f *fakeResultCache) PutDisk(context.Context, uint32, ports.CachedResult) error {
	f.diskPuts++
	return f.diskErr
}

func (f *fakeResultCache) Purge(context.Context) error  { return nil }
func (f *fakeResultCache) Stats() ports.ResultCacheStats { return ports.ResultCacheStats{} }

type fakeUserStore struct {
	items map[string]*domain.Item
	updated bool
}

func (f *fakeUserStore) GetUser(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeUserStore) UpdateRenderResult(_ context.Context, _ string, _ uint32, _, _, _ string) error {
	f.updated = true
	return nil
}

func (f *fakeUserStore) GetItem(_ context.Context, itemID string) (*domain.Item, error) {
	if item, ok := f.items[itemID]; ok {
		return item, nil
	}
	return nil, domain.ErrNotFound
}

func TestPipeline_CompositesLoadedLayersAndWritesBack(t *testing.T) {
	dir := t.TempDir()
	writeTestBasePNG(t, filepath.Join(dir, "male_0.png"))

	custom := domain.Customization{}
	custom.Slots[domain.SlotTop] = domain.ItemRef{ID: "top-1"}

	parts := &fakePartLoader{available: map[string]*ports.Raster{
		"top-1": {Width: 1, Height: 1, Pix: []uint8{255, 0, 0, 255}},
	}}
	comp := &fakeCompositor{}
	cache := &fakeResultCache{}
	users := &fakeUserStore{items: map[string]*domain.Item{
		"top-1": {ID: "top-1", Description: "a coat !s"},
	}}
	objects := &stubObjectStore{}

	p := NewPipeline(parts, comp, cache, objects, users, dir, zerolog.Nop())

	req := ports.RenderRequest{Username: "alice", Fingerprint: 42, Customization: custom}
	out, err := p.Render(context.Background(), req)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out.Fingerprint != 42 {
		t.Fatalf("expected fingerprint to be stamped from request")
	}
	if _, ok := comp.lastLayers[domain.SlotTop.String()]; !ok {
		t.Fatalf("expected top layer to reach the compositor")
	}
	if _, ok := comp.lastLayers[compositor.LayerBase]; !ok {
		t.Fatalf("expected base layer to reach the compositor")
	}
	if !comp.lastFlags.HairInFrontOfTop {
		t.Fatalf("expected HairInFrontOfTop resolved from the top item's description")
	}
	if cache.memPuts != 1 || cache.diskPuts != 1 {
		t.Fatalf("expected one memory and one disk cache write")
	}
	if objects.count != 3 {
		t.Fatalf("expected three remote object writes, got %d", objects.count)
	}
	if !users.updated {
		t.Fatalf("expected user record update after all remote writes succeeded")
	}
}

func TestPipeline_RemoteWriteFailureSkipsUserUpdate(t *testing.T) {
	parts := &fakePartLoader{available: map[string]*ports.Raster{}}
	comp := &fakeCompositor{}
	cache := &fakeResultCache{}
	users := &fakeUserStore{items: map[string]*domain.Item{}}
	objects := &stubObjectStore{failAfter: 1}

	p := NewPipeline(parts, comp, cache, objects, users, "", zerolog.Nop())

	req := ports.RenderRequest{Username: "bob", Fingerprint: 7, Customization: domain.Customization{}}
	out, err := p.Render(context.Background(), req)
	if err != nil {
		t.Fatalf("render returned an error even though bytes were produced: %v", err)
	}
	if out == nil {
		t.Fatalf("expected output bytes despite the remote write failure")
	}
	if users.updated {
		t.Fatalf("expected the user record to stay unchanged after a remote write failure")
	}
}

func TestPipeline_CompositeErrorWrapsDomainInternal(t *testing.T) {
	parts := &fakePartLoader{available: map[string]*ports.Raster{}}
	comp := &fakeCompositor{err: errors.New("boom")}
	cache := &fakeResultCache{}
	users := &fakeUserStore{items: map[string]*domain.Item{}}
	objects := &stubObjectStore{}

	p := NewPipeline(parts, comp, cache, objects, users, "", zerolog.Nop())

	_, err := p.Render(context.Background(), ports.RenderRequest{Username: "carol", Fingerprint: 1})
	if !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
}

type stubObjectStore struct {
	count     int
	failAfter int // fails the call at this 1-indexed count; 0 means never fail
}

func (s *stubObjectStore) Put(_ context.Context, _ string, _ string, _ io.Reader, _ int64) error {
	s.count++
	if s.failAfter > 0 && s.count == s.failAfter {
		return errors.New("remote put failed")
	}
	return nil
}

func (s *stubObjectStore) Head(context.Context, string) (bool, error) { return true, nil }
func (s *stubObjectStore) Get(context.Context, string) ([]byte, error) {
	return nil, domain.ErrNotFound
}
func (s *stubObjectStore) SignedGetURL(context.Context, string, time.Duration) (string, error) {
	return "", nil
}

func writeTestBasePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture png: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture png: %v", err)
	}
}
