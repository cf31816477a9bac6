package partcache

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog"

	"github.com/spritestack/avatar-render/internal/infrastructure/breaker"
)

func testRaster() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.Black)
		}
	}
	return img
}

func encodeWebPFixture(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := webp.Encode(&buf, testRaster(), &webp.Options{Lossless: true}); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestLoader_OriginFetchPopulatesBothTiers(t *testing.T) {
	fixture := encodeWebPFixture(t)
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
		w.Write(fixture)
	}))
	defer srv.Close()

	diskDir := t.TempDir()
	l := New(zerolog.Nop(), srv.URL, diskDir, breaker.New(5, time.Minute))

	r, ok := l.LoadPart(context.Background(), "hat_42")
	if !ok {
		t.Fatalf("expected part to load")
	}
	if r.Width != 4 || r.Height != 4 {
		t.Fatalf("unexpected dimensions: %dx%d", r.Width, r.Height)
	}
	if hits != 1 {
		t.Fatalf("expected exactly one origin fetch, got %d", hits)
	}

	stats := l.Stats()
	if stats.OriginFetches != 1 {
		t.Fatalf("expected 1 origin fetch recorded, got %d", stats.OriginFetches)
	}

	// Give the fire-and-forget disk write a moment to land.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		entries, _ := os.ReadDir(diskDir)
		if len(entries) == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	entries, err := os.ReadDir(diskDir)
	if err != nil {
		t.Fatalf("read disk dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one disk cache file, got %d", len(entries))
	}
}

func TestLoader_MemoryHitAvoidsSecondFetch(t *testing.T) {
	fixture := encodeWebPFixture(t)
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(fixture)
	}))
	defer srv.Close()

	l := New(zerolog.Nop(), srv.URL, "", breaker.New(5, time.Minute))

	ctx := context.Background()
	if _, ok := l.LoadPart(ctx, "shirt_1"); !ok {
		t.Fatalf("first load should succeed")
	}
	if _, ok := l.LoadPart(ctx, "shirt_1"); !ok {
		t.Fatalf("second load should succeed from memory")
	}
	if hits != 1 {
		t.Fatalf("expected a single origin fetch across both loads, got %d", hits)
	}
}

func TestLoader_MissingReferenceNeverFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	l := New(zerolog.Nop(), srv.URL, "", breaker.New(5, time.Minute))

	r, ok := l.LoadPart(context.Background(), "nonexistent")
	if ok || r != nil {
		t.Fatalf("expected (nil, false) for a missing part, got (%v, %v)", r, ok)
	}
}

func TestLoader_BreakerOpenShortCircuitsFetch(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	br := breaker.New(1, time.Minute)
	l := New(zerolog.Nop(), srv.URL, "", br)

	// First failure opens the breaker (threshold=1).
	if _, ok := l.LoadPart(context.Background(), "broken_1"); ok {
		t.Fatalf("expected failure")
	}
	if hits != 1 {
		t.Fatalf("expected one attempt before breaker opened, got %d", hits)
	}

	// Second call for a distinct key should be short-circuited by the open
	// breaker rather than reaching the origin again.
	if _, ok := l.LoadPart(context.Background(), "broken_2"); ok {
		t.Fatalf("expected failure")
	}
	if hits != 1 {
		t.Fatalf("expected breaker to prevent a second origin call, got %d hits", hits)
	}
}
