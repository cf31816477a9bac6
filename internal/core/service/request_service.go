package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/spritestack/avatar-render/internal/core/domain"
	"github.com/spritestack/avatar-render/internal/core/ports"
)

// usernamePattern enforces spec §4.6 step 1: only [A-Za-z0-9_-].
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

const signedURLTTL = 5 * time.Minute

// RequestService implements the Request Handler (C6): the single
// GetAvatar operation that resolves a (username, type) request against
// the fingerprint, the result cache, and the render coordinator.
type RequestService struct {
	users        ports.UserStore
	fingerprints ports.Fingerprinter
	cache        ports.ResultCache
	objects      ports.ObjectStore
	coordinator  ports.RenderCoordinator
	defaults     ports.DefaultAssetProvider
	log          zerolog.Logger
}

func NewRequestService(
	users ports.UserStore,
	fingerprints ports.Fingerprinter,
	cache ports.ResultCache,
	objects ports.ObjectStore,
	coordinator ports.RenderCoordinator,
	defaults ports.DefaultAssetProvider,
	log zerolog.Logger,
) *RequestService {
	return &RequestService{
		users:        users,
		fingerprints: fingerprints,
		cache:        cache,
		objects:      objects,
		coordinator:  coordinator,
		defaults:     defaults,
		log:          log,
	}
}

// NormalizeView resolves the a/s/t aliases from spec §4.6 step 1.
func NormalizeView(raw string) (domain.ViewType, bool) {
	switch strings.ToLower(raw) {
	case "avatar", "a":
		return domain.ViewAvatar, true
	case "sprite", "s":
		return domain.ViewSprite, true
	case "thumbnail", "t":
		return domain.ViewThumbnail, true
	default:
		return 0, false
	}
}

func sanitizeUsername(raw string) (string, bool) {
	if raw == "" || !usernamePattern.MatchString(raw) {
		return "", false
	}
	return raw, true
}

// GetAvatar resolves a (username, type) request per spec §4.6.
func (s *RequestService) GetAvatar(ctx context.Context, rawUsername, rawType string) domain.Response {
	view, ok := NormalizeView(rawType)
	if !ok {
		return domain.ErrorResponse(domain.ErrInvalidRequest, 0)
	}
	username, ok := sanitizeUsername(rawUsername)
	if !ok {
		return domain.ErrorResponse(domain.ErrInvalidRequest, 0)
	}

	user, err := s.users.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFoundResponse()
		}
		s.log.Error().Err(err).Str("username", username).Msg("user lookup failed")
		return domain.ErrorResponse(domain.ErrTransient, 0)
	}

	fp := s.fingerprints.Fingerprint(username, user.Customization)

	if user.CustomizationHash == fp {
		if resp, hit := s.serveValid(ctx, *user, fp, view); hit {
			return resp
		}
		// Falls through to the render path: the hash is valid but the
		// backing object/bytes are missing (e.g. evicted or never
		// written for this view), so spec §4.6 step 5 applies.
	}

	return s.renderPath(ctx, *user, fp, view)
}

// serveValid implements spec §4.6 step 4: hash is current, try to serve
// straight from a cache tier without touching the render coordinator.
func (s *RequestService) serveValid(ctx context.Context, user domain.User, fp uint32, view domain.ViewType) (domain.Response, bool) {
	switch view {
	case domain.ViewSprite, domain.ViewThumbnail:
		key := user.KeyFor(view)
		if key == "" {
			return domain.Response{}, false
		}
		exists, err := s.objects.Head(ctx, key)
		if err != nil || !exists {
			return domain.Response{}, false
		}
		url, err := s.objects.SignedGetURL(ctx, key, signedURLTTL)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to sign redirect URL")
			return domain.Response{}, false
		}
		return domain.RedirectResponse(url), true

	case domain.ViewAvatar:
		if cached, ok := s.cache.GetMemory(fp); ok && cached.CustomizationHash == fp {
			return domain.BytesResponse(cached.Bytes, "image/webp", true), true
		}
		if cached, ok := s.cache.GetDisk(ctx, fp); ok && cached.CustomizationHash == fp {
			s.cache.PutMemory(fp, *cached)
			return domain.BytesResponse(cached.Bytes, "image/webp", false), true
		}
		key := user.AvatarKey
		if key == "" {
			return domain.Response{}, false
		}
		bytes, err := s.objects.Get(ctx, key)
		if err != nil {
			return domain.Response{}, false
		}
		s.cache.PutMemory(fp, ports.CachedResult{Bytes: bytes, CustomizationHash: fp, StoredAt: time.Now()})
		return domain.BytesResponse(bytes, "image/webp", false), true
	}
	return domain.Response{}, false
}

// renderPath implements spec §4.6 step 5.
func (s *RequestService) renderPath(ctx context.Context, user domain.User, fp uint32, view domain.ViewType) domain.Response {
	if s.coordinator.InFlight(fp) && user.HasPreviousRender() {
		if resp, ok := s.fallbackRedirect(ctx, user, view); ok {
			return resp
		}
	}

	output, err := s.coordinator.Submit(ctx, ports.RenderRequest{
		Username:      user.Username,
		Fingerprint:   fp,
		Customization: user.Customization,
		View:          view,
	})
	if err != nil {
		return s.handleRenderError(ctx, user, view, err)
	}

	return s.serveFreshRender(view, output)
}

func (s *RequestService) fallbackRedirect(ctx context.Context, user domain.User, view domain.ViewType) (domain.Response, bool) {
	key := user.KeyFor(view)
	if key == "" {
		key = user.AvatarKey
	}
	if key == "" {
		return domain.Response{}, false
	}
	url, err := s.objects.SignedGetURL(ctx, key, signedURLTTL)
	if err != nil {
		return domain.Response{}, false
	}
	return domain.RedirectResponse(url), true
}

func (s *RequestService) handleRenderError(ctx context.Context, user domain.User, view domain.ViewType, err error) domain.Response {
	switch {
	case errors.Is(err, domain.ErrOverloaded):
		if resp, ok := s.fallbackRedirect(ctx, user, view); ok {
			return resp
		}
		if bytes, ok := s.defaults.DefaultAsset(view); ok {
			return domain.BytesResponse(bytes, "image/webp", false)
		}
		return domain.ErrorResponse(domain.ErrOverloaded, 5*time.Second)

	case errors.Is(err, domain.ErrTimeout):
		return domain.ErrorResponse(domain.ErrTimeout, 0)

	case errors.Is(err, domain.ErrDependencyOpen):
		return domain.ErrorResponse(domain.ErrDependencyOpen, 30*time.Second)

	case errors.Is(err, domain.ErrCacheCleared):
		return domain.ErrorResponse(domain.ErrCacheCleared, 0)

	default:
		s.log.Error().Err(err).Str("username", user.Username).Msg("render failed")
		return domain.ErrorResponse(domain.ErrTransient, 0)
	}
}

func (s *RequestService) serveFreshRender(view domain.ViewType, output *domain.RenderOutput) domain.Response {
	switch view {
	case domain.ViewAvatar:
		return domain.BytesResponse(output.AvatarWebP, "image/webp", false)
	case domain.ViewThumbnail:
		return domain.BytesResponse(output.ThumbnailWebP, "image/webp", false)
	default:
		return domain.BytesResponse(output.ClothingWebP, "image/webp", false)
	}
}
