package ports

import (
	"context"

	"github.com/spritestack/avatar-render/internal/core/domain"
)

// UserStore is the user/item projection database (out of scope per spec
// §1, only its contract lives here). It is read-only except for
// UpdateRenderResult, which records a render's outcome. Backed by MongoDB in
// production, matching the teacher's mongo-repository pattern.
type UserStore interface {
	GetUser(ctx context.Context, username string) (*domain.User, error)

	// UpdateRenderResult atomically records a successful render: the new
	// hash and the three object keys, in one update (spec §4.4 write
	// policy, spec §3 invariant 1).
	UpdateRenderResult(ctx context.Context, username string, hash uint32, avatarKey, clothingKey, thumbnailKey string) error

	// GetItem resolves an item reference to its description-bearing
	// projection. Lookup failures default the two layout flags to false
	// (spec §7 propagation policy) — callers must not fail a render on
	// error here.
	GetItem(ctx context.Context, itemID string) (*domain.Item, error)
}
