package ports

import "github.com/spritestack/avatar-render/internal/core/domain"

// DefaultAssetProvider supplies the small built-in placeholder served when
// the render queue is overloaded and no previous render exists for the
// user (spec §4.6 step 5).
type DefaultAssetProvider interface {
	DefaultAsset(view domain.ViewType) ([]byte, bool)
}
