package domain

// User is the read-only projection of a user record used by the core: the
// stored customization plus the bookkeeping fields that let the Request
// Handler decide whether a render is needed (spec §3 invariant 1).
type User struct {
	Username string

	Customization Customization

	// CustomizationHash is the fingerprint the current Customization hashed
	// to at the time of the last successful render. It equals
	// Fingerprint(Customization) iff the *Key fields below are valid.
	CustomizationHash uint32

	// AvatarKey, ClothingKey, ThumbnailKey are opaque remote-storage keys
	// pointing at the most recently rendered objects. Empty when the user
	// has never been rendered.
	AvatarKey    string
	ClothingKey  string
	ThumbnailKey string
}

// HasPreviousRender reports whether the user has at least one rendered
// object to fall back to (spec §4.6 step 5).
func (u User) HasPreviousRender() bool {
	return u.AvatarKey != "" || u.ClothingKey != "" || u.ThumbnailKey != ""
}

// KeyFor returns the remote-storage key for the given view type, or "" if
// no object has ever been rendered for that view.
func (u User) KeyFor(v ViewType) string {
	switch v {
	case ViewAvatar:
		return u.AvatarKey
	case ViewSprite:
		return u.ClothingKey
	case ViewThumbnail:
		return u.ThumbnailKey
	default:
		return ""
	}
}
