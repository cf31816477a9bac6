package ports

import (
	"context"
	"io"
	"time"
)

// ObjectStore is the remote, user-keyed canonical copy (C4 tier 3).
// Implementations wrap an S3-compatible client (DigitalOcean Spaces in
// production). Part sprites are not read through this interface: the
// Part-Image Loader fetches them from the CDN with a plain HTTP GET.
type ObjectStore interface {
	// Put uploads bytes under key, overwriting any existing object.
	Put(ctx context.Context, key string, contentType string, body io.Reader, size int64) error

	// Head reports whether an object exists without downloading it.
	Head(ctx context.Context, key string) (bool, error)

	// Get downloads an object's bytes.
	Get(ctx context.Context, key string) ([]byte, error)

	// SignedGetURL returns a short-lived signed URL suitable for a 307
	// redirect (spec §4.6 step 4).
	SignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Remote object key prefixes (spec §6). Exported so C4/C6 build identical
// keys without duplicating the format strings.
const (
	KeyPrefixAvatar    = "user-avatar/"
	KeyPrefixClothing  = "user-clothing/"
	KeyPrefixThumbnail = "user-thumbnail/"
	KeyPrefixItemSprite = "item-sprite/"
)
