// Package objectstore implements ports.ObjectStore against an S3-compatible
// bucket (DigitalOcean Spaces in production). No pack example ships an
// S3-compatible client, so this is an out-of-pack, named-not-grounded
// dependency (see DESIGN.md): github.com/minio/minio-go/v7, the standard
// ecosystem choice for talking to S3-compatible object storage from Go.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/spritestack/avatar-render/internal/core/domain"
	"github.com/spritestack/avatar-render/internal/infrastructure/breaker"
)

// Config mirrors spec §6's enumerated object-store environment variables.
type Config struct {
	Endpoint string // DO_ENDPOINT
	SpaceID  string // DO_SPACE_ID (access key)
	SpaceKey string // DO_SPACE_KEY (secret key)
	Bucket   string // DO_SPACE_NAME
	UseSSL   bool
}

// Store implements ports.ObjectStore.
type Store struct {
	log     zerolog.Logger
	client  *minio.Client
	bucket  string
	breaker *breaker.Breaker
}

// New wires br as the object-store side of spec §7's two-breaker design
// (the other guards the part-sprite CDN, in partcache.Loader). Every
// remote call below is gated by br.Allow and reports outcome via
// br.Success/br.Failure, the same pattern partcache.Loader uses against
// the CDN breaker.
func New(log zerolog.Logger, cfg Config, br *breaker.Breaker) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.SpaceID, cfg.SpaceKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: new client: %w", err)
	}
	return &Store{
		log:     log.With().Str("component", "objectstore").Logger(),
		client:  client,
		bucket:  cfg.Bucket,
		breaker: br,
	}, nil
}

func (s *Store) Put(ctx context.Context, key string, contentType string, body io.Reader, size int64) error {
	if s.breaker != nil && !s.breaker.Allow() {
		return fmt.Errorf("objectstore: put %s: %w", key, domain.ErrDependencyOpen)
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		s.recordFailure()
		return fmt.Errorf("objectstore: put %s: %w", key, err)
	}
	s.recordSuccess()
	return nil
}

func (s *Store) Head(ctx context.Context, key string) (bool, error) {
	if s.breaker != nil && !s.breaker.Allow() {
		return false, fmt.Errorf("objectstore: head %s: %w", key, domain.ErrDependencyOpen)
	}
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if errResp := minio.ToErrorResponse(err); errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			s.recordSuccess()
			return false, nil
		}
		s.recordFailure()
		return false, fmt.Errorf("objectstore: head %s: %w", key, err)
	}
	s.recordSuccess()
	return true, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if s.breaker != nil && !s.breaker.Allow() {
		return nil, fmt.Errorf("objectstore: get %s: %w", key, domain.ErrDependencyOpen)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		s.recordFailure()
		return nil, fmt.Errorf("objectstore: get %s: %w", key, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		s.recordFailure()
		return nil, fmt.Errorf("objectstore: read %s: %w", key, err)
	}
	s.recordSuccess()
	return data, nil
}

func (s *Store) SignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if s.breaker != nil && !s.breaker.Allow() {
		return "", fmt.Errorf("objectstore: presign %s: %w", key, domain.ErrDependencyOpen)
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, url.Values{})
	if err != nil {
		s.recordFailure()
		return "", fmt.Errorf("objectstore: presign %s: %w", key, err)
	}
	s.recordSuccess()
	return u.String(), nil
}

func (s *Store) recordSuccess() {
	if s.breaker != nil {
		s.breaker.Success()
	}
}

func (s *Store) recordFailure() {
	if s.breaker != nil {
		s.breaker.Failure()
	}
}

// KeyForUsername builds the bucket key for a given prefix and username,
// keeping the lowercasing rule consistent across every caller (spec §6:
// "bucket keyed by username").
func KeyForUsername(prefix, username string) string {
	return prefix + strings.ToLower(username)
}
