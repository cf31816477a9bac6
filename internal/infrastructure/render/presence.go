package render

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceHint is the cross-process "render in progress" advisory key
// described in SPEC_FULL §2: a hint only, never consulted by the
// node-local single-flight logic itself. A second process's Request
// Handler can read it to pick the fallback path immediately instead of
// discovering the render is already in-flight the slow way. Grounded on
// the teacher's redis.DedupChecker: a thin wrapper with one SET/EXISTS/DEL
// each, a fixed key format, a fixed TTL as a safety net against a process
// crashing mid-render without clearing its own key.
type PresenceHint struct {
	client *redis.Client
}

const presenceTTL = 45 * time.Second // a little past the per-job timeout

func NewPresenceHint(client *redis.Client) *PresenceHint {
	return &PresenceHint{client: client}
}

func (p *PresenceHint) key(fingerprint uint32) string {
	return fmt.Sprintf("avatar-render:inflight:%d", fingerprint)
}

// Mark records that a render for this fingerprint has started on this
// process. Best-effort: errors are swallowed by the caller, never fail a
// render over an advisory hint.
func (p *PresenceHint) Mark(ctx context.Context, fingerprint uint32) error {
	if p.client == nil {
		return nil
	}
	return p.client.Set(ctx, p.key(fingerprint), "1", presenceTTL).Err()
}

func (p *PresenceHint) Clear(ctx context.Context, fingerprint uint32) error {
	if p.client == nil {
		return nil
	}
	return p.client.Del(ctx, p.key(fingerprint)).Err()
}

// Check reports whether another process has marked this fingerprint as
// in-flight.
func (p *PresenceHint) Check(ctx context.Context, fingerprint uint32) bool {
	if p.client == nil {
		return false
	}
	n, err := p.client.Exists(ctx, p.key(fingerprint)).Result()
	return err == nil && n > 0
}
