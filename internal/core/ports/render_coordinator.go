package ports

import (
	"context"

	"github.com/spritestack/avatar-render/internal/core/domain"
)

// RenderRequest carries everything a render needs beyond the dedup key: the
// customization to render (so the coordinator never has to re-fetch the
// user) and which view triggered the submission (for priority ordering).
type RenderRequest struct {
	Username      string
	Fingerprint   uint32
	Customization domain.Customization
	View          domain.ViewType
}

// RenderEvent is one of the four observable events mandated by spec §4.5.
type RenderEvent struct {
	Kind      string // "job-added", "job-completed", "job-retried", "job-failed"
	JobID     string
	Username  string
	Fingerprint uint32
	Attempt   int
	Err       error
}

// EventSink receives RenderCoordinator telemetry. Implementations must not
// block the caller for long — the coordinator publishes best-effort.
type EventSink interface {
	Publish(RenderEvent)
}

// RenderCoordinator is C5: single-flight de-dup, bounded priority queue,
// concurrency cap, retry with backoff, per-job timeout.
type RenderCoordinator interface {
	// Submit enqueues (or attaches to an in-flight) render and blocks until
	// it resolves or ctx is cancelled. Returns domain.ErrOverloaded
	// immediately, without enqueuing, when the queue is full.
	Submit(ctx context.Context, req RenderRequest) (*domain.RenderOutput, error)

	// InFlight reports whether a render for this fingerprint is already
	// running or queued, letting C6 choose the fallback path of spec §4.6
	// step 5 instead of blocking on Submit.
	InFlight(fingerprint uint32) bool

	// Stats backs GET /queue/stats.
	Stats() QueueStats

	Pause()
	Resume()

	// Purge cancels every in-flight and queued job; attached waiters
	// receive domain.ErrCacheCleared (design notes §9, Q3).
	Purge()
}

// RenderPipeline is the job body the coordinator executes: pull parts
// through C1, composite through C2, then write results back through C4 and
// the remote object store (the data flow described in spec §2). It is a
// separate port from RenderCoordinator so the coordinator's queueing,
// retry, and single-flight logic stay independent of rendering mechanics.
type RenderPipeline interface {
	Render(ctx context.Context, req RenderRequest) (*domain.RenderOutput, error)
}

// QueueStats is the JSON body of GET /queue/stats (spec §6).
type QueueStats struct {
	Waiting   int   `json:"waiting"`
	Active    int   `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Paused    bool  `json:"paused"`
}
