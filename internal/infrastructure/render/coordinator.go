// Package render implements the Render Coordinator (C5): single-flight
// de-dup, a bounded priority queue, a small worker pool, retry with
// backoff, and per-job timeout. Grounded on the teacher's service-layer
// style (one exported struct, constructor injection of every collaborator)
// generalized to the queue-plus-worker-pool shape spec §4.5 calls for,
// which the teacher's own request/response services never needed.
package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/spritestack/avatar-render/internal/core/domain"
	"github.com/spritestack/avatar-render/internal/core/ports"
)

const (
	defaultCapacity    = 1000
	defaultWorkers     = 3
	perJobTimeout      = 30 * time.Second
	retryInitialDelay  = 2 * time.Second
	maxAttempts        = 3
	priorityTierCount  = 3
)

type future struct {
	done   chan struct{}
	output *domain.RenderOutput
	err    error
}

type job struct {
	id       string
	key      string
	req      ports.RenderRequest
	priority domain.Priority
	future   *future

	ctx    context.Context
	cancel context.CancelFunc
	purged bool
}

// Coordinator implements ports.RenderCoordinator.
type Coordinator struct {
	pipeline ports.RenderPipeline
	sink     ports.EventSink
	presence *PresenceHint
	log      zerolog.Logger

	capacity int
	workers  int

	mu       sync.Mutex
	cond     *sync.Cond
	queues   [priorityTierCount][]*job
	queueLen int
	paused   bool
	closed   bool

	futures    map[string]*future
	inFlightFP map[uint32]bool
	running    map[string]*job

	completed int64
	failed    int64
	active    int64
}

// Option configures a Coordinator at construction.
type Option func(*Coordinator)

func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.workers = n
		}
	}
}

func WithCapacity(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.capacity = n
		}
	}
}

func WithPresenceHint(p *PresenceHint) Option {
	return func(c *Coordinator) { c.presence = p }
}

func New(pipeline ports.RenderPipeline, sink ports.EventSink, log zerolog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		pipeline:   pipeline,
		sink:       sink,
		log:        log.With().Str("component", "render.Coordinator").Logger(),
		capacity:   defaultCapacity,
		workers:    defaultWorkers,
		futures:    make(map[string]*future),
		inFlightFP: make(map[uint32]bool),
		running:    make(map[string]*job),
	}
	c.cond = sync.NewCond(&c.mu)
	for _, opt := range opts {
		opt(c)
	}
	for i := 0; i < c.workers; i++ {
		go c.workerLoop()
	}
	return c
}

func dedupKey(req ports.RenderRequest) string {
	return fmt.Sprintf("%s:%d", req.Username, req.Fingerprint)
}

// Submit enqueues (or attaches to an in-flight) render (spec §4.5).
func (c *Coordinator) Submit(ctx context.Context, req ports.RenderRequest) (*domain.RenderOutput, error) {
	key := dedupKey(req)

	c.mu.Lock()
	if f, ok := c.futures[key]; ok {
		c.mu.Unlock()
		return waitFuture(ctx, f)
	}
	if c.queueLen >= c.capacity {
		c.mu.Unlock()
		return nil, domain.ErrOverloaded
	}

	f := &future{done: make(chan struct{})}
	c.futures[key] = f
	c.inFlightFP[req.Fingerprint] = true

	jobCtx, cancel := context.WithCancel(context.Background())
	j := &job{
		id:       uuid.NewString(),
		key:      key,
		req:      req,
		priority: domain.PriorityFor(req.View),
		future:   f,
		ctx:      jobCtx,
		cancel:   cancel,
	}
	c.queues[j.priority] = append(c.queues[j.priority], j)
	c.queueLen++
	c.mu.Unlock()

	c.cond.Signal()
	c.sink.Publish(ports.RenderEvent{Kind: "job-added", JobID: j.id, Username: req.Username, Fingerprint: req.Fingerprint})
	if c.presence != nil {
		_ = c.presence.Mark(context.Background(), req.Fingerprint)
	}

	return waitFuture(ctx, f)
}

func waitFuture(ctx context.Context, f *future) (*domain.RenderOutput, error) {
	select {
	case <-f.done:
		return f.output, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Coordinator) InFlight(fingerprint uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlightFP[fingerprint]
}

func (c *Coordinator) Stats() ports.QueueStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ports.QueueStats{
		Waiting:   c.queueLen,
		Active:    int(c.active),
		Completed: c.completed,
		Failed:    c.failed,
		Paused:    c.paused,
	}
}

func (c *Coordinator) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

func (c *Coordinator) Resume() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
	c.cond.Broadcast()
}

// Purge cancels every in-flight and queued job; waiters receive
// domain.ErrCacheCleared (spec §9 Open Question 3, design notes).
func (c *Coordinator) Purge() {
	c.mu.Lock()
	for tier := range c.queues {
		for _, j := range c.queues[tier] {
			resolve(j.future, nil, domain.ErrCacheCleared)
			delete(c.futures, j.key)
			delete(c.inFlightFP, j.req.Fingerprint)
		}
		c.queues[tier] = nil
	}
	c.queueLen = 0

	toCancel := make([]*job, 0, len(c.running))
	for _, j := range c.running {
		j.purged = true
		toCancel = append(toCancel, j)
	}
	c.mu.Unlock()

	// cancel() may synchronously unblock runJob's backoff.Retry call,
	// which then takes c.mu itself to resolve — must not hold it here.
	for _, j := range toCancel {
		j.cancel()
	}
}

func (c *Coordinator) workerLoop() {
	for {
		c.mu.Lock()
		for !c.closed && (c.paused || c.queueLen == 0) {
			c.cond.Wait()
		}
		if c.closed {
			c.mu.Unlock()
			return
		}
		j := c.popHighestPriority()
		c.active++
		c.running[j.key] = j
		c.mu.Unlock()

		c.runJob(j)

		c.mu.Lock()
		c.active--
		delete(c.running, j.key)
		c.mu.Unlock()
	}
}

func (c *Coordinator) popHighestPriority() *job {
	for tier := 0; tier < priorityTierCount; tier++ {
		if len(c.queues[tier]) > 0 {
			j := c.queues[tier][0]
			c.queues[tier] = c.queues[tier][1:]
			c.queueLen--
			return j
		}
	}
	return nil
}

func (c *Coordinator) runJob(j *job) {
	if j == nil {
		return
	}
	ctx, cancel := context.WithTimeout(j.ctx, perJobTimeout)
	defer cancel()

	attempt := 0
	op := func() (*domain.RenderOutput, error) {
		attempt++
		out, err := c.pipeline.Render(ctx, j.req)
		if err == nil {
			return out, nil
		}
		if !isTransient(err) {
			return nil, backoff.Permanent(err)
		}
		c.sink.Publish(ports.RenderEvent{
			Kind: "job-retried", JobID: j.id, Username: j.req.Username,
			Fingerprint: j.req.Fingerprint, Attempt: attempt, Err: err,
		})
		return nil, err
	}

	expBackOff := backoff.NewExponentialBackOff()
	expBackOff.InitialInterval = retryInitialDelay

	out, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(expBackOff),
		backoff.WithMaxTries(maxAttempts),
	)

	c.mu.Lock()
	purged := j.purged
	delete(c.futures, j.key)
	delete(c.inFlightFP, j.req.Fingerprint)
	if err == nil {
		c.completed++
	} else {
		c.failed++
	}
	c.mu.Unlock()

	if purged {
		err = domain.ErrCacheCleared
	} else if errors.Is(err, context.DeadlineExceeded) {
		err = domain.ErrTimeout
	}

	if c.presence != nil {
		_ = c.presence.Clear(context.Background(), j.req.Fingerprint)
	}

	if err == nil {
		resolve(j.future, out, nil)
		c.sink.Publish(ports.RenderEvent{Kind: "job-completed", JobID: j.id, Username: j.req.Username, Fingerprint: j.req.Fingerprint, Attempt: attempt})
		return
	}

	resolve(j.future, nil, err)
	c.sink.Publish(ports.RenderEvent{Kind: "job-failed", JobID: j.id, Username: j.req.Username, Fingerprint: j.req.Fingerprint, Attempt: attempt, Err: err})
}

func resolve(f *future, out *domain.RenderOutput, err error) {
	f.output = out
	f.err = err
	close(f.done)
}

// isTransient classifies which errors the backoff retry loop should keep
// retrying (spec §7: "Transient ... eligible for retry"). Everything else
// — malformed requests, an open breaker, an explicit cache-clear — fails
// fast.
func isTransient(err error) bool {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrDependencyOpen),
		errors.Is(err, domain.ErrCacheCleared),
		errors.Is(err, domain.ErrInternal),
		errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

// Close stops every worker goroutine. Used by graceful shutdown after the
// 30s in-flight drain window (spec §5).
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cond.Broadcast()
}
