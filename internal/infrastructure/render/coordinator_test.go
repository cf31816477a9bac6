package render

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/spritestack/avatar-render/internal/core/domain"
	"github.com/spritestack/avatar-render/internal/core/ports"
)

type fakePipeline struct {
	mu       sync.Mutex
	calls    int32
	delay    time.Duration
	err      error
	failN    int32 // fail this many times before succeeding
	blockCh  chan struct{}
}

func (f *fakePipeline) Render(ctx context.Context, req ports.RenderRequest) (*domain.RenderOutput, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if f.blockCh != nil {
		select {
		case <-f.blockCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil && n <= f.failN {
		return nil, f.err
	}
	return &domain.RenderOutput{Fingerprint: req.Fingerprint, AvatarWebP: []byte("ok")}, nil
}

func newTestCoordinator(p ports.RenderPipeline, opts ...Option) *Coordinator {
	sink := NewEventSink(prometheus.NewRegistry())
	return New(p, sink, zerolog.Nop(), opts...)
}

func TestCoordinator_SubmitSucceeds(t *testing.T) {
	c := newTestCoordinator(&fakePipeline{})
	defer c.Close()

	out, err := c.Submit(context.Background(), ports.RenderRequest{Username: "alice", Fingerprint: 1})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if string(out.AvatarWebP) != "ok" {
		t.Fatalf("unexpected output")
	}
}

func TestCoordinator_DedupsConcurrentCallers(t *testing.T) {
	block := make(chan struct{})
	p := &fakePipeline{blockCh: block}
	c := newTestCoordinator(p)
	defer c.Close()

	const n = 10
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Submit(context.Background(), ports.RenderRequest{Username: "bob", Fingerprint: 2})
			results[i] = err
		}(i)
	}

	time.Sleep(50 * time.Millisecond) // let all callers enqueue/attach
	close(block)
	wg.Wait()

	for i, err := range results {
		if err != nil {
			t.Fatalf("caller %d: unexpected error %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&p.calls); got != 1 {
		t.Fatalf("expected exactly one pipeline call for a deduped key, got %d", got)
	}
}

func TestCoordinator_OverloadedWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	p := &fakePipeline{blockCh: block}
	defer close(block)
	c := newTestCoordinator(p, WithCapacity(1), WithWorkers(1))
	defer c.Close()

	// First submit occupies the single worker; it never returns until we
	// close(block), so it stays "active" not "queued" — fill the queue
	// with a second, distinct key instead.
	go c.Submit(context.Background(), ports.RenderRequest{Username: "u1", Fingerprint: 1})
	time.Sleep(20 * time.Millisecond)

	go c.Submit(context.Background(), ports.RenderRequest{Username: "u2", Fingerprint: 2})
	time.Sleep(20 * time.Millisecond)

	_, err := c.Submit(context.Background(), ports.RenderRequest{Username: "u3", Fingerprint: 3})
	if !errors.Is(err, domain.ErrOverloaded) {
		t.Fatalf("expected ErrOverloaded, got %v", err)
	}
}

func TestCoordinator_RetriesTransientFailureThenSucceeds(t *testing.T) {
	p := &fakePipeline{err: errors.New("boom"), failN: 2}
	c := newTestCoordinator(p)
	defer c.Close()

	out, err := c.Submit(context.Background(), ports.RenderRequest{Username: "carol", Fingerprint: 3})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if out == nil {
		t.Fatalf("expected output")
	}
	if got := atomic.LoadInt32(&p.calls); got != 3 {
		t.Fatalf("expected 3 attempts (2 failures + success), got %d", got)
	}
}

func TestCoordinator_PermanentErrorFailsFast(t *testing.T) {
	p := &fakePipeline{err: domain.ErrInvalidRequest, failN: 100}
	c := newTestCoordinator(p)
	defer c.Close()

	_, err := c.Submit(context.Background(), ports.RenderRequest{Username: "dave", Fingerprint: 4})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if got := atomic.LoadInt32(&p.calls); got != 1 {
		t.Fatalf("expected exactly one attempt for a permanent error, got %d", got)
	}
}

func TestCoordinator_PurgeCancelsQueuedJobs(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	p := &fakePipeline{blockCh: block}
	c := newTestCoordinator(p, WithWorkers(1))
	defer c.Close()

	go c.Submit(context.Background(), ports.RenderRequest{Username: "occupy", Fingerprint: 1})
	time.Sleep(20 * time.Millisecond)

	resultCh := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), ports.RenderRequest{Username: "queued", Fingerprint: 2})
		resultCh <- err
	}()
	time.Sleep(20 * time.Millisecond)

	c.Purge()

	select {
	case err := <-resultCh:
		if !errors.Is(err, domain.ErrCacheCleared) {
			t.Fatalf("expected ErrCacheCleared, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for purged job to resolve")
	}
}

func TestCoordinator_InFlightReportsActiveFingerprint(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	p := &fakePipeline{blockCh: block}
	c := newTestCoordinator(p)
	defer c.Close()

	if c.InFlight(5) {
		t.Fatalf("expected not in-flight before submit")
	}
	go c.Submit(context.Background(), ports.RenderRequest{Username: "eve", Fingerprint: 5})
	time.Sleep(20 * time.Millisecond)
	if !c.InFlight(5) {
		t.Fatalf("expected in-flight while running")
	}
}

func TestCoordinator_PauseStopsNewWork(t *testing.T) {
	p := &fakePipeline{}
	c := newTestCoordinator(p, WithWorkers(1))
	defer c.Close()

	c.Pause()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := c.Submit(ctx, ports.RenderRequest{Username: "frank", Fingerprint: 6})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the paused queue to never resolve within the deadline, got %v", err)
	}
	if got := atomic.LoadInt32(&p.calls); got != 0 {
		t.Fatalf("expected no pipeline calls while paused, got %d", got)
	}

	c.Resume()
	out, err := c.Submit(context.Background(), ports.RenderRequest{Username: "frank", Fingerprint: 6})
	if err != nil {
		t.Fatalf("submit after resume: %v", err)
	}
	if out == nil {
		t.Fatalf("expected output after resume")
	}
}
