// Package breaker implements the three-state circuit breaker
// described in spec §7: CLOSED -> OPEN after a consecutive-failure
// threshold, OPEN rejects for a cooldown window, HALF_OPEN admits exactly
// one probe. No third-party circuit breaker library appears anywhere in
// the retrieval pack (see DESIGN.md), so this is a small stdlib
// implementation guarded by a mutex, in the spirit of the teacher's
// small, single-purpose infrastructure types (e.g. redis.DedupChecker).
package breaker

import (
	"sync"
	"time"
)

type state int

const (
	closed state = iota
	open
	halfOpen
)

// Breaker guards calls to a single upstream dependency.
type Breaker struct {
	mu sync.Mutex

	threshold int
	cooldown  time.Duration

	st          state
	failures    int
	openedAt    time.Time
	probeInFlight bool
}

// New creates a Breaker that opens after threshold consecutive failures and
// stays open for cooldown before allowing a single probe call.
func New(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	return &Breaker{threshold: threshold, cooldown: cooldown}
}

// Allow reports whether a call may proceed right now. When it returns true
// for a HALF_OPEN breaker, the caller has claimed the single probe slot and
// must call Success or Failure exactly once.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.st {
	case closed:
		return true
	case open:
		if time.Since(b.openedAt) < b.cooldown {
			return false
		}
		b.st = halfOpen
		b.probeInFlight = true
		return true
	case halfOpen:
		return false // a probe is already in flight
	default:
		return true
	}
}

// Success records a successful call and closes the breaker.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.st = closed
	b.probeInFlight = false
}

// Failure records a failed call, opening the breaker once the consecutive
// failure threshold is reached (or immediately, if the failing call was the
// HALF_OPEN probe).
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.st == halfOpen {
		b.st = open
		b.openedAt = time.Now()
		b.probeInFlight = false
		return
	}

	b.failures++
	if b.failures >= b.threshold {
		b.st = open
		b.openedAt = time.Now()
	}
}

// State names returned by String, exported for the circuit-breaker gauge
// poller in cmd/renderd.
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half_open"
)

func (b *Breaker) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.st {
	case open:
		return StateOpen
	case halfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
