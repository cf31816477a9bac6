package domain

import "errors"

// Error kinds from spec §7. These are sentinel errors, not an exhaustive
// type hierarchy — callers use errors.Is, matching the teacher's
// domain-error-as-sentinel style.
var (
	// ErrNotFound: username unknown. Surfaced as 404.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRequest: malformed type or username. Surfaced as 400.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrTransient: upstream network or disk error eligible for retry.
	// Hidden from the client unless retries exhaust.
	ErrTransient = errors.New("transient upstream error")

	// ErrOverloaded: queue full and no fallback available. 503 with
	// Retry-After.
	ErrOverloaded = errors.New("render queue overloaded")

	// ErrTimeout: per-job or per-request deadline exceeded. 504.
	ErrTimeout = errors.New("render timed out")

	// ErrDependencyOpen: circuit breaker OPEN for object store or CDN. 503.
	ErrDependencyOpen = errors.New("dependency circuit open")

	// ErrInternal: programmer-facing invariant violation. 500.
	ErrInternal = errors.New("internal invariant violation")

	// ErrCacheCleared: a render's waiters are notified with this when an
	// admin purge cancels the in-flight job (design notes §9, Q3).
	ErrCacheCleared = errors.New("cache cleared, render cancelled")
)
