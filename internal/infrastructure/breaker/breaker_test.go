package breaker

import (
	"testing"
	"time"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := New(3, time.Minute)

	for i := 0; i < 2; i++ {
		if !b.Allow() {
			t.Fatalf("expected closed breaker to allow call %d", i)
		}
		b.Failure()
	}
	if b.String() != StateClosed {
		t.Fatalf("expected still closed after 2/3 failures, got %s", b.String())
	}

	if !b.Allow() {
		t.Fatalf("expected closed breaker to allow the third call")
	}
	b.Failure()
	if b.String() != StateOpen {
		t.Fatalf("expected open after 3rd consecutive failure, got %s", b.String())
	}
	if b.Allow() {
		t.Fatalf("expected open breaker to reject")
	}
}

func TestBreaker_HalfOpenProbeSuccessCloses(t *testing.T) {
	b := New(1, 10*time.Millisecond)
	b.Allow()
	b.Failure()
	if b.String() != StateOpen {
		t.Fatalf("expected open, got %s", b.String())
	}

	time.Sleep(20 * time.Millisecond)

	if !b.Allow() {
		t.Fatalf("expected cooldown to elapse and admit a probe")
	}
	if b.String() != StateHalfOpen {
		t.Fatalf("expected half_open while probe is in flight, got %s", b.String())
	}
	b.Success()
	if b.String() != StateClosed {
		t.Fatalf("expected closed after successful probe, got %s", b.String())
	}
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	b := New(1, 10*time.Millisecond)
	b.Allow()
	b.Failure()
	time.Sleep(20 * time.Millisecond)

	if !b.Allow() {
		t.Fatalf("expected probe to be admitted")
	}
	b.Failure()
	if b.String() != StateOpen {
		t.Fatalf("expected reopened after failed probe, got %s", b.String())
	}
}

func TestBreaker_OnlyOneProbeAtATime(t *testing.T) {
	b := New(1, 10*time.Millisecond)
	b.Allow()
	b.Failure()
	time.Sleep(20 * time.Millisecond)

	if !b.Allow() {
		t.Fatalf("first caller should claim the probe slot")
	}
	if b.Allow() {
		t.Fatalf("second caller should be rejected while a probe is in flight")
	}
}
