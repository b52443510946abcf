package resilience

import (
	"errors"
	"testing"
	"time"
)

var errDependency = errors.New("dependency down")

func failingCall(calls *int) func() error {
	return func() error {
		*calls++
		return errDependency
	}
}

func TestBreakerPassesThroughWhileClosed(t *testing.T) {
	b := NewBreaker("test", 3, time.Minute)

	calls := 0
	if err := b.Do(func() error { calls++; return nil }); err != nil {
		t.Fatalf("Do returned %v for a successful call", err)
	}
	if err := b.Do(failingCall(&calls)); !errors.Is(err, errDependency) {
		t.Fatalf("Do returned %v, want the call's own error", err)
	}
	if calls != 2 {
		t.Errorf("fn invoked %d times, want 2", calls)
	}
	if b.Open() {
		t.Error("breaker open after a single failure below threshold")
	}
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewBreaker("test", 3, time.Minute)

	calls := 0
	for i := 0; i < 3; i++ {
		b.Do(failingCall(&calls))
	}
	if !b.Open() {
		t.Fatal("breaker still closed after threshold consecutive failures")
	}

	// Further calls fail fast without invoking fn.
	err := b.Do(failingCall(&calls))
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("Do returned %v while open, want ErrOpen", err)
	}
	if calls != 3 {
		t.Errorf("fn invoked %d times, want 3 (fast-fail must not call fn)", calls)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker("test", 3, time.Minute)

	calls := 0
	b.Do(failingCall(&calls))
	b.Do(failingCall(&calls))
	b.Do(func() error { return nil })
	b.Do(failingCall(&calls))
	b.Do(failingCall(&calls))

	if b.Open() {
		t.Error("breaker opened although failures were never consecutive past the threshold")
	}
}

func TestBreakerProbeClosesCircuit(t *testing.T) {
	b := NewBreaker("test", 2, 30*time.Millisecond)

	calls := 0
	b.Do(failingCall(&calls))
	b.Do(failingCall(&calls))
	if !b.Open() {
		t.Fatal("breaker not open after threshold failures")
	}

	time.Sleep(50 * time.Millisecond)

	// First call after the cooldown is the probe; it succeeds and closes
	// the circuit.
	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("probe call returned %v", err)
	}
	if b.Open() {
		t.Error("breaker still open after successful probe")
	}
	if err := b.Do(func() error { return nil }); err != nil {
		t.Errorf("call after recovery returned %v", err)
	}
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	b := NewBreaker("test", 2, 30*time.Millisecond)

	calls := 0
	b.Do(failingCall(&calls))
	b.Do(failingCall(&calls))

	time.Sleep(50 * time.Millisecond)

	if err := b.Do(failingCall(&calls)); !errors.Is(err, errDependency) {
		t.Fatalf("probe returned %v, want the call's own error", err)
	}
	if calls != 3 {
		t.Fatalf("fn invoked %d times, want 3", calls)
	}

	// The failed probe re-opens the circuit for another cooldown.
	if err := b.Do(failingCall(&calls)); !errors.Is(err, ErrOpen) {
		t.Fatalf("Do returned %v right after failed probe, want ErrOpen", err)
	}
	if calls != 3 {
		t.Errorf("fn invoked %d times after failed probe, want 3", calls)
	}
}

func TestBreakerDefaults(t *testing.T) {
	b := NewBreaker("test", 0, 0)
	if b.threshold != 5 {
		t.Errorf("default threshold = %d, want 5", b.threshold)
	}
	if b.cooldown != 30*time.Second {
		t.Errorf("default cooldown = %v, want 30s", b.cooldown)
	}
}
