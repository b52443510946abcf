// Package resilience provides the fault-tolerance primitives used around
// the service's external dependencies.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by Do while the breaker is rejecting calls.
var ErrOpen = errors.New("circuit open")

// Breaker is a consecutive-failure circuit breaker. Once threshold calls in
// a row have failed it rejects further calls for the cooldown period, then
// admits a single probe; the probe's outcome decides whether the circuit
// closes again or stays open for another cooldown.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	failures int
	openedAt time.Time
	probing  bool

	logger *slog.Logger
}

// NewBreaker creates a Breaker. Non-positive threshold or cooldown fall back
// to 5 consecutive failures and a 30 second cooldown.
func NewBreaker(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		logger:    slog.Default().With("component", "breaker", "name", name),
	}
}

// Do runs fn unless the circuit is open, in which case it fails fast with an
// error wrapping ErrOpen and fn is never invoked. The error returned by fn
// is passed through unchanged.
func (b *Breaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

// Open reports whether calls are currently being rejected.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures < b.threshold {
		return false
	}
	return b.probing || time.Since(b.openedAt) < b.cooldown
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return nil
	}
	if b.probing || time.Since(b.openedAt) < b.cooldown {
		return fmt.Errorf("%w: %s", ErrOpen, b.name)
	}

	// Cooldown elapsed: let exactly one probe through.
	b.probing = true
	b.logger.Info("circuit half-open, probing", "after", b.cooldown)
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wasOpen := b.failures >= b.threshold
	b.probing = false

	if err == nil {
		if wasOpen {
			b.logger.Info("circuit closed, dependency recovered")
		}
		b.failures = 0
		return
	}

	b.failures++
	b.openedAt = time.Now()
	if !wasOpen && b.failures >= b.threshold {
		b.logger.Warn("circuit opened",
			"consecutive_failures", b.failures,
			"cooldown", b.cooldown,
		)
	}
}
