// Package resilience provides reliability patterns for pipeline execution:
// a circuit breaker with per-operation counters, a sliding-window rate limit,
// a per-call timeout race, and optional fallbacks.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is open, no fallback
// is supplied, and calls are being rejected.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ErrRateLimited is returned when an operation exceeds its request window.
var ErrRateLimited = errors.New("rate limit exceeded")

// ErrTimeout is returned when a wrapped call does not resolve before the
// configured deadline. Timeouts count as failures toward the circuit threshold.
var ErrTimeout = errors.New("operation timed out")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

// Stats is a snapshot of one operation's counters.
type Stats struct {
	Requests    int
	Failures    int
	LastFailure time.Time
	LastReset   time.Time
}

type opCounters struct {
	requests    int
	failures    int
	lastFailure time.Time
	lastReset   time.Time
	windowStart time.Time
	windowCount int
}

// Settings configures a Breaker.
type Settings struct {
	MaxFailures int           // failures before the circuit opens
	ResetAfter  time.Duration // open duration before transitioning to half-open
	CallTimeout time.Duration // per-call deadline; 0 disables the timeout race
	MaxRequests int           // per-operation requests allowed per RateWindow; 0 disables
	RateWindow  time.Duration
}

// Fn is a call protected by the breaker. The context carries the call deadline.
type Fn func(ctx context.Context) error

// Breaker implements a circuit breaker for protecting the execution engine.
// Counters are tracked per named operation; the breaker state itself is a
// single process-wide machine, in memory only, reset on restart.
type Breaker struct {
	mu       sync.Mutex
	state    state
	failures int
	openedAt time.Time
	ops      map[string]*opCounters
	settings Settings
	now      func() time.Time // for testing
}

// NewBreaker creates a circuit breaker with the given settings.
func NewBreaker(s Settings) *Breaker {
	return &Breaker{
		ops:      make(map[string]*opCounters),
		settings: s,
		now:      time.Now,
	}
}

// Execute runs fn for the named operation if the rate window permits and the
// circuit is closed or half-open. Returns ErrCircuitOpen if the circuit is
// open, ErrRateLimited if the window is exhausted.
func (b *Breaker) Execute(ctx context.Context, operation string, fn Fn) error {
	return b.ExecuteWithFallback(ctx, operation, fn, nil)
}

// ExecuteWithFallback behaves like Execute, but when the circuit is open and
// a fallback is supplied, the call is redirected to the fallback instead of
// failing with ErrCircuitOpen. The fallback runs outside the breaker's
// counters; its failures do not trip the circuit.
func (b *Breaker) ExecuteWithFallback(ctx context.Context, operation string, fn, fallback Fn) error {
	if err := b.allowRate(operation); err != nil {
		slog.Warn("request rejected by rate window", "operation", operation)
		return err
	}

	if !b.allowRequest() {
		if fallback != nil {
			slog.Info("circuit open, using fallback", "operation", operation)
			return fallback(ctx)
		}
		return fmt.Errorf("%w: %s", ErrCircuitOpen, operation)
	}

	err := b.call(ctx, operation, fn)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.onFailure(operation)
		slog.Error("protected call failed", "operation", operation, "error", err)
		return err
	}

	b.onSuccess(operation)
	return nil
}

// Stats returns a snapshot of the named operation's counters.
func (b *Breaker) Stats(operation string) Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.ops[operation]
	if c == nil {
		return Stats{}
	}
	return Stats{
		Requests:    c.requests,
		Failures:    c.failures,
		LastFailure: c.lastFailure,
		LastReset:   c.lastReset,
	}
}

// IsOpen reports whether the circuit is currently open.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == stateOpen
}

// call races fn against the configured call timeout. A timeout is reported
// as ErrTimeout; the underlying call keeps the canceled context and is
// expected to abort on its own.
func (b *Breaker) call(ctx context.Context, operation string, fn Fn) error {
	if b.settings.CallTimeout <= 0 {
		return fn(ctx)
	}

	callCtx, cancel := context.WithTimeout(ctx, b.settings.CallTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(callCtx) }()

	select {
	case err := <-done:
		return err
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s after %s", ErrTimeout, operation, b.settings.CallTimeout)
		}
		return callCtx.Err()
	}
}

// allowRate enforces the per-operation sliding request window.
func (b *Breaker) allowRate(operation string) error {
	if b.settings.MaxRequests <= 0 {
		b.mu.Lock()
		b.counters(operation).requests++
		b.mu.Unlock()
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	c := b.counters(operation)
	if now.Sub(c.windowStart) >= b.settings.RateWindow {
		c.windowStart = now
		c.windowCount = 0
	}
	if c.windowCount >= b.settings.MaxRequests {
		return fmt.Errorf("%w: %s", ErrRateLimited, operation)
	}
	c.windowCount++
	c.requests++
	return nil
}

func (b *Breaker) allowRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return true
	case stateOpen:
		if b.now().Sub(b.openedAt) >= b.settings.ResetAfter {
			b.state = stateHalfOpen
			return true
		}
		return false
	case stateHalfOpen:
		return true
	}
	return false
}

// counters must be called with b.mu held.
func (b *Breaker) counters(operation string) *opCounters {
	c, ok := b.ops[operation]
	if !ok {
		c = &opCounters{lastReset: b.now(), windowStart: b.now()}
		b.ops[operation] = c
	}
	return c
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure(operation string) {
	c := b.counters(operation)
	c.failures++
	c.lastFailure = b.now()

	b.failures++
	if b.state == stateHalfOpen || b.failures >= b.settings.MaxFailures {
		b.state = stateOpen
		b.openedAt = b.now()
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess(operation string) {
	c := b.counters(operation)
	c.failures = 0
	c.lastReset = b.now()

	b.failures = 0
	b.state = stateClosed
}
