package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTest = errors.New("service unavailable")

func testSettings() Settings {
	return Settings{
		MaxFailures: 2,
		ResetAfter:  time.Second,
	}
}

func TestClosedStateAllowsCalls(t *testing.T) {
	b := NewBreaker(testSettings())
	called := false
	err := b.Execute(context.Background(), "op", func(context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}
}

func TestOpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(testSettings())

	for i := 0; i < 2; i++ {
		_ = b.Execute(context.Background(), "op", func(context.Context) error { return errTest })
	}

	err := b.Execute(context.Background(), "op", func(context.Context) error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if !b.IsOpen() {
		t.Fatal("expected circuit open")
	}
}

func TestTransitionsToHalfOpenAfterTimeout(t *testing.T) {
	now := time.Now()
	b := NewBreaker(testSettings())
	b.now = func() time.Time { return now }

	// Trip the breaker
	for i := 0; i < 2; i++ {
		_ = b.Execute(context.Background(), "op", func(context.Context) error { return errTest })
	}

	// Still open
	err := b.Execute(context.Background(), "op", func(context.Context) error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	// Advance past timeout
	now = now.Add(2 * time.Second)

	// Half-open now, one probe call allowed
	called := false
	err = b.Execute(context.Background(), "op", func(context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error in half-open, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called in half-open")
	}

	// Success should close the circuit
	b.mu.Lock()
	if b.state != stateClosed {
		t.Fatalf("expected state closed after half-open success, got %d", b.state)
	}
	b.mu.Unlock()
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(testSettings())
	b.now = func() time.Time { return now }

	// Trip the breaker
	for i := 0; i < 2; i++ {
		_ = b.Execute(context.Background(), "op", func(context.Context) error { return errTest })
	}

	// Advance past timeout to reach half-open
	now = now.Add(2 * time.Second)

	// Failing the probe reopens the breaker
	_ = b.Execute(context.Background(), "op", func(context.Context) error { return errTest })

	b.mu.Lock()
	if b.state != stateOpen {
		t.Fatalf("expected state open after half-open failure, got %d", b.state)
	}
	b.mu.Unlock()
}

func TestFallbackWhenOpen(t *testing.T) {
	b := NewBreaker(testSettings())
	for i := 0; i < 2; i++ {
		_ = b.Execute(context.Background(), "op", func(context.Context) error { return errTest })
	}

	fellBack := false
	err := b.ExecuteWithFallback(context.Background(), "op",
		func(context.Context) error { return nil },
		func(context.Context) error {
			fellBack = true
			return nil
		})
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if !fellBack {
		t.Fatal("expected fallback to be called")
	}
}

func TestRateWindowRejects(t *testing.T) {
	now := time.Now()
	s := testSettings()
	s.MaxRequests = 2
	s.RateWindow = time.Minute
	b := NewBreaker(s)
	b.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if err := b.Execute(context.Background(), "op", func(context.Context) error { return nil }); err != nil {
			t.Fatalf("call %d: unexpected error %v", i, err)
		}
	}

	err := b.Execute(context.Background(), "op", func(context.Context) error { return nil })
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// Other operations keep their own windows.
	if err := b.Execute(context.Background(), "other", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error for other op: %v", err)
	}

	// A new window admits requests again.
	now = now.Add(2 * time.Minute)
	if err := b.Execute(context.Background(), "op", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("expected new window to admit, got %v", err)
	}
}

func TestCallTimeoutCountsAsFailure(t *testing.T) {
	s := testSettings()
	s.CallTimeout = 20 * time.Millisecond
	b := NewBreaker(s)

	err := b.Execute(context.Background(), "slow", func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}

	stats := b.Stats("slow")
	if stats.Failures != 1 {
		t.Fatalf("expected 1 failure, got %d", stats.Failures)
	}
}

func TestStatsPerOperation(t *testing.T) {
	b := NewBreaker(Settings{MaxFailures: 10, ResetAfter: time.Second})

	_ = b.Execute(context.Background(), "a", func(context.Context) error { return nil })
	_ = b.Execute(context.Background(), "a", func(context.Context) error { return errTest })
	_ = b.Execute(context.Background(), "b", func(context.Context) error { return nil })

	a := b.Stats("a")
	if a.Requests != 2 || a.Failures != 1 {
		t.Fatalf("op a: expected 2 requests / 1 failure, got %d / %d", a.Requests, a.Failures)
	}
	bStats := b.Stats("b")
	if bStats.Requests != 1 || bStats.Failures != 0 {
		t.Fatalf("op b: expected 1 request / 0 failures, got %d / %d", bStats.Requests, bStats.Failures)
	}
}
