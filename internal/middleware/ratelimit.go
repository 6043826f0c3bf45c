package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Strob0t/DeskForge/internal/config"
)

// RateLimiter enforces a per-client token bucket at the HTTP edge, in front
// of the per-operation circuit breaker that guards the oracle and store.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*tokenBucket

	rate       float64 // sustained tokens per second
	burst      float64
	maxClients int
}

type tokenBucket struct {
	tokens   float64
	refilled time.Time
	lastSeen time.Time
}

// NewRateLimiter builds a limiter from the Rate config. A zero MaxClients
// falls back to the config default.
func NewRateLimiter(cfg config.Rate) *RateLimiter {
	maxClients := cfg.MaxClients
	if maxClients <= 0 {
		maxClients = 100000
	}
	return &RateLimiter{
		clients:    make(map[string]*tokenBucket),
		rate:       cfg.RequestsPerSecond,
		burst:      float64(cfg.Burst),
		maxClients: maxClients,
	}
}

// Handler returns middleware that rejects requests over the per-client rate
// with 429 and standard rate-limit headers.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, retryAfter, allowed := rl.take(clientAddr(r))

		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(time.Duration(math.Ceil(retryAfter))*time.Second).Unix()))

		if !allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", math.Ceil(retryAfter)))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// take consumes one token for the client. Returns whole tokens left, seconds
// until the next token, and whether the request may proceed.
func (rl *RateLimiter) take(addr string) (remaining int, retryAfter float64, allowed bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, known := rl.clients[addr]
	if !known {
		// Refuse new clients at capacity; tracked ones keep working.
		if len(rl.clients) >= rl.maxClients {
			return 0, 1.0 / rl.rate, false
		}
		b = &tokenBucket{tokens: rl.burst - 1, refilled: now, lastSeen: now}
		rl.clients[addr] = b
		return int(b.tokens), 0, true
	}

	b.tokens = math.Min(rl.burst, b.tokens+now.Sub(b.refilled).Seconds()*rl.rate)
	b.refilled = now
	b.lastSeen = now

	if b.tokens < 1 {
		return 0, (1 - b.tokens) / rl.rate, false
	}
	b.tokens--
	return int(b.tokens), 0, true
}

// StartCleanup spawns a goroutine that evicts buckets idle longer than
// maxIdle every interval. Returns a stop function.
func (rl *RateLimiter) StartCleanup(interval, maxIdle time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.evictIdle(maxIdle)
			}
		}
	}()
	return cancel
}

func (rl *RateLimiter) evictIdle(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := time.Now().Add(-maxIdle)
	for addr, b := range rl.clients {
		if b.lastSeen.Before(cutoff) {
			delete(rl.clients, addr)
		}
	}
}

// Len returns the number of tracked clients (for metrics and testing).
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// clientAddr keys buckets by RemoteAddr only. Forwarding headers are not
// trusted here because a spoofed header would bypass the limit.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
