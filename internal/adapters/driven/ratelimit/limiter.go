// Package ratelimit throttles calls to external AI services.
// It wraps embedding and LLM adapters so every caller shares one token bucket
// per service, and backs off globally after the service reports a rate limit.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DefaultBackoff is how long callers pause after a rate-limit response.
const DefaultBackoff = 2 * time.Second

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerSecond is the sustained rate.
	RequestsPerSecond float64

	// Burst is the maximum burst size (default: 1).
	Burst int

	// Backoff is the pause after a rate-limit error (default: 2s).
	Backoff time.Duration
}

// Limiter is a token bucket with a shared backoff window.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	backoff time.Duration
}

// NewLimiter creates a limiter. A non-positive rate disables throttling
// but keeps the backoff behaviour.
func NewLimiter(cfg Config) *Limiter {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Limiter{
		limiter: rate.NewLimiter(limit, cfg.Burst),
		backoff: cfg.Backoff,
	}
}

// Wait blocks until a request may be made, honouring any active backoff.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return l.limiter.Wait(ctx)
}

// Observe starts a backoff window when err reports a rate limit.
func (l *Limiter) Observe(err error) {
	if !errors.Is(err, domain.ErrRateLimited) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.retryAt = time.Now().Add(l.backoff)
}

// BackingOff reports whether a backoff window is active.
func (l *Limiter) BackingOff() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return time.Now().Before(l.retryAt)
}
