package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter checks whether a request should be allowed based on the
// caller's identity.
type RateLimiter interface {
	Allow(ctx context.Context, identity *Identity) error
}

// TierConfig holds rate limit settings for a service tier.
type TierConfig struct {
	RequestsPerWindow int
}

// InProcessLimiter is a sliding-window rate limiter that tracks request
// timestamps per subject in memory. The window is fixed; the budget is
// per tier with a default for unknown tiers.
type InProcessLimiter struct {
	tiers      map[string]TierConfig
	defaultMax int
	window     time.Duration
	mu         sync.Mutex
	requests   map[string][]time.Time
}

// NewInProcessLimiter creates a rate limiter with per-tier configuration.
// A window of 0 defaults to one minute.
func NewInProcessLimiter(tiers map[string]TierConfig, defaultMax int, window time.Duration) *InProcessLimiter {
	if window == 0 {
		window = time.Minute
	}
	return &InProcessLimiter{
		tiers:      tiers,
		defaultMax: defaultMax,
		window:     window,
		requests:   make(map[string][]time.Time),
	}
}

// Allow checks if the request is within the rate limit. The returned
// error message is suitable for a detail response body and wraps
// ErrTooManyRequests. Fails open: a nil identity allows the request.
func (l *InProcessLimiter) Allow(_ context.Context, identity *Identity) error {
	if identity == nil {
		return nil
	}

	tier := identity.ServiceTier
	if tier == "" {
		tier = "default"
	}

	max := l.defaultMax
	if tc, ok := l.tiers[tier]; ok {
		max = tc.RequestsPerWindow
	}

	if max <= 0 {
		return nil // no limit
	}

	key := identity.Subject + ":" + tier

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)

	// Drop timestamps that fell out of the window.
	recent := l.requests[key][:0]
	for _, ts := range l.requests[key] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= max {
		l.requests[key] = recent
		return &limitError{msg: fmt.Sprintf("Rate limit exceeded. Maximum %d requests per %d seconds.",
			max, int(l.window.Seconds()))}
	}

	l.requests[key] = append(recent, now)
	return nil
}

// limitError carries the user-facing rejection message while still
// matching errors.Is(err, ErrTooManyRequests).
type limitError struct {
	msg string
}

func (e *limitError) Error() string { return e.msg }

func (e *limitError) Unwrap() error { return ErrTooManyRequests }
