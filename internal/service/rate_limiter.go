package service

import (
	"context"
	"strings"
	"sync"
	"time"
)

// RateDecision es el resultado de consultar el limitador.
type RateDecision struct {
	Allowed    bool
	RetryAfter time.Duration
	ResetAt    time.Time
}

// RateLimiter limita solicitudes por clave con ventana deslizante. Cada
// flujo usa su propia instancia, asi los contadores son independientes.
type RateLimiter interface {
	Check(ctx context.Context, key string) (RateDecision, error)
}

type slidingWindowLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[string][]time.Time
	now    func() time.Time
}

// NewSlidingWindowLimiter crea un rate limiter en memoria.
func NewSlidingWindowLimiter(window time.Duration, max int) RateLimiter {
	return newSlidingWindowLimiter(window, max, func() time.Time { return time.Now().UTC() })
}

func newSlidingWindowLimiter(window time.Duration, max int, now func() time.Time) *slidingWindowLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Hour
	}
	return &slidingWindowLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
		now:    now,
	}
}

func (l *slidingWindowLimiter) Check(_ context.Context, key string) (RateDecision, error) {
	key = strings.ToLower(strings.TrimSpace(key))

	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if key == "" {
		return RateDecision{Allowed: false, RetryAfter: l.window, ResetAt: now.Add(l.window)}, nil
	}

	cutoff := now.Add(-l.window)
	entries := l.hits[key]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.hits[key] = kept
		resetAt := kept[0].Add(l.window)
		return RateDecision{Allowed: false, RetryAfter: resetAt.Sub(now), ResetAt: resetAt}, nil
	}
	kept = append(kept, now)
	l.hits[key] = kept
	return RateDecision{Allowed: true, ResetAt: kept[0].Add(l.window)}, nil
}
