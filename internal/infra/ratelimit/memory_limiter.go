package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"referral/internal/domain/service"
)

// MemoryLimiter is a per-process token bucket used when redis is absent.
// Each key refills Limit tokens per Window with a burst of Limit.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	now     func() time.Time
	maxKeys int
}

const defaultMaxKeys = 100_000

// NewMemoryLimiter is the constructor for MemoryLimiter.
func NewMemoryLimiter(now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}

	return &MemoryLimiter{buckets: make(map[string]*rate.Limiter), now: now, maxKeys: defaultMaxKeys}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, policy service.RateLimitPolicy) (service.RateLimitDecision, error) {
	policy = normalizePolicy(policy)
	bucketKey := policy.Name + ":" + key
	now := l.now()

	l.mu.Lock()
	limiter, ok := l.buckets[bucketKey]
	if !ok {
		if len(l.buckets) >= l.maxKeys {
			// Dropping everything is coarse but bounds memory under key floods.
			l.buckets = make(map[string]*rate.Limiter)
		}
		every := policy.Window / time.Duration(policy.Limit)
		limiter = rate.NewLimiter(rate.Every(every), policy.Limit)
		l.buckets[bucketKey] = limiter
	}
	l.mu.Unlock()

	reservation := limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)

		return service.RateLimitDecision{
			Allowed:    false,
			Limit:      policy.Limit,
			Remaining:  0,
			RetryAfter: delay,
			ResetAt:    now.Add(delay),
		}, nil
	}

	remaining := int(limiter.TokensAt(now))

	return service.RateLimitDecision{
		Allowed:   true,
		Limit:     policy.Limit,
		Remaining: max(remaining, 0),
		ResetAt:   now.Add(policy.Window),
	}, nil
}
