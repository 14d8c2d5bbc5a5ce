package service

import (
	"context"
	"time"
)

// RateLimitPolicy is a fixed window budget.
type RateLimitPolicy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// RateLimitDecision is the outcome of a rate limit check.
type RateLimitDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// RateLimiter is the gate consulted before any credential check.
type RateLimiter interface {
	Allow(ctx context.Context, key string, policy RateLimitPolicy) (RateLimitDecision, error)
}
