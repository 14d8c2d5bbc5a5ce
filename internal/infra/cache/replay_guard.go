package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"referral/internal/domain/service"
)

const replayKeyPrefix = "portal:jti:"

// NewReplayGuard picks the redis guard when a client is available.
func NewReplayGuard(client *redis.Client) service.ReplayGuard {
	if client == nil {
		return NewMemoryReplayGuard(time.Now)
	}

	return NewRedisReplayGuard(client, time.Now)
}

type redisReplayGuard struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisReplayGuard records consumed ids with SET NX and a TTL lasting until
// the credential is no longer accepted.
func NewRedisReplayGuard(client redis.UniversalClient, now func() time.Time) service.ReplayGuard {
	return &redisReplayGuard{client: client, now: now}
}

func (g *redisReplayGuard) Consume(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(g.now())
	if ttl <= 0 {
		ttl = time.Second
	}

	ok, err := g.client.SetNX(ctx, replayKeyPrefix+id, 1, ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis setnx")
	}

	return ok, nil
}

type memoryReplayGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

// NewMemoryReplayGuard keeps consumed ids in process. Suitable for single
// instance deployments and tests.
func NewMemoryReplayGuard(now func() time.Time) service.ReplayGuard {
	return &memoryReplayGuard{seen: make(map[string]time.Time), now: now}
}

func (g *memoryReplayGuard) Consume(_ context.Context, id string, expiresAt time.Time) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for key, until := range g.seen {
		if !now.Before(until) {
			delete(g.seen, key)
		}
	}

	if _, used := g.seen[id]; used {
		return false, nil
	}
	g.seen[id] = expiresAt

	return true, nil
}
