package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisReplayGuard(t *testing.T) {
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Now()
	guard := NewRedisReplayGuard(client, func() time.Time { return now })
	ctx := context.Background()

	first, err := guard.Consume(ctx, "jti-1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, first)

	second, err := guard.Consume(ctx, "jti-1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, second)

	other, err := guard.Consume(ctx, "jti-2", now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, other)

	m.FastForward(2 * time.Minute)
	again, err := guard.Consume(ctx, "jti-1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, again)
}

func TestRedisReplayGuard_BackendError(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 20 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })

	guard := NewRedisReplayGuard(client, time.Now)
	_, err := guard.Consume(context.Background(), "jti", time.Now().Add(time.Minute))
	assert.Error(t, err)
}

func TestMemoryReplayGuard(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	guard := NewMemoryReplayGuard(func() time.Time { return now })
	ctx := context.Background()

	ok, err := guard.Consume(ctx, "jti-1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = guard.Consume(ctx, "jti-1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, err = guard.Consume(ctx, "jti-1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewReplayGuard_FallsBackToMemory(t *testing.T) {
	_, isMemory := NewReplayGuard(nil).(*memoryReplayGuard)
	assert.True(t, isMemory)
}
