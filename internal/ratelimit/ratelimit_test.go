package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_LimitsPerKey(t *testing.T) {
	w := NewWindow(2, time.Minute)
	ctx := context.Background()

	assert.True(t, w.Allow(ctx, "a").Allowed)
	assert.True(t, w.Allow(ctx, "a").Allowed)

	d := w.Allow(ctx, "a")
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)

	assert.True(t, w.Allow(ctx, "b").Allowed, "keys are counted independently")
}

func TestWindow_ResetsAfterWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	w := NewWindow(1, time.Second)
	w.now = func() time.Time { return now }
	ctx := context.Background()

	require.True(t, w.Allow(ctx, "k").Allowed)
	require.False(t, w.Allow(ctx, "k").Allowed)

	now = now.Add(2 * time.Second)
	assert.True(t, w.Allow(ctx, "k").Allowed)
}

func TestWindow_ZeroLimitAllowsAll(t *testing.T) {
	w := NewWindow(0, time.Minute)
	for i := 0; i < 10; i++ {
		require.True(t, w.Allow(context.Background(), "k").Allowed)
	}
}

func TestRedis_FailsOpenWhenUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	rl := newRedis(client, 1, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow(context.Background(), "k").Allowed)
	}
}

func TestRedis_LimitsPerKey(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	rl, err := NewRedis(ctx, RedisConfig{Addr: addr}, 2, time.Minute, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rl.Close() })

	key := "test:" + uuid.NewString()

	assert.True(t, rl.Allow(ctx, key).Allowed)
	assert.True(t, rl.Allow(ctx, key).Allowed)

	d := rl.Allow(ctx, key)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
}

func TestRedis_WithLimitKeepsOwnBudget(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	base, err := NewRedis(ctx, RedisConfig{Addr: addr}, 5, time.Minute, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = base.Close() })

	writes := base.WithLimit("writes", 1, time.Minute)
	key := "test:" + uuid.NewString()

	assert.True(t, writes.Allow(ctx, key).Allowed)
	assert.False(t, writes.Allow(ctx, key).Allowed)

	// same key, separate key space
	assert.True(t, base.Allow(ctx, key).Allowed)
}
