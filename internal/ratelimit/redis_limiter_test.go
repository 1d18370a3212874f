package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLimiter(t *testing.T, now time.Time) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter := NewRedisLimiter(client, zap.NewNop())
	limiter.now = func() time.Time { return now }
	return limiter, mr
}

func TestAllowWithinLimit(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 30, 15, 0, time.UTC)
	limiter, _ := newTestLimiter(t, now)

	for i := 0; i < 5; i++ {
		result, err := limiter.Allow(context.Background(), "key-1", 5, PerMinute)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 5-(i+1), result.Remaining)
		assert.Zero(t, result.RetryAfter)
	}

	result, err := limiter.Allow(context.Background(), "key-1", 5, PerMinute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.Greater(t, result.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, result.RetryAfter, time.Minute)
}

func TestAllowDeniedStaysDenied(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 30, 15, 0, time.UTC)
	limiter, _ := newTestLimiter(t, now)

	_, err := limiter.Allow(context.Background(), "key-1", 1, PerMinute)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		result, err := limiter.Allow(context.Background(), "key-1", 1, PerMinute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
	}
}

func TestAllowZeroLimitDeniesWithoutCounting(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 30, 15, 0, time.UTC)
	limiter, mr := newTestLimiter(t, now)

	result, err := limiter.Allow(context.Background(), "key-1", 0, PerMinute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Greater(t, result.RetryAfter, time.Duration(0))
	assert.Empty(t, mr.Keys())
}

func TestAllowSeparateWindowsSeparateCounters(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 30, 15, 0, time.UTC)
	limiter, _ := newTestLimiter(t, now)

	// Exhaust the minute window; the day window still admits.
	for i := 0; i < 2; i++ {
		_, err := limiter.Allow(context.Background(), "key-1", 2, PerMinute)
		require.NoError(t, err)
	}
	minuteResult, err := limiter.Allow(context.Background(), "key-1", 2, PerMinute)
	require.NoError(t, err)
	assert.False(t, minuteResult.Allowed)

	dayResult, err := limiter.Allow(context.Background(), "key-1", 100, PerDay)
	require.NoError(t, err)
	assert.True(t, dayResult.Allowed)
}

func TestAllowNewWindowResetsCounter(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 30, 59, 0, time.UTC)
	limiter, _ := newTestLimiter(t, now)

	_, err := limiter.Allow(context.Background(), "key-1", 1, PerMinute)
	require.NoError(t, err)
	denied, err := limiter.Allow(context.Background(), "key-1", 1, PerMinute)
	require.NoError(t, err)
	assert.False(t, denied.Allowed)

	// Advancing into the next minute selects a fresh counter key.
	limiter.now = func() time.Time { return now.Add(2 * time.Second) }
	result, err := limiter.Allow(context.Background(), "key-1", 1, PerMinute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestAllowKeysAreIsolated(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 30, 15, 0, time.UTC)
	limiter, _ := newTestLimiter(t, now)

	_, err := limiter.Allow(context.Background(), "key-1", 1, PerMinute)
	require.NoError(t, err)
	denied, err := limiter.Allow(context.Background(), "key-1", 1, PerMinute)
	require.NoError(t, err)
	assert.False(t, denied.Allowed)

	other, err := limiter.Allow(context.Background(), "key-2", 1, PerMinute)
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestWindowStart(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 30, 45, 123, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC), PerMinute.WindowStart(at))
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), PerDay.WindowStart(at))
}

func TestRetryAfterPointsAtWindowEnd(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 30, 45, 0, time.UTC)
	limiter, _ := newTestLimiter(t, now)

	_, err := limiter.Allow(context.Background(), "key-1", 1, PerMinute)
	require.NoError(t, err)
	result, err := limiter.Allow(context.Background(), "key-1", 1, PerMinute)
	require.NoError(t, err)

	assert.False(t, result.Allowed)
	assert.Equal(t, 15*time.Second, result.RetryAfter)
}
