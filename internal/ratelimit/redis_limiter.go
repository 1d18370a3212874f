package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ Limiter = (*RedisLimiter)(nil)

// incrScript increments the window counter and attaches the window TTL on
// first touch. INCR and PEXPIRE run in one script evaluation, so
// concurrent requests cannot both observe the pre-increment count.
var incrScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter counts requests in fixed UTC-aligned windows. Counter keys
// embed the window start, so stale windows simply expire; there is no
// reset bookkeeping.
type RedisLimiter struct {
	client *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, logger *zap.Logger) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		logger: logger.Named("RedisLimiter"),
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, granularity Granularity) (*Result, error) {
	now := l.now()
	windowStart := granularity.WindowStart(now)
	windowEnd := windowStart.Add(granularity.Duration())
	retryAfter := windowEnd.Sub(now)

	if limit <= 0 {
		return &Result{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			RetryAfter: retryAfter,
		}, nil
	}

	counterKey := fmt.Sprintf("ratelimit:%s:%s:%d", key, granularity, windowStart.Unix())
	// TTL slightly past the window end covers clock skew between callers.
	ttl := retryAfter + time.Second

	current, err := incrScript.Run(ctx, l.client, []string{counterKey}, ttl.Milliseconds()).Int64()
	if err != nil {
		l.logger.Error("Rate limit counter update failed",
			zap.String("counter_key", counterKey),
			zap.Error(err),
		)
		return nil, fmt.Errorf("redis error updating rate counter: %w", err)
	}

	result := &Result{
		Allowed:    current <= int64(limit),
		Limit:      limit,
		Remaining:  limit - int(current),
		RetryAfter: retryAfter,
	}
	if result.Remaining < 0 {
		result.Remaining = 0
	}
	if result.Allowed {
		result.RetryAfter = 0
	}

	return result, nil
}
