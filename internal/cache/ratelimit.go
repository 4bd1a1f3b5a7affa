package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "rate"

// AllowRequest 滑动窗口限流：记录本次请求并返回窗口内的请求数
// Key: coachcheck:rate:{scope}:{identifier}
func (s *Store) AllowRequest(ctx context.Context, scope, identifier string, window time.Duration, limit int, now time.Time) (bool, int, error) {
	key := s.key(rateLimitPrefix, scope, identifier)
	windowStart := now.Add(-window)

	pipe := s.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window+10*time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to execute rate limit pipeline: %w", err)
	}

	count := int(card.Val())
	return count <= limit, count, nil
}
