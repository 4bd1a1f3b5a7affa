package cache

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const tokenPrefix = "token"

// SetRefreshToken 保存最近一次签发的 refresh token，旧的随之失效
// Key: coachcheck:token:refresh:{role}:{public_id}
func (s *Store) SetRefreshToken(ctx context.Context, role, publicID, refreshToken string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(tokenPrefix, "refresh", role, publicID), refreshToken, ttl).Err()
}

// GetRefreshToken 读取最近一次签发的 refresh token，不存在时返回空串
func (s *Store) GetRefreshToken(ctx context.Context, role, publicID string) (string, error) {
	stored, err := s.client.Get(ctx, s.key(tokenPrefix, "refresh", role, publicID)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	return stored, err
}
