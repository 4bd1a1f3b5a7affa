package cache

import (
	goredis "github.com/redis/go-redis/v9"

	"CoachCheck/storage/redis"
)

// Store 打卡相关的 Redis 操作，key 统一经过 storage/redis.Key 加前缀
type Store struct {
	client goredis.UniversalClient
	key    func(parts ...string) string
}

// New 基于给定客户端创建 Store
func New(client goredis.UniversalClient) *Store {
	return &Store{client: client, key: redis.Key}
}

// Default 使用全局 Redis 客户端
func Default() *Store {
	return New(redis.Client())
}
