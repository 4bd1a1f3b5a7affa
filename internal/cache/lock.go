package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"CoachCheck/internal/cadence"
)

// 分布式锁：SETNX 写入随机 token，释放时比对 token，避免误删别人续上的锁
const lockPrefix = "lock"

var unlockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock 已持有的锁
type Lock struct {
	key   string
	token string
}

// TryLock 尝试加锁，未抢到时返回 nil, nil
func (s *Store) TryLock(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	lock := &Lock{key: s.key(lockPrefix, name), token: uuid.NewString()}

	ok, err := s.client.SetNX(ctx, lock.key, lock.token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, nil
	}
	return lock, nil
}

// Unlock 释放锁，锁已过期或被他人持有时什么也不做
func (s *Store) Unlock(ctx context.Context, lock *Lock) error {
	if lock == nil {
		return nil
	}
	return unlockScript.Run(ctx, s.client, []string{lock.key}, lock.token).Err()
}

// AllocationLockName 同一 (client, form) 的分配互斥
func AllocationLockName(key cadence.SeriesKey) string {
	return fmt.Sprintf("allocation:%d:%d", key.ClientID, key.FormID)
}
