package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// 仅持有者可释放
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TryLock 尝试获取分布式锁，返回持有令牌
// Redis 未启用时视为单实例部署，直接返回成功
func TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	if !Enabled() {
		return token, true, nil
	}
	ok, err := redisClient.SetNX(ctx, BuildKey("lock:"+key), token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Unlock 释放分布式锁
func Unlock(ctx context.Context, key, token string) error {
	if !Enabled() || token == "" {
		return nil
	}
	return unlockScript.Run(ctx, redisClient, []string{BuildKey("lock:" + key)}, token).Err()
}

// RedisLocker 以 Redis 实现的批处理锁
type RedisLocker struct{}

// TryLock 实现批处理锁接口
func (RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	return TryLock(ctx, key, ttl)
}

// Unlock 实现批处理锁接口
func (RedisLocker) Unlock(ctx context.Context, key, token string) error {
	return Unlock(ctx, key, token)
}
