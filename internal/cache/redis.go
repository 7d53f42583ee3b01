package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/voltdrop/internal/config"
	"github.com/voltdrop/internal/constants"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

var (
	redisClient  *redis.Client
	redisPrefix  = constants.RedisPrefixDefault
	redisEnabled bool
)

// InitRedis 初始化 Redis 客户端并探活
// 探活失败时回退为单实例模式：缓存失效、批处理锁直接放行
func InitRedis(cfg *config.RedisConfig) error {
	redisEnabled = false
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	if p := strings.TrimSpace(cfg.Prefix); p != "" {
		redisPrefix = p
	} else {
		redisPrefix = constants.RedisPrefixDefault
	}

	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return err
	}
	redisClient = client
	redisEnabled = true
	return nil
}

// Enabled 判断缓存是否可用
func Enabled() bool {
	return redisEnabled && redisClient != nil
}

// Client 供限流中间件共享连接，未启用时返回 nil
func Client() *redis.Client {
	if !Enabled() {
		return nil
	}
	return redisClient
}

// Close 关闭 Redis 连接
func Close() error {
	if redisClient == nil {
		return nil
	}
	err := redisClient.Close()
	redisClient = nil
	redisEnabled = false
	return err
}

// GetJSON 读取 JSON 缓存，未命中返回 false
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !Enabled() {
		return false, nil
	}
	raw, err := redisClient.Get(ctx, BuildKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(raw, dest)
}

func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !Enabled() {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return redisClient.Set(ctx, BuildKey(key), payload, ttl).Err()
}

// BuildKey 拼接带前缀的缓存键
func BuildKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return redisPrefix
	}
	return redisPrefix + ":" + key
}
