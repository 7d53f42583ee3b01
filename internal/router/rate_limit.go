package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/voltdrop/internal/cache"
	"github.com/voltdrop/internal/http/response"
	"github.com/voltdrop/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key，返回空串时退回客户端 IP
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则
type RateLimitRule struct {
	Name          string
	WindowSeconds int
	MaxRequests   int

	// BlockSeconds 超限后封禁时长，0 表示等待窗口自然过期
	BlockSeconds int

	// FailOpen Redis 异常时放行；登录失败关闭，供应商回调放行
	FailOpen bool

	// Message 可包含一个 %d 占位符表示剩余秒数
	Message string
}

const rateLimitUnavailableMsg = "rate limiter unavailable"

// RateLimitMiddleware Redis 限流中间件，client 为空时不限流
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
			c.Next()
			return
		}

		subject := ""
		if keyFunc != nil {
			subject = strings.TrimSpace(keyFunc(c))
		}
		if subject == "" {
			subject = c.ClientIP()
		}
		key := cache.BuildKey("rate:" + rule.Name + ":" + subject)

		wait, err := consumeWindow(c.Request.Context(), client, key, rule)
		if err != nil {
			logger.FromContext(c.Request.Context()).Warnw("rate_limit_unavailable", "rule", rule.Name, "fail_open", rule.FailOpen, "error", err)
			if rule.FailOpen {
				c.Next()
				return
			}
			response.Error(c, response.CodeInternal, rateLimitUnavailableMsg)
			c.Abort()
			return
		}
		if wait > 0 {
			response.Error(c, response.CodeTooManyRequests, rule.message(wait))
			c.Abort()
			return
		}
		c.Next()
	}
}

// consumeWindow 计数一次，返回需等待的秒数，0 表示放行
func consumeWindow(ctx context.Context, client *redis.Client, key string, rule RateLimitRule) (int, error) {
	blockKey := key + ":block"
	if rule.BlockSeconds > 0 {
		ttl, err := client.TTL(ctx, blockKey).Result()
		if err != nil {
			return 0, err
		}
		if ttl > 0 {
			return ceilSeconds(ttl), nil
		}
	}

	window := time.Duration(rule.WindowSeconds) * time.Second
	pipe := client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	ttl := ttlCmd.Val()
	if ttl < 0 {
		if err := client.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
		ttl = window
	}
	if incr.Val() <= int64(rule.MaxRequests) {
		return 0, nil
	}
	if rule.BlockSeconds > 0 {
		if err := client.Set(ctx, blockKey, 1, time.Duration(rule.BlockSeconds)*time.Second).Err(); err != nil {
			return 0, err
		}
		return rule.BlockSeconds, nil
	}
	return ceilSeconds(ttl), nil
}

func (r RateLimitRule) message(wait int) string {
	format := strings.TrimSpace(r.Message)
	if format == "" {
		format = "too many requests, retry in %d seconds"
	}
	if strings.Contains(format, "%d") {
		return fmt.Sprintf(format, wait)
	}
	return format
}

func ceilSeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}

// KeyByJSONFieldAndIP 以请求体字段 + IP 作为限流 key，读取后还原请求体
func KeyByJSONFieldAndIP(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(readJSONField(c, field))
		if value == "" {
			return ""
		}
		return value + "|" + c.ClientIP()
	}
}

// KeyByParamAndIP 以路由参数 + IP 作为限流 key
func KeyByParamAndIP(param string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(strings.TrimSpace(c.Param(param)))
		if value == "" {
			return ""
		}
		return value + "|" + c.ClientIP()
	}
}

func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	var payload map[string]interface{}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return ""
	}
	text, _ := payload[field].(string)
	return strings.TrimSpace(text)
}
