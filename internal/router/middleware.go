package router

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/voltdrop/internal/config"
	"github.com/voltdrop/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
	// 供应商系统透传的关联 ID，存在时优先作为 request_id
	correlationIDHeader = "X-Correlation-ID"
)

var defaultCORSHeaders = []string{
	"Content-Type",
	"Authorization",
	"X-Requested-With",
	requestIDHeader,
}

// corsPolicy 启动时预计算的跨域规则
type corsPolicy struct {
	wildcard    bool
	origins     map[string]struct{}
	credentials bool
}

func newCORSPolicy(allowed []string, credentials bool) corsPolicy {
	p := corsPolicy{origins: make(map[string]struct{}, len(allowed)), credentials: credentials}
	if len(allowed) == 0 {
		p.wildcard = true
	}
	for _, origin := range allowed {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			p.wildcard = true
			continue
		}
		p.origins[strings.ToLower(origin)] = struct{}{}
	}
	return p
}

// allow 返回应写入 Access-Control-Allow-Origin 的值，空串表示不允许
// 带凭证的通配规则回显请求 Origin，浏览器不接受 * 与凭证同时出现
func (p corsPolicy) allow(origin string) string {
	if p.wildcard {
		if p.credentials && origin != "" {
			return origin
		}
		return "*"
	}
	if _, ok := p.origins[strings.ToLower(origin)]; ok && origin != "" {
		return origin
	}
	return ""
}

// CORSMiddleware 后台前端跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	policy := newCORSPolicy(cfg.AllowedOrigins, cfg.AllowCredentials)
	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}
	}
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = defaultCORSHeaders
	}
	methodsValue := strings.Join(methods, ", ")
	headersValue := strings.Join(headers, ", ")

	return func(c *gin.Context) {
		h := c.Writer.Header()
		if origin := policy.allow(c.GetHeader("Origin")); origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				h.Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		h.Set("Access-Control-Allow-Methods", methodsValue)
		h.Set("Access-Control-Allow-Headers", headersValue)
		h.Set("Access-Control-Expose-Headers", requestIDHeader)
		if cfg.MaxAge > 0 {
			h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestIDMiddleware 生成或透传 request_id，并挂到 context 日志上
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = strings.TrimSpace(c.GetHeader(correlationIDHeader))
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)
		ctx := logger.WithContext(c.Request.Context(), logger.SW(requestIDKey, requestID))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// LoggerMiddleware 访问日志；健康检查只在失败时记录
func LoggerMiddleware(base *zap.Logger) gin.HandlerFunc {
	if base == nil {
		base = zap.L()
	}
	sugar := base.Sugar()
	return func(c *gin.Context) {
		startedAt := time.Now()
		c.Next()

		status := c.Writer.Status()
		if c.FullPath() == "/health" && status < http.StatusBadRequest {
			return
		}
		fields := []interface{}{
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(startedAt).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			sugar.Errorw("http_request", append(fields, "errors", c.Errors.String())...)
			return
		}
		sugar.Infow("http_request", fields...)
	}
}

func getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
