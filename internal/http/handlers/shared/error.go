package shared

import (
	"errors"

	"github.com/voltdrop/internal/http/response"
	"github.com/voltdrop/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 返回请求级日志实例，中间件已挂上 request_id 与 admin_id
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if c.Request != nil {
		if log, ok := logger.Scoped(c.Request.Context()); ok {
			return log
		}
	}
	if id := c.GetString("request_id"); id != "" {
		return logger.SW("request_id", id)
	}
	return logger.S()
}

// RespondError 返回错误响应；5xx 记 error，其余记 warn，err 为空时不记日志
func RespondError(c *gin.Context, code int, msg string, err error) {
	if err != nil {
		log := RequestLog(c)
		fields := []interface{}{"code", code, "message", msg, "error", err}
		if code >= response.CodeInternal {
			log.Errorw("handler_error", fields...)
		} else {
			log.Warnw("handler_error", fields...)
		}
	}
	response.Error(c, code, msg)
}

// ErrorRule 业务错误到接口响应的映射；Log 为 true 时把原始错误写入日志
type ErrorRule struct {
	Target error
	Code   int
	Msg    string
	Log    bool
}

// RespondMapped 按顺序匹配规则，均未命中时按 fallback 返回并记录原始错误
func RespondMapped(c *gin.Context, err error, rules []ErrorRule, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if !errors.Is(err, rule.Target) {
			continue
		}
		var logged error
		if rule.Log {
			logged = err
		}
		RespondError(c, rule.Code, rule.Msg, logged)
		return
	}
	RespondError(c, fallbackCode, fallbackMsg, err)
}
