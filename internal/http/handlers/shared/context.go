package shared

import (
	"strconv"
	"strings"

	"github.com/voltdrop/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ContextUint 读取中间件写入的 uint 值，不写响应
func ContextUint(c *gin.Context, key string) (uint, bool) {
	value, _ := c.Get(key)
	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), v >= 0
	case int64:
		return uint(v), v >= 0
	default:
		return 0, false
	}
}

// GetContextUint 读取失败时按未登录处理并写响应
func GetContextUint(c *gin.Context, key string) (uint, bool) {
	id, ok := ContextUint(c, key)
	if !ok || id == 0 {
		RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return 0, false
	}
	return id, true
}

// ParseUintParam 路径参数必须是正整数，否则返回 400
func ParseUintParam(c *gin.Context, name string) (uint, bool) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || parsed == 0 {
		RespondError(c, response.CodeBadRequest, "invalid "+name, nil)
		return 0, false
	}
	return uint(parsed), true
}
