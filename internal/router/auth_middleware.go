package router

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/voltdrop/internal/authz"
	"github.com/voltdrop/internal/constants"
	"github.com/voltdrop/internal/http/handlers/shared"
	"github.com/voltdrop/internal/http/response"
	"github.com/voltdrop/internal/logger"
	"github.com/voltdrop/internal/service"

	"github.com/gin-gonic/gin"
)

const adminIsSuperContextKey = "admin_is_super"

// JWTAuthMiddleware 校验后台 Bearer token，并检查 token 版本是否已被吊销
func JWTAuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authService == nil || !authService.SecretConfigured() {
			abortUnauthorized(c, "jwt secret is not configured")
			return
		}
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, "authorization header is missing or invalid")
			return
		}
		claims, err := authService.ParseJWT(token)
		if err != nil || claims.AdminID == 0 {
			abortUnauthorized(c, "token is invalid")
			return
		}
		admin, err := authService.ResolveAdmin(c.Request.Context(), claims.AdminID)
		if err != nil || admin == nil {
			abortUnauthorized(c, "token is invalid")
			return
		}
		if admin.TokenRevoked(issuedAt(claims), claims.TokenVersion) {
			abortUnauthorized(c, "token has been revoked")
			return
		}

		c.Set("admin_id", claims.AdminID)
		c.Set("username", claims.Username)
		c.Set(adminIsSuperContextKey, admin.IsSuper)
		ctx := logger.WithContext(c.Request.Context(), logger.FromContext(c.Request.Context()).With("admin_id", claims.AdminID))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func issuedAt(claims *service.JWTClaims) time.Time {
	if claims == nil || claims.IssuedAt == nil {
		return time.Time{}
	}
	return claims.IssuedAt.Time
}

// AdminRBACMiddleware 按路由模板做 Casbin 授权，超级管理员直接放行
func AdminRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetBool(adminIsSuperContextKey) {
			c.Next()
			return
		}
		adminID, ok := shared.ContextUint(c, "admin_id")
		if !ok || adminID == 0 {
			abortUnauthorized(c, "unauthorized")
			return
		}

		resource := c.FullPath()
		if resource == "" {
			resource = c.Request.URL.Path
		}
		log := logger.FromContext(c.Request.Context())
		allowed, err := authzService.EnforceAdmin(adminID, resource, c.Request.Method)
		if err != nil {
			log.Errorw("admin_rbac_enforce_failed", "method", c.Request.Method, "resource", resource, "error", err)
			abortUnauthorized(c, "unauthorized")
			return
		}
		if !allowed {
			log.Warnw("admin_rbac_permission_denied", "method", c.Request.Method, "resource", authz.NormalizeObject(resource))
			response.Forbidden(c, "forbidden")
			c.Abort()
			return
		}
		c.Next()
	}
}

// WebhookTokenMiddleware 供应商回调共享密钥校验，未配置密钥时拒绝所有回调
func WebhookTokenMiddleware(secret string) gin.HandlerFunc {
	expected := []byte(strings.TrimSpace(secret))
	return func(c *gin.Context) {
		log := logger.FromContext(c.Request.Context())
		if len(expected) == 0 {
			log.Warnw("supplier_webhook_secret_missing", "path", c.Request.URL.Path)
			abortUnauthorized(c, "webhook is not configured")
			return
		}
		provided := []byte(strings.TrimSpace(c.GetHeader(constants.HeaderWebhookToken)))
		if subtle.ConstantTimeCompare(provided, expected) != 1 {
			log.Warnw("supplier_webhook_token_invalid", "path", c.Request.URL.Path, "client_ip", c.ClientIP())
			abortUnauthorized(c, "webhook token is invalid")
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	response.Unauthorized(c, msg)
	c.Abort()
}
