package router

import (
	"github.com/voltdrop/internal/cache"
	"github.com/voltdrop/internal/config"
	adminhandlers "github.com/voltdrop/internal/http/handlers/admin"
	publichandlers "github.com/voltdrop/internal/http/handlers/public"
	"github.com/voltdrop/internal/http/response"
	"github.com/voltdrop/internal/logger"
	"github.com/voltdrop/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按公开/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisClient := cache.Client()
	adminLoginRule := RateLimitRule{
		Name:          "admin_login",
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		Message:       "too many login attempts, retry in %d seconds",
	}
	webhookRule := RateLimitRule{
		Name:          "supplier_webhook",
		WindowSeconds: cfg.Security.WebhookRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.WebhookRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.WebhookRateLimit.BlockSeconds,
		FailOpen:      true,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 供应商回调
		webhooks := apiV1.Group("/webhooks")
		{
			webhooks.POST("/suppliers/:supplier",
				RateLimitMiddleware(redisClient, webhookRule, KeyByParamAndIP("supplier")),
				WebhookTokenMiddleware(cfg.Fulfillment.WebhookSecret),
				publicHandler.SupplierWebhook,
			)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByJSONFieldAndIP("username")), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(c.AuthService), AdminRBACMiddleware(c.AuthzService))
			{
				// 订单与供应商事件
				authorized.GET("/orders", adminHandler.AdminListOrders)
				authorized.GET("/orders/:id", adminHandler.AdminGetOrder)
				authorized.GET("/orders/:id/supplier-events", adminHandler.AdminListSupplierEvents)
				authorized.GET("/orders/:id/risk", adminHandler.AdminEvaluateOrderRisk)
				authorized.POST("/orders/:id/dispatch", adminHandler.AdminDispatchOrder)
				authorized.POST("/orders/:id/tracking/refresh", adminHandler.AdminRefreshTracking)

				// 履约批处理
				authorized.POST("/fulfillment/poll", adminHandler.AdminPollSupplierStatuses)
				authorized.POST("/fulfillment/retry", adminHandler.AdminRetryDispatches)
				authorized.GET("/fulfillment/last-poll", adminHandler.AdminLastPollResult)

				// 操作审计
				authorized.GET("/audit-logs", adminHandler.AdminListAuditLogs)

				// 权限
				authorized.GET("/authz/me", adminHandler.GetAuthzMe)
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					catalog, err := buildAdminPermissionCatalog(r.Routes(), c.AuthzService)
					if err != nil {
						response.Error(ctx, response.CodeInternal, "build permission catalog failed")
						return
					}
					response.Success(ctx, catalog)
				})
			}
		}
	}

	r.GET("/health", healthHandler(c))

	return r
}
