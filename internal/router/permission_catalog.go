package router

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/voltdrop/internal/authz"
	"github.com/voltdrop/internal/cache"
	"github.com/voltdrop/internal/http/response"
	"github.com/voltdrop/internal/provider"

	"github.com/gin-gonic/gin"
)

const (
	adminRoutePrefix = "/api/v1/admin/"
	healthTimeout    = 2 * time.Second
)

var errNoDatabase = errors.New("database not initialized")

type adminPermissionCatalogItem struct {
	Module     string   `json:"module"`
	Method     string   `json:"method"`
	Object     string   `json:"object"`
	Permission string   `json:"permission"`
	GrantedBy  []string `json:"granted_by"`
}

// buildAdminPermissionCatalog 列出需要鉴权的后台路由及授予它的预置角色
// granted_by 为空表示仅超级管理员可访问
func buildAdminPermissionCatalog(routes gin.RoutesInfo, authzService *authz.Service) ([]adminPermissionCatalogItem, error) {
	seen := make(map[string]bool, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))
	for _, route := range routes {
		method := strings.ToUpper(route.Method)
		if method == http.MethodOptions || method == http.MethodHead {
			continue
		}
		if !strings.HasPrefix(route.Path, adminRoutePrefix) || route.Path == adminRoutePrefix+"login" {
			continue
		}
		object := authz.NormalizeObject(route.Path)
		permission := method + ":" + object
		if seen[permission] {
			continue
		}
		seen[permission] = true

		grantedBy, err := authzService.RolesGranting(object, method)
		if err != nil {
			return nil, err
		}
		items = append(items, adminPermissionCatalogItem{
			Module:     permissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
			GrantedBy:  grantedBy,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if a.Object != b.Object {
			return a.Object < b.Object
		}
		return a.Method < b.Method
	})
	return items, nil
}

// permissionModule /admin/<module>/... 取第二段
func permissionModule(object string) string {
	segments := strings.Split(strings.Trim(object, "/"), "/")
	if len(segments) >= 2 && segments[0] == "admin" {
		return segments[1]
	}
	if segments[0] == "" {
		return "system"
	}
	return segments[0]
}

// healthHandler 探测数据库与 Redis；数据库不可用时 status 为 degraded
func healthHandler(c *provider.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		probeCtx, cancel := context.WithTimeout(ctx.Request.Context(), healthTimeout)
		defer cancel()

		status := "ok"
		database := "ok"
		if err := pingDatabase(probeCtx, c); err != nil {
			status, database = "degraded", "unavailable"
		}
		redisState := "disabled"
		if client := cache.Client(); client != nil {
			redisState = "ok"
			if err := client.Ping(probeCtx).Err(); err != nil {
				redisState = "unavailable"
			}
		}
		queueState := "inline"
		if c != nil && c.QueueClient.Enabled() {
			queueState = "asynq"
		}
		response.Success(ctx, gin.H{
			"status":   status,
			"database": database,
			"redis":    redisState,
			"queue":    queueState,
		})
	}
}

func pingDatabase(ctx context.Context, c *provider.Container) error {
	if c == nil || c.DB == nil {
		return errNoDatabase
	}
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
