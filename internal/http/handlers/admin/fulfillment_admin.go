package admin

import (
	"context"
	"strconv"
	"strings"

	"github.com/voltdrop/internal/constants"
	"github.com/voltdrop/internal/http/response"
	"github.com/voltdrop/internal/logger"
	"github.com/voltdrop/internal/models"
	"github.com/voltdrop/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminFulfillmentPollRequest 手动轮询请求
type AdminFulfillmentPollRequest struct {
	StoreID *uint `json:"store_id"`
}

// AdminDispatchOrder 手动下单到供应商
// 队列可用时入队并返回 queued=true
func (h *Handler) AdminDispatchOrder(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	ctx := h.requestContext(c)
	result, err := h.DispatchService.Schedule(ctx, id)
	h.recordAudit(c, constants.AuditActionOrderDispatch, &id, nil, err, dispatchAuditDetail(result, err))
	if err != nil {
		respondServiceError(c, "dispatch order failed", err)
		return
	}
	if result == nil {
		response.Success(c, gin.H{"order_id": id, "queued": true})
		return
	}
	response.Success(c, result)
}

// AdminRefreshTracking 手动刷新物流
func (h *Handler) AdminRefreshTracking(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	order, err := h.TrackingService.UpdateTracking(h.requestContext(c), id)
	h.recordAudit(c, constants.AuditActionOrderTrackingRefresh, &id, nil, err, nil)
	if err != nil {
		respondServiceError(c, "refresh tracking failed", err)
		return
	}
	if order == nil {
		respondError(c, response.CodeBadRequest, "order has not been sent to a supplier", nil)
		return
	}
	response.Success(c, order)
}

// AdminPollSupplierStatuses 立即执行一轮供应商状态轮询
func (h *Handler) AdminPollSupplierStatuses(c *gin.Context) {
	var req AdminFulfillmentPollRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "bad request", err)
			return
		}
	}
	result, err := h.StatusPoller.Poll(h.requestContext(c), req.StoreID)
	pollDetail := models.JSON{}
	if req.StoreID != nil {
		pollDetail["store_id"] = *req.StoreID
	}
	h.recordAudit(c, constants.AuditActionFulfillmentPoll, nil, nil, err, pollDetail)
	if err != nil {
		respondServiceError(c, "poll supplier statuses failed", err)
		return
	}
	response.Success(c, result)
}

// AdminRetryDispatches 立即重试失败的自动下单
func (h *Handler) AdminRetryDispatches(c *gin.Context) {
	defaultAttempts, defaultLimit := h.Config.Fulfillment.RetryLimits()
	maxAttempts := queryPositiveInt(c, "max_attempts", defaultAttempts)
	limit := queryPositiveInt(c, "limit", defaultLimit)

	result, err := h.DispatchService.RetryPending(h.requestContext(c), maxAttempts, limit)
	h.recordAudit(c, constants.AuditActionFulfillmentRetry, nil, nil, err, models.JSON{
		"max_attempts": maxAttempts,
		"limit":        limit,
	})
	if err != nil {
		respondServiceError(c, "retry dispatches failed", err)
		return
	}
	response.Success(c, result)
}

// AdminLastPollResult 最近一次轮询汇总
func (h *Handler) AdminLastPollResult(c *gin.Context) {
	result, err := h.StatusPoller.LastPollResult(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeInternal, "load last poll result failed", err)
		return
	}
	if result == nil {
		response.Success(c, gin.H{})
		return
	}
	response.Success(c, result)
}

// requestContext 附带操作人信息的日志上下文
func (h *Handler) requestContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	adminID, _ := c.Get("admin_id")
	return logger.WithContext(ctx, logger.FromContext(ctx).With("operator_admin_id", adminID))
}

func dispatchAuditDetail(result *service.DispatchResult, err error) models.JSON {
	if err != nil {
		return nil
	}
	if result == nil {
		return models.JSON{"queued": true}
	}
	return models.JSON{"outcome": result.Outcome}
}

func queryPositiveInt(c *gin.Context, key string, fallback int) int {
	if raw := strings.TrimSpace(c.Query(key)); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
