package public

import (
	"strings"

	handlershared "github.com/voltdrop/internal/http/handlers/shared"
	"github.com/voltdrop/internal/http/response"
	"github.com/voltdrop/internal/service"

	"github.com/gin-gonic/gin"
)

// SupplierWebhookRequest 供应商状态推送
type SupplierWebhookRequest struct {
	SupplierOrderID string `json:"supplier_order_id" binding:"required"`
	Status          string `json:"status" binding:"required"`
	TrackingNumber  string `json:"tracking_number"`
	TrackingURL     string `json:"tracking_url"`
}

// SupplierWebhook 供应商状态回调，密钥校验在路由中间件完成
func (h *Handler) SupplierWebhook(c *gin.Context) {
	log := handlershared.RequestLog(c)
	supplierName := strings.TrimSpace(c.Param("supplier"))

	var req SupplierWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnw("supplier_webhook_payload_invalid", "supplier", supplierName, "error", err)
		response.Error(c, response.CodeBadRequest, "invalid supplier webhook payload")
		return
	}
	log.Infow("supplier_webhook_received",
		"supplier", supplierName,
		"supplier_order_id", req.SupplierOrderID,
		"status", req.Status,
		"client_ip", c.ClientIP(),
	)

	item, err := h.updates.ApplySupplierUpdate(c.Request.Context(), supplierName, service.SupplierStatusUpdate{
		SupplierOrderID: req.SupplierOrderID,
		Status:          req.Status,
		TrackingNumber:  strings.TrimSpace(req.TrackingNumber),
		TrackingURL:     strings.TrimSpace(req.TrackingURL),
		Source:          "webhook",
	})
	if err != nil {
		log.Warnw("supplier_webhook_handle_failed",
			"supplier", supplierName,
			"supplier_order_id", req.SupplierOrderID,
			"error", err,
		)
		handlershared.RespondMapped(c, err, supplierWebhookErrorRules, response.CodeInternal, "supplier webhook failed")
		return
	}
	response.Success(c, item)
}
