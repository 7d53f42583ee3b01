package admin

import (
	"strings"

	handlershared "github.com/voltdrop/internal/http/handlers/shared"
	"github.com/voltdrop/internal/http/response"
	"github.com/voltdrop/internal/models"
	"github.com/voltdrop/internal/repository"
	"github.com/voltdrop/internal/service"

	"github.com/gin-gonic/gin"
)

type auditListQuery struct {
	handlershared.ListQuery
	OperatorAdminID uint   `form:"operator_admin_id"`
	OrderID         uint   `form:"order_id"`
	Action          string `form:"action"`
}

// AdminListAuditLogs 操作审计日志列表
func (h *Handler) AdminListAuditLogs(c *gin.Context) {
	var q auditListQuery
	if !handlershared.BindQuery(c, &q) {
		return
	}
	page, pageSize := q.Paging()
	createdFrom, createdTo := q.CreatedRange()

	logs, total, err := h.OperatorAuditService.List(repository.OperatorAuditListFilter{
		Page:            page,
		PageSize:        pageSize,
		OperatorAdminID: q.OperatorAdminID,
		OrderID:         q.OrderID,
		Action:          strings.ToLower(strings.TrimSpace(q.Action)),
		CreatedFrom:     createdFrom,
		CreatedTo:       createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "list audit logs failed", err)
		return
	}
	response.SuccessWithPage(c, logs, handlershared.BuildPagination(page, pageSize, total))
}

// recordAudit 记录后台操作，写入失败只打日志不影响响应
func (h *Handler) recordAudit(c *gin.Context, action string, orderID, targetAdminID *uint, opErr error, detail models.JSON) {
	if h.OperatorAuditService == nil {
		return
	}
	operatorID, _ := handlershared.ContextUint(c, "admin_id")
	username, _ := c.Get("username")
	usernameText, _ := username.(string)
	requestID, _ := c.Get("request_id")
	requestIDText, _ := requestID.(string)

	err := h.OperatorAuditService.Record(service.OperatorAuditInput{
		OperatorAdminID:  operatorID,
		OperatorUsername: usernameText,
		Action:           action,
		OrderID:          orderID,
		TargetAdminID:    targetAdminID,
		Err:              opErr,
		RequestID:        requestIDText,
		Detail:           detail,
	})
	if err != nil {
		requestLog(c).Warnw("admin_audit_record_failed", "action", action, "error", err)
	}
}
