package admin

import (
	"github.com/voltdrop/internal/authz"
	"github.com/voltdrop/internal/constants"
	handlershared "github.com/voltdrop/internal/http/handlers/shared"
	"github.com/voltdrop/internal/http/response"
	"github.com/voltdrop/internal/models"

	"github.com/gin-gonic/gin"
)

type authzSetAdminRolesPayload struct {
	Roles []string `json:"roles" binding:"max=16,dive,required"`
}

var authzErrorRules = []handlershared.ErrorRule{
	{Target: authz.ErrUnknownRole, Code: response.CodeBadRequest, Msg: "unknown role", Log: true},
	{Target: authz.ErrUnavailable, Code: response.CodeInternal, Msg: "authz service unavailable", Log: true},
}

// GetAuthzMe 获取当前管理员权限快照
func (h *Handler) GetAuthzMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		handlershared.RespondMapped(c, err, authzErrorRules, response.CodeInternal, "load admin roles failed")
		return
	}
	response.Success(c, gin.H{
		"admin_id": adminID,
		"is_super": currentIsSuper(c),
		"roles":    roles,
	})
}

// ListAuthzRoles 获取角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "list roles failed", err)
		return
	}
	response.Success(c, roles)
}

// SetAuthzAdminRoles 覆盖设置管理员角色
func (h *Handler) SetAuthzAdminRoles(c *gin.Context) {
	targetID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req authzSetAdminRolesPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	admin, err := h.AdminRepo.GetByID(targetID)
	if err != nil {
		respondError(c, response.CodeInternal, "load admin failed", err)
		return
	}
	if admin == nil {
		respondError(c, response.CodeNotFound, "admin not found", nil)
		return
	}

	if err := h.AuthzService.SetAdminRoles(targetID, req.Roles); err != nil {
		h.recordAudit(c, constants.AuditActionAuthzRolesSet, nil, &targetID, err, models.JSON{"roles": req.Roles})
		handlershared.RespondMapped(c, err, authzErrorRules, response.CodeInternal, "set admin roles failed")
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(targetID)
	if err != nil {
		respondError(c, response.CodeInternal, "load admin roles failed", err)
		return
	}

	h.recordAudit(c, constants.AuditActionAuthzRolesSet, nil, &targetID, nil, models.JSON{"roles": roles})
	requestLog(c).Infow("admin_authz_roles_updated",
		"target_admin_id", targetID,
		"roles", roles,
	)
	response.Success(c, gin.H{"admin_id": targetID, "roles": roles})
}
