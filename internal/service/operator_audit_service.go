package service

import (
	"strings"
	"time"

	"github.com/voltdrop/internal/constants"
	"github.com/voltdrop/internal/models"
	"github.com/voltdrop/internal/repository"
)

// OperatorAuditInput 操作审计记录输入
type OperatorAuditInput struct {
	OperatorAdminID  uint
	OperatorUsername string
	Action           string
	OrderID          *uint
	TargetAdminID    *uint
	Err              error
	RequestID        string
	Detail           models.JSON
}

// OperatorAuditService 后台操作审计服务
type OperatorAuditService struct {
	repo repository.OperatorAuditRepository
}

// NewOperatorAuditService 创建操作审计服务
func NewOperatorAuditService(repo repository.OperatorAuditRepository) *OperatorAuditService {
	return &OperatorAuditService{repo: repo}
}

// Record 写入一条审计记录，缺少操作人或动作时忽略
func (s *OperatorAuditService) Record(input OperatorAuditInput) error {
	if s == nil || s.repo == nil {
		return nil
	}
	if input.OperatorAdminID == 0 || strings.TrimSpace(input.Action) == "" {
		return nil
	}

	detail := input.Detail
	outcome := constants.AuditOutcomeSucceeded
	if input.Err != nil {
		outcome = constants.AuditOutcomeFailed
		if detail == nil {
			detail = models.JSON{}
		}
		detail["error"] = input.Err.Error()
	}

	item := &models.OperatorAuditLog{
		OperatorAdminID:  input.OperatorAdminID,
		OperatorUsername: strings.TrimSpace(input.OperatorUsername),
		Action:           strings.TrimSpace(input.Action),
		OrderID:          input.OrderID,
		TargetAdminID:    input.TargetAdminID,
		Outcome:          outcome,
		RequestID:        strings.TrimSpace(input.RequestID),
		DetailJSON:       detail,
		CreatedAt:        time.Now(),
	}
	return s.repo.Create(item)
}

// List 管理端查询审计日志
func (s *OperatorAuditService) List(filter repository.OperatorAuditListFilter) ([]models.OperatorAuditLog, int64, error) {
	if s == nil || s.repo == nil {
		return []models.OperatorAuditLog{}, 0, nil
	}
	return s.repo.List(filter)
}
