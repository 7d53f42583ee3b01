package repository

import (
	"github.com/voltdrop/internal/models"

	"gorm.io/gorm"
)

// OperatorAuditRepository 操作审计日志数据访问接口
type OperatorAuditRepository interface {
	Create(log *models.OperatorAuditLog) error
	List(filter OperatorAuditListFilter) ([]models.OperatorAuditLog, int64, error)
}

// GormOperatorAuditRepository GORM 实现
type GormOperatorAuditRepository struct {
	db *gorm.DB
}

// NewOperatorAuditRepository 创建操作审计日志仓库
func NewOperatorAuditRepository(db *gorm.DB) *GormOperatorAuditRepository {
	return &GormOperatorAuditRepository{db: db}
}

// Create 写入审计日志
func (r *GormOperatorAuditRepository) Create(log *models.OperatorAuditLog) error {
	if log == nil {
		return nil
	}
	return r.db.Create(log).Error
}

// List 按条件分页查询，按 id 倒序
func (r *GormOperatorAuditRepository) List(filter OperatorAuditListFilter) ([]models.OperatorAuditLog, int64, error) {
	query := r.db.Model(&models.OperatorAuditLog{})
	if filter.OperatorAdminID != 0 {
		query = query.Where("operator_admin_id = ?", filter.OperatorAdminID)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	logs := make([]models.OperatorAuditLog, 0)
	if err := query.Order("id DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
