package repository

import (
	"github.com/voltdrop/internal/models"

	"gorm.io/gorm"
)

// SupplierEventRepository 供应商订单事件数据访问接口
// 事件只追加，不提供更新与删除
type SupplierEventRepository interface {
	Create(event *models.SupplierOrderEvent) error
	ListByOrder(orderID uint) ([]models.SupplierOrderEvent, error)
	CountByOrder(orderID uint) (int64, error)
	WithTx(tx *gorm.DB) *GormSupplierEventRepository
}

// GormSupplierEventRepository GORM 实现
type GormSupplierEventRepository struct {
	db *gorm.DB
}

// NewSupplierEventRepository 创建事件仓库
func NewSupplierEventRepository(db *gorm.DB) *GormSupplierEventRepository {
	return &GormSupplierEventRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSupplierEventRepository) WithTx(tx *gorm.DB) *GormSupplierEventRepository {
	if tx == nil {
		return r
	}
	return &GormSupplierEventRepository{db: tx}
}

// Create 写入事件
func (r *GormSupplierEventRepository) Create(event *models.SupplierOrderEvent) error {
	return r.db.Create(event).Error
}

// ListByOrder 按时间顺序列出订单事件
func (r *GormSupplierEventRepository) ListByOrder(orderID uint) ([]models.SupplierOrderEvent, error) {
	events := make([]models.SupplierOrderEvent, 0)
	if err := r.db.Where("order_id = ?", orderID).Order("id ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// CountByOrder 统计订单事件数
func (r *GormSupplierEventRepository) CountByOrder(orderID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.SupplierOrderEvent{}).Where("order_id = ?", orderID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
