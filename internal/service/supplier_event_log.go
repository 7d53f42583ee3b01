package service

import (
	"context"

	"github.com/voltdrop/internal/logger"
	"github.com/voltdrop/internal/models"
	"github.com/voltdrop/internal/repository"

	"gorm.io/gorm"
)

// SupplierEventLog 供应商订单状态流转审计日志
// 写入失败只记日志，不影响业务流程
type SupplierEventLog struct {
	repo repository.SupplierEventRepository
}

// NewSupplierEventLog 创建事件日志
func NewSupplierEventLog(repo repository.SupplierEventRepository) *SupplierEventLog {
	return &SupplierEventLog{repo: repo}
}

// LogEvent 独立写入一条事件
func (l *SupplierEventLog) LogEvent(ctx context.Context, orderID uint, oldStatus, newStatus string, metadata models.JSON) {
	if l == nil || l.repo == nil {
		return
	}
	event := buildSupplierEvent(orderID, oldStatus, newStatus, metadata)
	if err := l.repo.Create(event); err != nil {
		logger.FromContext(ctx).Warnw("supplier_event_write_failed",
			"order_id", orderID,
			"old_status", oldStatus,
			"new_status", newStatus,
			"error", err,
		)
	}
}

// Record 在调用方事务内写入事件
// 使用嵌套事务（savepoint），事件写入失败只回滚自身，订单更新照常提交
func (l *SupplierEventLog) Record(ctx context.Context, tx *gorm.DB, orderID uint, oldStatus, newStatus string, metadata models.JSON) {
	if l == nil || l.repo == nil {
		return
	}
	if tx == nil {
		l.LogEvent(ctx, orderID, oldStatus, newStatus, metadata)
		return
	}
	event := buildSupplierEvent(orderID, oldStatus, newStatus, metadata)
	err := tx.Transaction(func(sp *gorm.DB) error {
		return l.repo.WithTx(sp).Create(event)
	})
	if err != nil {
		logger.FromContext(ctx).Warnw("supplier_event_write_failed",
			"order_id", orderID,
			"old_status", oldStatus,
			"new_status", newStatus,
			"error", err,
		)
	}
}

// ListByOrder 订单事件时间线
func (l *SupplierEventLog) ListByOrder(orderID uint) ([]models.SupplierOrderEvent, error) {
	return l.repo.ListByOrder(orderID)
}

func buildSupplierEvent(orderID uint, oldStatus, newStatus string, metadata models.JSON) *models.SupplierOrderEvent {
	event := &models.SupplierOrderEvent{
		OrderID:      orderID,
		NewStatus:    newStatus,
		MetadataJSON: metadata,
	}
	if oldStatus != "" {
		old := oldStatus
		event.OldStatus = &old
	}
	if event.MetadataJSON == nil {
		event.MetadataJSON = models.JSON{}
	}
	return event
}
