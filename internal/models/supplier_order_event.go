package models

import "time"

// SupplierOrderEvent 供应商订单状态流转记录（只追加，不更新不删除）
type SupplierOrderEvent struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	OrderID      uint      `gorm:"index;not null" json:"order_id"`
	OldStatus    *string   `gorm:"type:varchar(40)" json:"old_status"`
	NewStatus    string    `gorm:"type:varchar(40);not null" json:"new_status"`
	MetadataJSON JSON      `gorm:"column:metadata;type:json" json:"metadata"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (SupplierOrderEvent) TableName() string {
	return "supplier_order_events"
}
