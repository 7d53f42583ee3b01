package models

import "time"

// OperatorAuditLog 后台操作审计日志
// 说明：记录管理员的角色变更与手动履约干预（下单、刷新物流、轮询、重试），支持按操作人与时间范围检索。
type OperatorAuditLog struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	OperatorAdminID  uint      `gorm:"index;not null" json:"operator_admin_id"`
	OperatorUsername string    `gorm:"type:varchar(100);index;not null;default:''" json:"operator_username"`
	Action           string    `gorm:"type:varchar(100);index;not null" json:"action"`
	OrderID          *uint     `gorm:"index" json:"order_id,omitempty"`
	TargetAdminID    *uint     `gorm:"index" json:"target_admin_id,omitempty"`
	Outcome          string    `gorm:"type:varchar(32);index;not null;default:''" json:"outcome"`
	RequestID        string    `gorm:"type:varchar(64);index;not null;default:''" json:"request_id"`
	DetailJSON       JSON      `gorm:"type:json" json:"detail"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (OperatorAuditLog) TableName() string {
	return "operator_audit_logs"
}
