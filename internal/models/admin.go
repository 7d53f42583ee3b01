package models

import (
	"time"

	"gorm.io/gorm"
)

// Admin 后台运营账号
type Admin struct {
	ID                 uint           `gorm:"primarykey" json:"id"`
	Username           string         `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash       string         `gorm:"not null" json:"-"`
	TokenVersion       uint64         `gorm:"not null;default:0" json:"-"` // 递增后旧 Token 全部失效
	TokenInvalidBefore *time.Time     `gorm:"index" json:"-"`
	IsSuper            bool           `gorm:"not null;default:false;index" json:"is_super"` // 超级管理员跳过 RBAC
	LastLoginAt        *time.Time     `json:"last_login_at"`
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Admin) TableName() string {
	return "admins"
}

// TokenRevoked 判断某个签发时间的 Token 是否已失效
func (a *Admin) TokenRevoked(issuedAt time.Time, version uint64) bool {
	if a == nil {
		return true
	}
	if version != a.TokenVersion {
		return true
	}
	if a.TokenInvalidBefore != nil && issuedAt.Before(*a.TokenInvalidBefore) {
		return true
	}
	return false
}
