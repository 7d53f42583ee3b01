package models

import "time"

// Store 店铺表（多店铺共用一套履约流水线）
type Store struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Store) TableName() string {
	return "stores"
}

// Customer 顾客表
type Customer struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	StoreID   uint      `gorm:"index;not null" json:"store_id"`
	Email     string    `gorm:"index;not null" json:"email"`
	Name      string    `json:"name"`
	Phone     string    `gorm:"type:varchar(50)" json:"phone"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customers"
}
