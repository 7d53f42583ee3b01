package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表
type Product struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                          // 主键
	StoreID           uint           `gorm:"index;not null" json:"store_id"`                                // 店铺ID
	Name              string         `gorm:"not null" json:"name"`                                          // 商品名称
	Slug              string         `gorm:"index;not null" json:"slug"`                                    // 商品标识
	SupplierName      string         `gorm:"type:varchar(50);index" json:"supplier_name"`                   // 供应商（bigbuy/cj/sandbox）
	SupplierSKU       string         `gorm:"type:varchar(120)" json:"supplier_sku"`                         // 供应商 SKU
	SupplierProductID string         `gorm:"type:varchar(120)" json:"supplier_product_id"`                  // 供应商商品ID
	PriceAmount       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price_amount"`     // 售价
	IsActive          bool           `gorm:"not null;default:true;index" json:"is_active"`                  // 是否上架
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt         time.Time      `json:"updated_at"`                                                    // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间

	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// ProductVariant 商品规格表
type ProductVariant struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	ProductID   uint      `gorm:"index;not null" json:"product_id"`
	SKU         string    `gorm:"type:varchar(120)" json:"sku"`
	Name        string    `json:"name"`
	PriceAmount Money     `gorm:"type:decimal(20,2);not null;default:0" json:"price_amount"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName 指定表名
func (ProductVariant) TableName() string {
	return "product_variants"
}
