package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID                  uint           `gorm:"primarykey" json:"id"`                                              // 主键
	OrderNo             string         `gorm:"uniqueIndex;not null" json:"order_no"`                              // 订单编号
	StoreID             uint           `gorm:"index;not null" json:"store_id"`                                    // 店铺ID
	CustomerID          *uint          `gorm:"index" json:"customer_id,omitempty"`                                // 顾客ID（游客订单为空）
	CustomerEmail       string         `gorm:"index" json:"customer_email"`                                       // 下单邮箱快照
	CustomerName        string         `json:"customer_name"`                                                     // 收件人快照
	CustomerPhone       string         `gorm:"type:varchar(50)" json:"customer_phone"`                            // 电话快照
	ShippingAddress     string         `gorm:"type:text" json:"shipping_address"`                                 // 收货地址原始 JSON
	Currency            string         `gorm:"not null;default:'NOK'" json:"currency"`                            // 币种
	TotalAmount         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`         // 实付金额
	PaymentStatus       string         `gorm:"index;not null" json:"payment_status"`                              // 支付状态
	FulfillmentStatus   string         `gorm:"index;not null" json:"fulfillment_status"`                          // 履约状态
	SupplierName        string         `gorm:"type:varchar(50);index" json:"supplier_name"`                       // 下单时确定的供应商
	SupplierOrderID     *string        `gorm:"type:varchar(120);index" json:"supplier_order_id,omitempty"`        // 供应商订单号（仅写入一次）
	SupplierOrderStatus string         `gorm:"type:varchar(40);index" json:"supplier_order_status"`               // 供应商订单状态
	TrackingNumber      *string        `gorm:"type:varchar(120)" json:"tracking_number,omitempty"`                // 物流单号
	TrackingURL         *string        `gorm:"type:varchar(500)" json:"tracking_url,omitempty"`                   // 物流查询链接
	TrackingUpdatedAt   *time.Time     `json:"tracking_updated_at,omitempty"`                                     // 物流更新时间
	AutoOrderAttempts   int            `gorm:"not null;default:0" json:"auto_order_attempts"`                     // 自动下单尝试次数
	AutoOrderError      *string        `gorm:"type:text" json:"auto_order_error,omitempty"`                       // 最近一次下单错误
	LastAutoOrderAt     *time.Time     `json:"last_auto_order_at,omitempty"`                                      // 最近一次下单时间
	DispatchToken       *string        `gorm:"type:varchar(64)" json:"-"`                                         // 下单占用令牌
	DispatchClaimedAt   *time.Time     `json:"-"`                                                                 // 下单占用时间
	PaidAt              *time.Time     `gorm:"index" json:"paid_at,omitempty"`                                    // 支付时间
	CreatedAt           time.Time      `gorm:"index" json:"created_at"`                                           // 创建时间
	UpdatedAt           time.Time      `gorm:"index" json:"updated_at"`                                           // 更新时间
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`                                                    // 软删除时间

	Items    []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Customer *Customer   `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// HasSupplierOrder 是否已在供应商侧建单
func (o *Order) HasSupplierOrder() bool {
	return o != nil && o.SupplierOrderID != nil && *o.SupplierOrderID != ""
}

// OrderItem 订单项表
type OrderItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	OrderID   uint      `gorm:"index;not null" json:"order_id"`
	ProductID uint      `gorm:"index;not null" json:"product_id"`
	VariantID *uint     `gorm:"index" json:"variant_id,omitempty"`
	Name      string    `json:"name"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`
	UnitPrice Money     `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`
	CreatedAt time.Time `json:"created_at"`

	Product *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Variant *ProductVariant `gorm:"foreignKey:VariantID" json:"variant,omitempty"`
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
