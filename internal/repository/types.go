package repository

import "time"

// OrderListFilter 后台订单列表的过滤条件
type OrderListFilter struct {
	Page                int
	PageSize            int
	StoreID             uint
	OrderNo             string
	Search              string
	SupplierName        string
	SupplierOrderStatus string
	FulfillmentStatus   string
	PaymentStatus       string
	ShippingCountry     string
	CreatedFrom         *time.Time
	CreatedTo           *time.Time
}

// PollCandidateFilter 状态轮询候选订单的过滤条件
type PollCandidateFilter struct {
	StoreID  *uint
	Statuses []string
	Limit    int
}

// RetryCandidateFilter 自动下单重试候选订单的过滤条件
type RetryCandidateFilter struct {
	MaxAttempts int
	Limit       int
	// 最近一次尝试早于该时间才会重试，为空不限制
	LastAttemptBefore *time.Time
}

// RecentOrderFilter 风险评分用的近期订单统计条件
type RecentOrderFilter struct {
	StoreID        uint
	ExcludeOrderID uint
	CustomerID     *uint
	Email          string
	Since          time.Time
}

// OperatorAuditListFilter 操作审计日志过滤条件
type OperatorAuditListFilter struct {
	Page            int
	PageSize        int
	OperatorAdminID uint
	OrderID         uint
	Action          string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
}
