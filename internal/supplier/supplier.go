// Package supplier 封装各供应商的下单、状态查询与物流接口
package supplier

import (
	"context"
	"errors"
	"strings"
)

// Kind 供应商类型
type Kind string

const (
	KindBigBuy  Kind = "bigbuy"
	KindCJ      Kind = "cj"
	KindSandbox Kind = "sandbox"
)

var (
	ErrUnknownSupplier    = errors.New("unknown supplier")
	ErrInvalidOrder       = errors.New("invalid supplier order payload")
	ErrSupplierOrderEmpty = errors.New("supplier returned empty order id")
	ErrOrderNotFound      = errors.New("supplier order not found")
)

// ParseKind 解析供应商类型，未知类型返回 ErrUnknownSupplier
func ParseKind(name string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(name))) {
	case KindBigBuy:
		return KindBigBuy, nil
	case KindCJ:
		return KindCJ, nil
	case KindSandbox:
		return KindSandbox, nil
	default:
		return "", ErrUnknownSupplier
	}
}

// Adapter 供应商能力接口
type Adapter interface {
	Kind() Kind
	CreateOrder(ctx context.Context, order NormalizedOrder) (*CreateResult, error)
	GetOrderStatus(ctx context.Context, supplierOrderID string) (*StatusResult, error)
	GetTracking(ctx context.Context, supplierOrderID string) (*TrackingResult, error)
}

// CreateResult 下单结果
type CreateResult struct {
	SupplierOrderID string
}

// StatusResult 订单状态查询结果，Status 为归一化后的供应商订单状态
type StatusResult struct {
	Status         string
	RawStatus      string
	TrackingNumber string
	TrackingURL    string
}

// TrackingResult 物流查询结果，Status 为归一化后的物流状态
type TrackingResult struct {
	Status         string
	RawStatus      string
	TrackingNumber string
	TrackingURL    string
	Carrier        string
}
