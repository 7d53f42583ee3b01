package supplier

import (
	"context"
	"fmt"
	"sync"

	"github.com/voltdrop/internal/constants"
)

// SandboxAdapter 进程内模拟供应商，用于开发与测试
// 每次查询状态推进一步生命周期，发货后分配物流单号
type SandboxAdapter struct {
	mu       sync.Mutex
	seq      int
	byNo     map[string]string
	orders   map[string]*sandboxOrder
	failNext error
}

type sandboxOrder struct {
	status   string
	tracking string
}

// NewSandboxAdapter 创建沙箱适配器
func NewSandboxAdapter() *SandboxAdapter {
	return &SandboxAdapter{
		byNo:   make(map[string]string),
		orders: make(map[string]*sandboxOrder),
	}
}

// Kind 供应商类型
func (a *SandboxAdapter) Kind() Kind {
	return KindSandbox
}

// FailNext 让下一次调用返回指定错误
func (a *SandboxAdapter) FailNext(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failNext = err
}

func (a *SandboxAdapter) takeFailure() error {
	err := a.failNext
	a.failNext = nil
	return err
}

// CreateOrder 按本地订单号幂等建单
func (a *SandboxAdapter) CreateOrder(ctx context.Context, order NormalizedOrder) (*CreateResult, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takeFailure(); err != nil {
		return nil, err
	}
	if id, ok := a.byNo[order.OrderNo]; ok {
		return &CreateResult{SupplierOrderID: id}, nil
	}
	a.seq++
	id := fmt.Sprintf("SBX-%06d", a.seq)
	a.byNo[order.OrderNo] = id
	a.orders[id] = &sandboxOrder{status: constants.SupplierStatusSentToSupplier}
	return &CreateResult{SupplierOrderID: id}, nil
}

// GetOrderStatus 返回下一步状态
func (a *SandboxAdapter) GetOrderStatus(ctx context.Context, supplierOrderID string) (*StatusResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takeFailure(); err != nil {
		return nil, err
	}
	order, ok := a.orders[supplierOrderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	switch order.status {
	case constants.SupplierStatusSentToSupplier:
		order.status = constants.SupplierStatusAcceptedBySupplier
	case constants.SupplierStatusAcceptedBySupplier:
		order.status = constants.SupplierStatusShipped
		order.tracking = "SBXTRK" + supplierOrderID[len("SBX-"):]
	case constants.SupplierStatusShipped:
		order.status = constants.SupplierStatusDelivered
	}
	return &StatusResult{
		Status:         order.status,
		RawStatus:      order.status,
		TrackingNumber: order.tracking,
		TrackingURL:    sandboxTrackingURL(order.tracking),
	}, nil
}

// GetTracking 返回当前物流信息，不推进状态
func (a *SandboxAdapter) GetTracking(ctx context.Context, supplierOrderID string) (*TrackingResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takeFailure(); err != nil {
		return nil, err
	}
	order, ok := a.orders[supplierOrderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	status := constants.TrackingStatusPending
	switch order.status {
	case constants.SupplierStatusShipped:
		status = constants.TrackingStatusShipped
	case constants.SupplierStatusDelivered:
		status = constants.TrackingStatusDelivered
	}
	return &TrackingResult{
		Status:         status,
		RawStatus:      order.status,
		TrackingNumber: order.tracking,
		TrackingURL:    sandboxTrackingURL(order.tracking),
		Carrier:        "sandbox-post",
	}, nil
}

func sandboxTrackingURL(tracking string) string {
	if tracking == "" {
		return ""
	}
	return "https://track.sandbox.local/" + tracking
}
