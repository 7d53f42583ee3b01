package service

import (
	"fmt"

	"github.com/voltdrop/internal/models"
	"github.com/voltdrop/internal/repository"
)

// OrderAdminService 后台订单查询
type OrderAdminService struct {
	orderRepo repository.OrderRepository
	events    *SupplierEventLog
}

// NewOrderAdminService 创建后台订单服务
func NewOrderAdminService(orderRepo repository.OrderRepository, events *SupplierEventLog) *OrderAdminService {
	return &OrderAdminService{orderRepo: orderRepo, events: events}
}

// ListOrders 后台订单列表
func (s *OrderAdminService) ListOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	orders, total, err := s.orderRepo.ListAdmin(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	return orders, total, nil
}

// GetOrder 订单详情（含订单项、商品与顾客）
func (s *OrderAdminService) GetOrder(id uint) (*models.Order, error) {
	order, err := s.orderRepo.GetForFulfillment(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListSupplierEvents 订单的供应商状态时间线
func (s *OrderAdminService) ListSupplierEvents(orderID uint) ([]models.SupplierOrderEvent, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	events, err := s.events.ListByOrder(orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	return events, nil
}
