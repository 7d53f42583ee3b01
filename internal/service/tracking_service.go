package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/voltdrop/internal/constants"
	"github.com/voltdrop/internal/logger"
	"github.com/voltdrop/internal/models"
	"github.com/voltdrop/internal/queue"
	"github.com/voltdrop/internal/repository"
	"github.com/voltdrop/internal/supplier"

	"gorm.io/gorm"
)

// ShipmentNotifier 发货通知（队列未启用时同步发送）
type ShipmentNotifier interface {
	SendShipmentEmail(ctx context.Context, orderID uint, fulfillmentStatus string) error
}

// TrackingServiceOptions 物流服务依赖
type TrackingServiceOptions struct {
	DB          *gorm.DB
	OrderRepo   repository.OrderRepository
	Events      *SupplierEventLog
	Suppliers   SupplierResolver
	QueueClient *queue.Client
	Notifier    ShipmentNotifier
}

// TrackingService 拉取供应商物流并同步履约状态
type TrackingService struct {
	db          *gorm.DB
	orderRepo   repository.OrderRepository
	events      *SupplierEventLog
	suppliers   SupplierResolver
	queueClient *queue.Client
	notifier    ShipmentNotifier
	now         func() time.Time
}

// NewTrackingService 创建物流服务
func NewTrackingService(opts TrackingServiceOptions) *TrackingService {
	return &TrackingService{
		db:          opts.DB,
		orderRepo:   opts.OrderRepo,
		events:      opts.Events,
		suppliers:   opts.Suppliers,
		queueClient: opts.QueueClient,
		notifier:    opts.Notifier,
		now:         time.Now,
	}
}

// mapTrackingToFulfillment 物流状态映射到履约状态
// 已分配物流信息视为已发出，processing 乐观推进为 shipped
func mapTrackingToFulfillment(trackingStatus, current string) string {
	switch {
	case trackingStatus == constants.TrackingStatusDelivered:
		return constants.FulfillmentStatusDelivered
	case trackingStatus == constants.TrackingStatusShipped:
		return constants.FulfillmentStatusShipped
	case current == constants.FulfillmentStatusProcessing:
		return constants.FulfillmentStatusShipped
	default:
		return current
	}
}

// supplierStatusFromTracking 物流状态隐含的供应商订单状态
func supplierStatusFromTracking(trackingStatus string) string {
	switch trackingStatus {
	case constants.TrackingStatusDelivered:
		return constants.SupplierStatusDelivered
	case constants.TrackingStatusShipped:
		return constants.SupplierStatusShipped
	default:
		return ""
	}
}

// UpdateTracking 刷新订单物流信息
// 订单尚未在供应商侧建单时返回 (nil, nil)
func (s *TrackingService) UpdateTracking(ctx context.Context, orderID uint) (*models.Order, error) {
	log := logger.FromContext(ctx)
	order, err := s.orderRepo.GetForFulfillment(orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !order.HasSupplierOrder() {
		return nil, nil
	}

	supplierName := resolveSupplierName(order, s.suppliers.DefaultKind())
	adapter, err := s.suppliers.Resolve(supplierName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTrackingFetchFailed, err)
	}
	tracking, err := adapter.GetTracking(ctx, *order.SupplierOrderID)
	if err != nil {
		log.Warnw("supplier_tracking_fetch_failed",
			"order_id", order.ID,
			"supplier", supplierName,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrTrackingFetchFailed, err)
	}
	if tracking == nil {
		tracking = &supplier.TrackingResult{Status: constants.TrackingStatusPending}
	}

	now := s.now()
	oldFulfillment := order.FulfillmentStatus
	newFulfillment := mapTrackingToFulfillment(tracking.Status, oldFulfillment)
	oldSupplierStatus := order.SupplierOrderStatus
	newSupplierStatus := oldSupplierStatus
	if implied := supplierStatusFromTracking(tracking.Status); implied != "" && supplier.IsAhead(oldSupplierStatus, implied) {
		newSupplierStatus = implied
	}

	trackingNumber := order.TrackingNumber
	if tracking.TrackingNumber != "" {
		trackingNumber = &tracking.TrackingNumber
	}
	trackingURL := order.TrackingURL
	if tracking.TrackingURL != "" {
		trackingURL = &tracking.TrackingURL
	}

	updates := map[string]interface{}{
		"tracking_number":     trackingNumber,
		"tracking_url":        trackingURL,
		"tracking_updated_at": now,
		"fulfillment_status":  newFulfillment,
	}
	statusChanged := newSupplierStatus != oldSupplierStatus
	fulfillmentChanged := newFulfillment != oldFulfillment
	if statusChanged {
		updates["supplier_order_status"] = newSupplierStatus
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		ok, err := repo.UpdateSupplierStatus(order.ID, oldSupplierStatus, updates)
		if err != nil {
			return err
		}
		if !ok {
			return errSupplierStatusMoved
		}
		if statusChanged || fulfillmentChanged {
			metadata := models.JSON{
				"supplier":        supplierName,
				"source":          "tracking",
				"tracking_status": tracking.Status,
			}
			if fulfillmentChanged {
				metadata["fulfillment_from"] = oldFulfillment
				metadata["fulfillment_to"] = newFulfillment
			}
			if trackingNumber != nil {
				metadata["tracking_number"] = *trackingNumber
			}
			if tracking.Carrier != "" {
				metadata["carrier"] = tracking.Carrier
			}
			s.events.Record(ctx, tx, order.ID, oldSupplierStatus, newSupplierStatus, metadata)
		}
		return nil
	})
	if errors.Is(err, errSupplierStatusMoved) {
		// 状态已被并发更新，本次刷新结果作废
		log.Infow("supplier_tracking_update_conflict", "order_id", order.ID, "expected", oldSupplierStatus)
		return s.orderRepo.GetByID(order.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderUpdateFailed, err)
	}

	order.TrackingNumber = trackingNumber
	order.TrackingURL = trackingURL
	order.TrackingUpdatedAt = &now
	order.FulfillmentStatus = newFulfillment
	order.SupplierOrderStatus = newSupplierStatus

	log.Infow("supplier_tracking_updated",
		"order_id", order.ID,
		"tracking_status", tracking.Status,
		"fulfillment_status", newFulfillment,
		"supplier_status", newSupplierStatus,
	)
	if fulfillmentChanged && (newFulfillment == constants.FulfillmentStatusShipped || newFulfillment == constants.FulfillmentStatusDelivered) {
		s.notifyShipment(ctx, order.ID, newFulfillment)
	}
	return order, nil
}

func (s *TrackingService) notifyShipment(ctx context.Context, orderID uint, fulfillmentStatus string) {
	log := logger.FromContext(ctx)
	if s.queueClient.Enabled() {
		if err := s.queueClient.EnqueueOrderShipmentEmail(queue.OrderShipmentEmailPayload{
			OrderID:           orderID,
			FulfillmentStatus: fulfillmentStatus,
		}); err != nil {
			log.Warnw("order_shipment_email_enqueue_failed", "order_id", orderID, "error", err)
		}
		return
	}
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendShipmentEmail(ctx, orderID, fulfillmentStatus); err != nil {
		log.Warnw("order_shipment_email_send_failed", "order_id", orderID, "error", err)
	}
}
