package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/voltdrop/internal/constants"
	"github.com/voltdrop/internal/logger"
	"github.com/voltdrop/internal/provider"
	"github.com/voltdrop/internal/queue"
	"github.com/voltdrop/internal/service"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Consumer 把队列任务转交给履约服务
type Consumer struct {
	*provider.Container
}

func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{Container: c}
}

func (c *Consumer) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(queue.TaskSupplierDispatch, c.handleSupplierDispatch)
	mux.HandleFunc(queue.TaskSupplierTrackingRefresh, c.handleSupplierTrackingRefresh)
	mux.HandleFunc(queue.TaskOrderShipmentEmail, c.handleOrderShipmentEmail)
}

// decodeOrderTask 解析载荷并返回带任务字段的日志；载荷损坏时不再重试，order_id 为 0 时 ok=false
func decodeOrderTask[T queue.OrderScoped](ctx context.Context, task *asynq.Task) (payload T, log *zap.SugaredLogger, ok bool, err error) {
	log = logger.FromContext(ctx).With("task_type", task.Type())
	if err = json.Unmarshal(task.Payload(), &payload); err != nil {
		log.Warnw("worker_task_payload_invalid", "error", err)
		return payload, log, false, fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if payload.TargetOrderID() == 0 {
		log.Debugw("worker_task_skip_without_order")
		return payload, log, false, nil
	}
	return payload, log.With("order_id", payload.TargetOrderID()), true, nil
}

func (c *Consumer) handleSupplierDispatch(ctx context.Context, task *asynq.Task) error {
	payload, log, ok, err := decodeOrderTask[queue.SupplierDispatchPayload](ctx, task)
	if !ok {
		return err
	}
	result, err := c.DispatchService.Dispatch(logger.WithContext(ctx, log), payload.OrderID)
	if err != nil {
		log.Warnw("worker_supplier_dispatch_failed", "error", err)
		return err
	}
	// 供应商失败已记在订单上，由重试调度接手
	if result.Outcome == constants.DispatchOutcomeFailed {
		log.Infow("worker_supplier_dispatch_deferred_to_retry", "error", result.Error)
	}
	return nil
}

func (c *Consumer) handleSupplierTrackingRefresh(ctx context.Context, task *asynq.Task) error {
	payload, log, ok, err := decodeOrderTask[queue.SupplierTrackingRefreshPayload](ctx, task)
	if !ok {
		return err
	}
	_, err = c.TrackingService.UpdateTracking(logger.WithContext(ctx, log), payload.OrderID)
	if errors.Is(err, service.ErrOrderNotFound) {
		log.Debugw("worker_tracking_refresh_skip_order_not_found")
		return nil
	}
	if err != nil {
		log.Warnw("worker_tracking_refresh_failed", "error", err)
	}
	return err
}

// 这些错误重试也不会成功
var permanentEmailErrors = []error{
	service.ErrOrderNotFound,
	service.ErrEmailServiceDisabled,
	service.ErrEmailServiceNotConfigured,
	service.ErrInvalidEmail,
	service.ErrEmailRecipientRejected,
}

func (c *Consumer) handleOrderShipmentEmail(ctx context.Context, task *asynq.Task) error {
	payload, log, ok, err := decodeOrderTask[queue.OrderShipmentEmailPayload](ctx, task)
	if !ok {
		return err
	}
	err = c.ShipmentEmailService.SendShipmentEmail(logger.WithContext(ctx, log), payload.OrderID, payload.FulfillmentStatus)
	if err == nil {
		return nil
	}
	for _, permanent := range permanentEmailErrors {
		if errors.Is(err, permanent) {
			log.Debugw("worker_shipment_email_skip", "reason", err)
			return nil
		}
	}
	log.Warnw("worker_shipment_email_send_failed", "error", err)
	return err
}
