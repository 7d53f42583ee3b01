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

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

const defaultDispatchClaimTTL = 2 * time.Minute

// DispatchResult 单笔自动下单结果
type DispatchResult struct {
	OrderID         uint   `json:"order_id"`
	OrderNo         string `json:"order_no,omitempty"`
	Outcome         string `json:"outcome"`
	Reason          string `json:"reason,omitempty"`
	Supplier        string `json:"supplier,omitempty"`
	SupplierOrderID string `json:"supplier_order_id,omitempty"`
	Error           string `json:"error,omitempty"`
}

// BatchDispatchResult 批量重试结果
type BatchDispatchResult struct {
	Processed int               `json:"processed"`
	Sent      int               `json:"sent"`
	Failed    int               `json:"failed"`
	Skipped   int               `json:"skipped"`
	Items     []*DispatchResult `json:"items"`
}

// DispatchQueue 下单任务投递端，由 *queue.Client 实现
type DispatchQueue interface {
	Enabled() bool
	EnqueueSupplierDispatch(payload queue.SupplierDispatchPayload, opts ...asynq.Option) error
}

// DispatchServiceOptions 自动下单服务依赖
type DispatchServiceOptions struct {
	DB        *gorm.DB
	OrderRepo repository.OrderRepository
	Events    *SupplierEventLog
	Suppliers SupplierResolver
	Queue     DispatchQueue
	ClaimTTL  time.Duration

	// RetryBackoff 同一订单两次自动重试之间的最短间隔，0 不限制
	RetryBackoff time.Duration
}

// DispatchService 向供应商自动下单
type DispatchService struct {
	db        *gorm.DB
	orderRepo repository.OrderRepository
	events    *SupplierEventLog
	suppliers SupplierResolver
	queue     DispatchQueue
	claimTTL  time.Duration
	backoff   time.Duration
	now       func() time.Time
}

// NewDispatchService 创建自动下单服务
func NewDispatchService(opts DispatchServiceOptions) *DispatchService {
	claimTTL := opts.ClaimTTL
	if claimTTL <= 0 {
		claimTTL = defaultDispatchClaimTTL
	}
	return &DispatchService{
		db:        opts.DB,
		orderRepo: opts.OrderRepo,
		events:    opts.Events,
		suppliers: opts.Suppliers,
		queue:     opts.Queue,
		claimTTL:  claimTTL,
		backoff:   opts.RetryBackoff,
		now:       time.Now,
	}
}

// Dispatch 把订单发送给供应商
// 供应商调用失败会记录到订单上，不作为错误返回；只有读取订单失败才返回错误
func (s *DispatchService) Dispatch(ctx context.Context, orderID uint) (*DispatchResult, error) {
	log := logger.FromContext(ctx)
	order, err := s.orderRepo.GetForFulfillment(orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if order == nil {
		log.Warnw("supplier_dispatch_order_not_found", "order_id", orderID)
		return &DispatchResult{OrderID: orderID, Outcome: constants.DispatchOutcomeNotFound}, nil
	}

	result := &DispatchResult{OrderID: order.ID, OrderNo: order.OrderNo}
	if reason := dispatchSkipReason(order); reason != "" {
		result.Outcome = constants.DispatchOutcomeSkipped
		result.Reason = reason
		if order.HasSupplierOrder() {
			result.Supplier = order.SupplierName
			result.SupplierOrderID = *order.SupplierOrderID
		}
		log.Infow("supplier_dispatch_skipped", "order_id", order.ID, "reason", reason)
		return result, nil
	}

	token := uuid.NewString()
	now := s.now()
	claimed, err := s.orderRepo.ClaimDispatch(order.ID, token, now, now.Add(-s.claimTTL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderUpdateFailed, err)
	}
	if !claimed {
		result.Outcome = constants.DispatchOutcomeSkipped
		result.Reason = constants.DispatchSkipInFlight
		log.Infow("supplier_dispatch_skipped", "order_id", order.ID, "reason", result.Reason)
		return result, nil
	}

	supplierName := resolveSupplierName(order, s.suppliers.DefaultKind())
	result.Supplier = supplierName

	adapter, err := s.suppliers.Resolve(supplierName)
	if err != nil {
		return s.recordFailure(ctx, order, token, result, err)
	}
	payload := buildNormalizedOrder(order)
	created, err := adapter.CreateOrder(ctx, payload)
	if err == nil && (created == nil || created.SupplierOrderID == "") {
		err = supplier.ErrSupplierOrderEmpty
	}
	if err != nil {
		return s.recordFailure(ctx, order, token, result, err)
	}
	return s.recordSuccess(ctx, order, token, result, string(adapter.Kind()), created.SupplierOrderID)
}

// Schedule 队列可用时异步下单，否则同步下单
// 返回 nil 结果表示已入队；该订单已有任务在排队时返回 already_queued 跳过结果
func (s *DispatchService) Schedule(ctx context.Context, orderID uint) (*DispatchResult, error) {
	if s.queue == nil || !s.queue.Enabled() {
		return s.Dispatch(ctx, orderID)
	}
	log := logger.FromContext(ctx)
	err := s.queue.EnqueueSupplierDispatch(queue.SupplierDispatchPayload{OrderID: orderID})
	switch {
	case errors.Is(err, queue.ErrAlreadyQueued):
		log.Infow("supplier_dispatch_skipped", "order_id", orderID, "reason", constants.DispatchSkipQueued)
		return &DispatchResult{OrderID: orderID, Outcome: constants.DispatchOutcomeSkipped, Reason: constants.DispatchSkipQueued}, nil
	case err != nil:
		log.Warnw("supplier_dispatch_enqueue_failed", "order_id", orderID, "error", err)
		return nil, err
	}
	return nil, nil
}

func dispatchSkipReason(order *models.Order) string {
	switch {
	case order.HasSupplierOrder():
		return constants.DispatchSkipAlreadySent
	case order.PaymentStatus != constants.PaymentStatusPaid:
		return constants.DispatchSkipNotPaid
	case order.FulfillmentStatus == constants.FulfillmentStatusCancelled:
		return constants.DispatchSkipCancelled
	case len(order.Items) == 0:
		return constants.DispatchSkipNoItems
	default:
		return ""
	}
}

func (s *DispatchService) recordSuccess(ctx context.Context, order *models.Order, token string, result *DispatchResult, supplierName, supplierOrderID string) (*DispatchResult, error) {
	log := logger.FromContext(ctx)
	oldStatus := previousSupplierStatus(order)
	now := s.now()
	updates := map[string]interface{}{
		"supplier_order_id":     supplierOrderID,
		"supplier_order_status": constants.SupplierStatusSentToSupplier,
		"supplier_name":         supplierName,
		"auto_order_error":      nil,
		"last_auto_order_at":    now,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		ok, err := repo.CompleteDispatch(order.ID, token, updates)
		if err != nil {
			return err
		}
		if !ok {
			// 占用已被接管；订单仍没有单号时以本次供应商单号为准
			adopted, err := repo.AdoptSupplierOrder(order.ID, updates)
			if err != nil {
				return err
			}
			if !adopted {
				return ErrDispatchConflict
			}
			log.Warnw("supplier_dispatch_claim_lost", "order_id", order.ID, "adopted", true)
		}
		s.events.Record(ctx, tx, order.ID, oldStatus, constants.SupplierStatusSentToSupplier, models.JSON{
			"supplier":          supplierName,
			"supplier_order_id": supplierOrderID,
			"attempt":           order.AutoOrderAttempts + 1,
		})
		return nil
	})
	result.Supplier = supplierName
	result.SupplierOrderID = supplierOrderID
	if err != nil {
		// 供应商侧已建单但本地未能落库，需要人工对账
		log.Errorw("supplier_dispatch_persist_failed",
			"order_id", order.ID,
			"supplier", supplierName,
			"supplier_order_id", supplierOrderID,
			"error", err,
		)
		result.Outcome = constants.DispatchOutcomeFailed
		result.Error = err.Error()
		if errors.Is(err, ErrDispatchConflict) {
			return result, nil
		}
		return result, fmt.Errorf("%w: %v", ErrOrderUpdateFailed, err)
	}
	log.Infow("supplier_dispatch_sent",
		"order_id", order.ID,
		"supplier", supplierName,
		"supplier_order_id", supplierOrderID,
	)
	result.Outcome = constants.DispatchOutcomeSent
	return result, nil
}

func (s *DispatchService) recordFailure(ctx context.Context, order *models.Order, token string, result *DispatchResult, cause error) (*DispatchResult, error) {
	log := logger.FromContext(ctx)
	oldStatus := previousSupplierStatus(order)
	message := truncateError(cause)
	result.Outcome = constants.DispatchOutcomeFailed
	result.Error = message
	log.Warnw("supplier_dispatch_failed",
		"order_id", order.ID,
		"supplier", result.Supplier,
		"attempt", order.AutoOrderAttempts+1,
		"error", cause,
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		ok, err := s.orderRepo.WithTx(tx).ReleaseDispatch(order.ID, token, map[string]interface{}{
			"supplier_order_status": constants.SupplierStatusPending,
			"auto_order_error":      message,
			"last_auto_order_at":    s.now(),
		})
		if err != nil {
			return err
		}
		if !ok {
			return ErrDispatchConflict
		}
		s.events.Record(ctx, tx, order.ID, oldStatus, constants.SupplierStatusPending, models.JSON{
			"supplier": result.Supplier,
			"error":    message,
			"attempt":  order.AutoOrderAttempts + 1,
		})
		return nil
	})
	if errors.Is(err, ErrDispatchConflict) {
		// 占用已被其他执行者接管，本次失败不计入订单
		log.Warnw("supplier_dispatch_claim_lost", "order_id", order.ID, "adopted", false)
		result.Outcome = constants.DispatchOutcomeSkipped
		result.Reason = constants.DispatchSkipInFlight
		return result, nil
	}
	if err != nil {
		log.Errorw("supplier_dispatch_release_failed", "order_id", order.ID, "error", err)
		return result, fmt.Errorf("%w: %v", ErrOrderUpdateFailed, err)
	}
	return result, nil
}

// RetryPending 对仍未下单成功的已支付订单顺序重试
// 尝试次数达到上限、或距上次尝试不足 RetryBackoff 的订单本轮跳过
func (s *DispatchService) RetryPending(ctx context.Context, maxAttempts, limit int) (*BatchDispatchResult, error) {
	log := logger.FromContext(ctx)
	filter := repository.RetryCandidateFilter{MaxAttempts: maxAttempts, Limit: limit}
	if s.backoff > 0 {
		before := s.now().Add(-s.backoff)
		filter.LastAttemptBefore = &before
	}
	candidates, err := s.orderRepo.ListRetryCandidates(filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}

	batch := &BatchDispatchResult{Items: make([]*DispatchResult, 0, len(candidates))}
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return batch, ctx.Err()
		}
		result, err := s.Dispatch(ctx, candidate.ID)
		if err != nil {
			log.Warnw("supplier_retry_dispatch_error", "order_id", candidate.ID, "error", err)
			if result == nil {
				result = &DispatchResult{OrderID: candidate.ID, OrderNo: candidate.OrderNo, Outcome: constants.DispatchOutcomeFailed}
			}
			if result.Error == "" {
				result.Error = err.Error()
			}
			result.Outcome = constants.DispatchOutcomeFailed
		}
		batch.Processed++
		switch result.Outcome {
		case constants.DispatchOutcomeSent:
			batch.Sent++
		case constants.DispatchOutcomeFailed:
			batch.Failed++
		default:
			batch.Skipped++
		}
		batch.Items = append(batch.Items, result)
	}
	if batch.Processed > 0 {
		log.Infow("supplier_retry_batch_done",
			"processed", batch.Processed,
			"sent", batch.Sent,
			"failed", batch.Failed,
			"skipped", batch.Skipped,
		)
	}
	return batch, nil
}
