package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/voltdrop/internal/cache"
	"github.com/voltdrop/internal/constants"
	"github.com/voltdrop/internal/logger"
	"github.com/voltdrop/internal/models"
	"github.com/voltdrop/internal/queue"
	"github.com/voltdrop/internal/repository"
	"github.com/voltdrop/internal/supplier"

	"gorm.io/gorm"
)

const (
	pollLockTTL         = 10 * time.Minute
	lastPollCacheKey    = "fulfillment:last_poll"
	lastPollCacheTTL    = 24 * time.Hour
	defaultPollBatch    = 200
	trackingRefreshWait = 5 * time.Second
)

// 单笔轮询结果
const (
	PollOutcomeUpdated   = "updated"
	PollOutcomeUnchanged = "unchanged"
	PollOutcomeFailed    = "failed"
)

var errSupplierStatusMoved = errors.New("supplier status changed concurrently")

// BatchLocker 批处理互斥锁
type BatchLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Unlock(ctx context.Context, key, token string) error
}

// PollItemResult 单个订单的轮询结果
type PollItemResult struct {
	OrderID   uint   `json:"order_id"`
	OrderNo   string `json:"order_no,omitempty"`
	Supplier  string `json:"supplier,omitempty"`
	OldStatus string `json:"old_status,omitempty"`
	NewStatus string `json:"new_status,omitempty"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
}

// PollResult 一次轮询的汇总
type PollResult struct {
	StoreID    *uint            `json:"store_id,omitempty"`
	Processed  int              `json:"processed"`
	Updated    int              `json:"updated"`
	Unchanged  int              `json:"unchanged"`
	Failed     int              `json:"failed"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Items      []PollItemResult `json:"items"`
}

func (r *PollResult) add(item PollItemResult) {
	r.Processed++
	switch item.Outcome {
	case PollOutcomeUpdated:
		r.Updated++
	case PollOutcomeFailed:
		r.Failed++
	default:
		r.Unchanged++
	}
	r.Items = append(r.Items, item)
}

// SupplierStatusUpdate 供应商推送或轮询得到的状态
type SupplierStatusUpdate struct {
	SupplierOrderID string
	Status          string
	RawStatus       string
	TrackingNumber  string
	TrackingURL     string
	Source          string
}

// StatusPollerOptions 轮询服务依赖
type StatusPollerOptions struct {
	DB          *gorm.DB
	OrderRepo   repository.OrderRepository
	Events      *SupplierEventLog
	Suppliers   SupplierResolver
	QueueClient *queue.Client
	Locker      BatchLocker
	Tracking    *TrackingService
	BatchSize   int
}

// StatusPoller 轮询供应商订单状态
type StatusPoller struct {
	db          *gorm.DB
	orderRepo   repository.OrderRepository
	events      *SupplierEventLog
	suppliers   SupplierResolver
	queueClient *queue.Client
	locker      BatchLocker
	tracking    *TrackingService
	batchSize   int
	now         func() time.Time
}

// NewStatusPoller 创建轮询服务
func NewStatusPoller(opts StatusPollerOptions) *StatusPoller {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultPollBatch
	}
	locker := opts.Locker
	if locker == nil {
		locker = cache.RedisLocker{}
	}
	return &StatusPoller{
		db:          opts.DB,
		orderRepo:   opts.OrderRepo,
		events:      opts.Events,
		suppliers:   opts.Suppliers,
		queueClient: opts.QueueClient,
		locker:      locker,
		tracking:    opts.Tracking,
		batchSize:   batchSize,
		now:         time.Now,
	}
}

func pollLockKey(storeID *uint) string {
	if storeID == nil {
		return "fulfillment:poll:all"
	}
	return fmt.Sprintf("fulfillment:poll:store:%d", *storeID)
}

// Poll 顺序轮询所有在途订单，单笔失败不影响后续订单
func (s *StatusPoller) Poll(ctx context.Context, storeID *uint) (*PollResult, error) {
	log := logger.FromContext(ctx)
	lockKey := pollLockKey(storeID)
	token, ok, err := s.locker.TryLock(ctx, lockKey, pollLockTTL)
	if err != nil {
		log.Warnw("supplier_poll_lock_failed", "key", lockKey, "error", err)
		return nil, err
	}
	if !ok {
		return nil, ErrPollInProgress
	}
	defer func() {
		if err := s.locker.Unlock(context.Background(), lockKey, token); err != nil {
			log.Warnw("supplier_poll_unlock_failed", "key", lockKey, "error", err)
		}
	}()

	result := &PollResult{StoreID: storeID, StartedAt: s.now(), Items: make([]PollItemResult, 0)}
	candidates, err := s.orderRepo.ListPollCandidates(repository.PollCandidateFilter{
		StoreID: storeID,
		Limit:   s.batchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}

	for i := range candidates {
		if err := ctx.Err(); err != nil {
			result.FinishedAt = s.now()
			return result, err
		}
		result.add(s.pollOne(ctx, &candidates[i]))
	}
	result.FinishedAt = s.now()

	log.Infow("supplier_poll_done",
		"store_id", storeID,
		"processed", result.Processed,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
		"failed", result.Failed,
	)
	if err := cache.SetJSON(ctx, lastPollCacheKey, result, lastPollCacheTTL); err != nil {
		log.Warnw("supplier_poll_summary_cache_failed", "error", err)
	}
	return result, nil
}

// LastPollResult 最近一次轮询汇总（Redis 未启用时为空）
func (s *StatusPoller) LastPollResult(ctx context.Context) (*PollResult, error) {
	var result PollResult
	hit, err := cache.GetJSON(ctx, lastPollCacheKey, &result)
	if err != nil {
		return nil, err
	}
	if !hit {
		return nil, nil
	}
	return &result, nil
}

func (s *StatusPoller) pollOne(ctx context.Context, order *models.Order) PollItemResult {
	item := PollItemResult{
		OrderID:   order.ID,
		OrderNo:   order.OrderNo,
		OldStatus: order.SupplierOrderStatus,
	}
	supplierName := resolveSupplierName(order, s.suppliers.DefaultKind())
	item.Supplier = supplierName

	adapter, err := s.suppliers.Resolve(supplierName)
	if err != nil {
		return failedPollItem(ctx, item, err)
	}
	status, err := adapter.GetOrderStatus(ctx, stringValue(order.SupplierOrderID))
	if err != nil {
		return failedPollItem(ctx, item, err)
	}
	if status == nil || status.Status == "" {
		raw := ""
		if status != nil {
			raw = status.RawStatus
		}
		return failedPollItem(ctx, item, fmt.Errorf("unrecognized supplier status %q", raw))
	}

	return s.applyTransition(ctx, order, item, SupplierStatusUpdate{
		SupplierOrderID: stringValue(order.SupplierOrderID),
		Status:          status.Status,
		RawStatus:       status.RawStatus,
		TrackingNumber:  status.TrackingNumber,
		TrackingURL:     status.TrackingURL,
		Source:          "poll",
	})
}

func failedPollItem(ctx context.Context, item PollItemResult, err error) PollItemResult {
	logger.FromContext(ctx).Warnw("supplier_poll_order_failed",
		"order_id", item.OrderID,
		"supplier", item.Supplier,
		"error", err,
	)
	item.Outcome = PollOutcomeFailed
	item.Error = truncateError(err)
	return item
}

// applyTransition 状态不同且不回退时，条件更新订单并写入事件
func (s *StatusPoller) applyTransition(ctx context.Context, order *models.Order, item PollItemResult, update SupplierStatusUpdate) PollItemResult {
	log := logger.FromContext(ctx)
	current := order.SupplierOrderStatus
	item.NewStatus = update.Status

	if update.Status == current {
		item.Outcome = PollOutcomeUnchanged
		s.fillMissingTracking(ctx, order, update)
		return item
	}
	if !supplier.IsAhead(current, update.Status) {
		log.Infow("supplier_status_regression_ignored",
			"order_id", order.ID,
			"current", current,
			"reported", update.Status,
			"source", update.Source,
		)
		item.Outcome = PollOutcomeUnchanged
		return item
	}

	now := s.now()
	updates := map[string]interface{}{"supplier_order_status": update.Status}
	if update.TrackingNumber != "" {
		updates["tracking_number"] = update.TrackingNumber
		updates["tracking_updated_at"] = now
	}
	if update.TrackingURL != "" {
		updates["tracking_url"] = update.TrackingURL
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		ok, err := s.orderRepo.WithTx(tx).UpdateSupplierStatus(order.ID, current, updates)
		if err != nil {
			return err
		}
		if !ok {
			return errSupplierStatusMoved
		}
		metadata := models.JSON{"supplier": item.Supplier, "source": update.Source}
		if update.RawStatus != "" {
			metadata["raw_status"] = update.RawStatus
		}
		if update.TrackingNumber != "" {
			metadata["tracking_number"] = update.TrackingNumber
		}
		s.events.Record(ctx, tx, order.ID, current, update.Status, metadata)
		return nil
	})
	if errors.Is(err, errSupplierStatusMoved) {
		log.Infow("supplier_status_update_conflict", "order_id", order.ID, "expected", current)
		item.Outcome = PollOutcomeUnchanged
		return item
	}
	if err != nil {
		return failedPollItem(ctx, item, fmt.Errorf("%w: %v", ErrOrderUpdateFailed, err))
	}

	log.Infow("supplier_status_updated",
		"order_id", order.ID,
		"old_status", current,
		"new_status", update.Status,
		"source", update.Source,
	)
	item.Outcome = PollOutcomeUpdated
	if update.Status == constants.SupplierStatusShipped || update.Status == constants.SupplierStatusDelivered {
		s.scheduleTrackingRefresh(ctx, order.ID)
	}
	return item
}

// fillMissingTracking 状态未变但供应商首次返回物流单号时补齐
func (s *StatusPoller) fillMissingTracking(ctx context.Context, order *models.Order, update SupplierStatusUpdate) {
	if update.TrackingNumber == "" || stringValue(order.TrackingNumber) != "" {
		return
	}
	updates := map[string]interface{}{
		"tracking_number":     update.TrackingNumber,
		"tracking_updated_at": s.now(),
	}
	if update.TrackingURL != "" {
		updates["tracking_url"] = update.TrackingURL
	}
	if err := s.orderRepo.UpdateFields(order.ID, updates); err != nil {
		logger.FromContext(ctx).Warnw("supplier_tracking_fill_failed", "order_id", order.ID, "error", err)
	}
}

// scheduleTrackingRefresh 队列可用时异步刷新物流，否则同步刷新
func (s *StatusPoller) scheduleTrackingRefresh(ctx context.Context, orderID uint) {
	log := logger.FromContext(ctx)
	if s.queueClient.Enabled() {
		if err := s.queueClient.EnqueueSupplierTrackingRefresh(queue.SupplierTrackingRefreshPayload{OrderID: orderID}, trackingRefreshWait); err != nil {
			log.Warnw("supplier_tracking_refresh_enqueue_failed", "order_id", orderID, "error", err)
		}
		return
	}
	if s.tracking == nil {
		return
	}
	if _, err := s.tracking.UpdateTracking(ctx, orderID); err != nil {
		log.Warnw("supplier_tracking_refresh_failed", "order_id", orderID, "error", err)
	}
}

// ApplySupplierUpdate 处理供应商主动推送的状态变更
func (s *StatusPoller) ApplySupplierUpdate(ctx context.Context, supplierName string, update SupplierStatusUpdate) (*PollItemResult, error) {
	kind, err := supplier.ParseKind(supplierName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSupplierWebhookInvalid, err)
	}
	update.SupplierOrderID = strings.TrimSpace(update.SupplierOrderID)
	if update.SupplierOrderID == "" {
		return nil, fmt.Errorf("%w: supplier_order_id is required", ErrSupplierWebhookInvalid)
	}
	if update.RawStatus == "" {
		update.RawStatus = update.Status
	}
	update.Status = supplier.NormalizeStatus(update.Status)
	if update.Status == "" {
		return nil, fmt.Errorf("%w: unrecognized status %q", ErrSupplierWebhookInvalid, update.RawStatus)
	}
	if update.Source == "" {
		update.Source = "webhook"
	}

	order, err := s.orderRepo.GetBySupplierOrderID(string(kind), update.SupplierOrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	item := s.applyTransition(ctx, order, PollItemResult{
		OrderID:   order.ID,
		OrderNo:   order.OrderNo,
		Supplier:  string(kind),
		OldStatus: order.SupplierOrderStatus,
	}, update)
	if item.Outcome == PollOutcomeFailed {
		return &item, fmt.Errorf("%w: %s", ErrOrderUpdateFailed, item.Error)
	}
	return &item, nil
}
