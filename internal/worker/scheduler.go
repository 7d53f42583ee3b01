package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/voltdrop/internal/config"
	"github.com/voltdrop/internal/logger"
	"github.com/voltdrop/internal/service"
)

const defaultPollInterval = 10 * time.Minute

type supplierPoller interface {
	Poll(ctx context.Context, storeID *uint) (*service.PollResult, error)
}

type dispatchRetrier interface {
	RetryPending(ctx context.Context, maxAttempts, limit int) (*service.BatchDispatchResult, error)
}

// Scheduler 定时轮询供应商状态并重试失败下单
// 与队列是否启用无关，多实例部署时由轮询锁与下单占位保证互斥
type Scheduler struct {
	cfg     config.FulfillmentConfig
	poller  supplierPoller
	retrier dispatchRetrier

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler 创建定时任务服务
func NewScheduler(cfg config.FulfillmentConfig, poller supplierPoller, retrier dispatchRetrier) *Scheduler {
	return &Scheduler{cfg: cfg, poller: poller, retrier: retrier}
}

// Name 服务名称
func (s *Scheduler) Name() string {
	return "scheduler"
}

// Start 启动定时任务，阻塞直到 ctx 结束
func (s *Scheduler) Start(ctx context.Context) error {
	if s == nil || (s.poller == nil && s.retrier == nil) {
		return errors.New("scheduler not initialized")
	}
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	if s.poller != nil {
		s.spawn(ctx, intervalOr(s.cfg.PollIntervalSeconds, defaultPollInterval), s.pollOnce)
	}
	if s.retrier != nil {
		s.spawn(ctx, s.cfg.RetryInterval(), s.retryOnce)
	}
	<-ctx.Done()
	s.wg.Wait()
	return nil
}

// Stop 停止定时任务
func (s *Scheduler) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) spawn(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		runPeriodic(ctx, interval, fn)
	}()
}

func (s *Scheduler) pollOnce(ctx context.Context) {
	result, err := s.poller.Poll(ctx, nil)
	if err != nil {
		if errors.Is(err, service.ErrPollInProgress) {
			logger.Debugw("worker_supplier_poll_skip_in_progress")
			return
		}
		logger.Warnw("worker_supplier_poll_failed", "error", err)
		return
	}
	logger.Infow("worker_supplier_poll_finished",
		"processed", result.Processed,
		"updated", result.Updated,
		"failed", result.Failed,
	)
}

func (s *Scheduler) retryOnce(ctx context.Context) {
	maxAttempts, batchSize := s.cfg.RetryLimits()
	result, err := s.retrier.RetryPending(ctx, maxAttempts, batchSize)
	if err != nil {
		logger.Warnw("worker_supplier_retry_failed", "error", err)
		return
	}
	if result.Processed > 0 {
		logger.Infow("worker_supplier_retry_finished",
			"processed", result.Processed,
			"sent", result.Sent,
			"failed", result.Failed,
		)
	}
}

// runPeriodic 立即执行一次，之后按间隔执行直到 ctx 结束
func runPeriodic(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func intervalOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
