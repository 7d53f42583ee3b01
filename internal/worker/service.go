package worker

import (
	"context"
	"errors"
	"time"

	"github.com/voltdrop/internal/config"
	"github.com/voltdrop/internal/logger"
	"github.com/voltdrop/internal/queue"

	"github.com/hibiken/asynq"
)

const workerShutdownTimeout = 8 * time.Second

// Service asynq 消费服务：派单、物流刷新、发货邮件
type Service struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewService 创建队列消费服务，队列未启用时返回错误
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	serverCfg.ShutdownTimeout = workerShutdownTimeout
	serverCfg.ErrorHandler = asynq.ErrorHandlerFunc(logTaskFailure)

	mux := asynq.NewServeMux()
	mux.Use(logTaskDuration)
	consumer.Register(mux)
	return &Service{server: asynq.NewServer(opt, serverCfg), mux: mux}, nil
}

func (s *Service) Name() string { return "worker" }

// Start 启动消费并阻塞到 ctx 结束
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("worker not initialized")
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Stop 等待在途任务完成，超时的任务由 asynq 放回队列
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.server.Shutdown()
	return nil
}

func logTaskDuration(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		startedAt := time.Now()
		err := next.ProcessTask(ctx, task)
		taskID, _ := asynq.GetTaskID(ctx)
		logger.Debugw("worker_task_done",
			"task_type", task.Type(),
			"task_id", taskID,
			"duration_ms", time.Since(startedAt).Milliseconds(),
			"failed", err != nil,
		)
		return err
	})
}

func logTaskFailure(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	taskID, _ := asynq.GetTaskID(ctx)
	fields := []interface{}{
		"task_type", task.Type(),
		"task_id", taskID,
		"retried", retried,
		"max_retry", maxRetry,
		"error", err,
	}
	if retried >= maxRetry {
		logger.Errorw("worker_task_exhausted", fields...)
		return
	}
	logger.Warnw("worker_task_failed", fields...)
}
