package app

import (
	"context"
	"errors"
	"os/signal"
	"time"

	"go.uber.org/zap"
)

const defaultStopTimeout = 10 * time.Second

// Service 可由 Runner 托管的长驻服务（HTTP、轮询调度、队列消费）
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// serviceExit 单个服务的退出结果
type serviceExit struct {
	name string
	err  error
}

// Runner 服务运行器：任一服务退出即整体停机
type Runner struct {
	services []Service
}

// NewRunner 创建服务运行器
func NewRunner(services ...Service) *Runner {
	return &Runner{services: services}
}

// RunWithOptions 运行服务并处理系统信号
func RunWithOptions(runner *Runner, opts Options) error {
	if runner == nil {
		return errors.New("runner is nil")
	}
	opts = normalizeOptions(opts)
	ctx := context.Background()
	if len(opts.Signals) > 0 {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(ctx, opts.Signals...)
		defer cancel()
	}
	return runner.Run(ctx, opts.ShutdownTimeout, opts.Logger)
}

// Run 启动全部服务，等待信号或首个服务退出后按注册顺序停止
// 正常停机时返回各服务 Stop 的聚合错误
func (r *Runner) Run(ctx context.Context, stopTimeout time.Duration, log *zap.SugaredLogger) error {
	if r == nil || len(r.services) == 0 {
		return errors.New("no services to run")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	exits := r.start(ctx, log)

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
		log.Infow("service_shutdown_signal")
	case exit := <-exits:
		runErr = exit.err
		log.Infow("service_shutdown_triggered", "service", exit.name, "error", exit.err)
	}

	cancel()
	stopErr := r.stopAll(stopTimeout, log)
	if runErr == nil || errors.Is(runErr, context.Canceled) {
		return stopErr
	}
	return runErr
}

func (r *Runner) start(ctx context.Context, log *zap.SugaredLogger) <-chan serviceExit {
	exits := make(chan serviceExit, len(r.services))
	for _, svc := range r.services {
		go func(svc Service) {
			if svc == nil {
				exits <- serviceExit{name: "unknown", err: errors.New("service is nil")}
				return
			}
			name := svc.Name()
			log.Infow("service_start", "service", name)
			err := svc.Start(ctx)
			log.Infow("service_exit", "service", name, "error", err)
			exits <- serviceExit{name: name, err: err}
		}(svc)
	}
	return exits
}

// stopAll 共用一个超时窗口依次停止，先停 HTTP 入口再停后台任务
func (r *Runner) stopAll(timeout time.Duration, log *zap.SugaredLogger) error {
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for _, svc := range r.services {
		if svc == nil {
			continue
		}
		if err := svc.Stop(stopCtx); err != nil {
			log.Errorw("service_stop_failed", "service", svc.Name(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
