package app

import (
	"errors"

	"github.com/voltdrop/internal/cache"
	"github.com/voltdrop/internal/config"
	"github.com/voltdrop/internal/logger"
	"github.com/voltdrop/internal/provider"
	"github.com/voltdrop/internal/router"
	"github.com/voltdrop/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if !validMode(mode) {
		return nil, errors.New("unknown mode: " + mode)
	}

	container := provider.NewContainer(cfg)

	var services []Service

	// 初始化 HTTP 服务
	if servesHTTP(mode) {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		httpService := NewHTTPService(addr, engine, cfg.Server)
		services = append(services, httpService)
	}

	if runsBackground(mode) {
		// 定时轮询与重试不依赖队列
		services = append(services, worker.NewScheduler(cfg.Fulfillment, container.StatusPoller, container.DispatchService))

		// 队列未启用时异步任务改为同步执行，无需消费者
		if cfg.Queue.Enabled {
			consumer := worker.NewConsumer(container)
			workerService, err := worker.NewService(&cfg.Queue, consumer)
			if err != nil {
				return nil, err
			}
			services = append(services, workerService)
		} else {
			logger.Warnw("app_queue_disabled_tasks_run_inline", "mode", mode)
		}
	}

	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	runErr := RunWithOptions(runner, opts)
	if err := cache.Close(); err != nil {
		opts.Logger.Warnw("app_close_redis_failed", "error", err)
	}
	return runErr
}
