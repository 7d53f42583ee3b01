package app

import (
	"os"
	"time"

	"github.com/voltdrop/internal/config"
	"github.com/voltdrop/internal/logger"

	"go.uber.org/zap"
)

// 启动模式：api 只提供 HTTP，worker 只跑轮询调度与队列消费
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultStopTimeout
	}
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}

func servesHTTP(mode string) bool { return mode == ModeAll || mode == ModeAPI }

func runsBackground(mode string) bool { return mode == ModeAll || mode == ModeWorker }

func validMode(mode string) bool { return servesHTTP(mode) || runsBackground(mode) }
