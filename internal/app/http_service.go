package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/voltdrop/internal/config"
)

const (
	httpReadHeaderTimeout = 10 * time.Second
	httpWriteTimeout      = 60 * time.Second
	httpIdleTimeout       = 120 * time.Second
)

// HTTPService 管理后台与供应商回调的 HTTP 入口
type HTTPService struct {
	server *http.Server
}

// NewHTTPService 创建 HTTP 服务
func NewHTTPService(addr string, handler http.Handler, cfg config.ServerConfig) *HTTPService {
	return &HTTPService{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: httpReadHeaderTimeout,
			WriteTimeout:      secondsOr(cfg.WriteTimeoutSeconds, httpWriteTimeout),
			IdleTimeout:       secondsOr(cfg.IdleTimeoutSeconds, httpIdleTimeout),
		},
	}
}

func (s *HTTPService) Name() string { return "http" }

// Start 先完成端口监听再进入 Serve，端口占用会立即返回错误
func (s *HTTPService) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("http server not initialized")
	}
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 停止接收新请求，等待在途请求结束
func (s *HTTPService) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func secondsOr(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
