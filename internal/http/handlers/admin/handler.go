package admin

import "github.com/voltdrop/internal/provider"

// Handler 后台接口处理器，直接复用容器中的服务
type Handler struct {
	*provider.Container
}

func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
