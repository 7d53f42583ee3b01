package public

import (
	"context"

	handlershared "github.com/voltdrop/internal/http/handlers/shared"
	"github.com/voltdrop/internal/http/response"
	"github.com/voltdrop/internal/provider"
	"github.com/voltdrop/internal/service"
)

// SupplierUpdateApplier 接收供应商推送的状态变更
type SupplierUpdateApplier interface {
	ApplySupplierUpdate(ctx context.Context, supplierName string, update service.SupplierStatusUpdate) (*service.PollItemResult, error)
}

// Handler 无需管理员登录的接口，目前只有供应商回调
type Handler struct {
	updates SupplierUpdateApplier
}

func New(c *provider.Container) *Handler {
	return &Handler{updates: c.StatusPoller}
}

var supplierWebhookErrorRules = []handlershared.ErrorRule{
	{Target: service.ErrSupplierWebhookInvalid, Code: response.CodeBadRequest, Msg: "invalid supplier webhook payload"},
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Msg: "order not found"},
}
