package admin

import (
	handlershared "github.com/voltdrop/internal/http/handlers/shared"
	"github.com/voltdrop/internal/http/response"
	"github.com/voltdrop/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

// 履约接口共用的错误映射，并发冲突和供应商故障保留原始错误日志
var fulfillmentErrorRules = []handlershared.ErrorRule{
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Msg: "order not found"},
	{Target: service.ErrNotFound, Code: response.CodeNotFound, Msg: "order not found"},
	{Target: service.ErrPollInProgress, Code: response.CodeConflict, Msg: "supplier poll already in progress"},
	{Target: service.ErrDispatchConflict, Code: response.CodeConflict, Msg: "order was modified concurrently", Log: true},
	{Target: service.ErrTrackingFetchFailed, Code: response.CodeBadGateway, Msg: "supplier tracking unavailable", Log: true},
}

func respondServiceError(c *gin.Context, fallback string, err error) {
	handlershared.RespondMapped(c, err, fulfillmentErrorRules, response.CodeInternal, fallback)
}
