package admin

import (
	"strings"

	handlershared "github.com/voltdrop/internal/http/handlers/shared"
	"github.com/voltdrop/internal/http/response"
	"github.com/voltdrop/internal/models"
	"github.com/voltdrop/internal/repository"

	"github.com/gin-gonic/gin"
)

// AdminOrderDetail 管理端订单详情返回
type AdminOrderDetail struct {
	models.Order
	SupplierEvents []models.SupplierOrderEvent `json:"supplier_events"`
}

type orderListQuery struct {
	handlershared.ListQuery
	StoreID           uint   `form:"store_id"`
	OrderNo           string `form:"order_no"`
	Search            string `form:"search"`
	Supplier          string `form:"supplier"`
	SupplierStatus    string `form:"supplier_status"`
	FulfillmentStatus string `form:"fulfillment_status"`
	PaymentStatus     string `form:"payment_status"`
	ShippingCountry   string `form:"shipping_country"`
}

func (q orderListQuery) filter() repository.OrderListFilter {
	page, pageSize := q.Paging()
	createdFrom, createdTo := q.CreatedRange()
	return repository.OrderListFilter{
		Page:                page,
		PageSize:            pageSize,
		StoreID:             q.StoreID,
		OrderNo:             strings.TrimSpace(q.OrderNo),
		Search:              strings.TrimSpace(q.Search),
		SupplierName:        strings.ToLower(strings.TrimSpace(q.Supplier)),
		SupplierOrderStatus: strings.ToUpper(strings.TrimSpace(q.SupplierStatus)),
		FulfillmentStatus:   strings.ToLower(strings.TrimSpace(q.FulfillmentStatus)),
		PaymentStatus:       strings.ToLower(strings.TrimSpace(q.PaymentStatus)),
		ShippingCountry:     strings.ToUpper(strings.TrimSpace(q.ShippingCountry)),
		CreatedFrom:         createdFrom,
		CreatedTo:           createdTo,
	}
}

// AdminListOrders 管理端订单列表
func (h *Handler) AdminListOrders(c *gin.Context) {
	var q orderListQuery
	if !handlershared.BindQuery(c, &q) {
		return
	}
	filter := q.filter()
	orders, total, err := h.OrderAdminService.ListOrders(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "list orders failed", err)
		return
	}
	response.SuccessWithPage(c, orders, handlershared.BuildPagination(filter.Page, filter.PageSize, total))
}

// AdminGetOrder 管理端订单详情，附带供应商事件时间线
func (h *Handler) AdminGetOrder(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	order, err := h.OrderAdminService.GetOrder(id)
	if err != nil {
		respondServiceError(c, "load order failed", err)
		return
	}
	events, err := h.OrderAdminService.ListSupplierEvents(order.ID)
	if err != nil {
		respondError(c, response.CodeInternal, "load supplier events failed", err)
		return
	}
	response.Success(c, AdminOrderDetail{Order: *order, SupplierEvents: events})
}

// AdminListSupplierEvents 订单供应商事件列表
func (h *Handler) AdminListSupplierEvents(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if _, err := h.OrderAdminService.GetOrder(id); err != nil {
		respondServiceError(c, "load order failed", err)
		return
	}
	events, err := h.OrderAdminService.ListSupplierEvents(id)
	if err != nil {
		respondError(c, response.CodeInternal, "load supplier events failed", err)
		return
	}
	response.Success(c, events)
}

// AdminEvaluateOrderRisk 订单风险评估
func (h *Handler) AdminEvaluateOrderRisk(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	result, err := h.RiskService.EvaluateOrderRisk(id)
	if err != nil {
		respondServiceError(c, "evaluate order risk failed", err)
		return
	}
	response.Success(c, result)
}
