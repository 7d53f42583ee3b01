package supplier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/voltdrop/internal/constants"
)

// CJAdapter CJ Dropshipping 接口适配器
type CJAdapter struct {
	client *restClient
}

// NewCJAdapter 创建 CJ 适配器
func NewCJAdapter(baseURL, accessToken string, timeout time.Duration) *CJAdapter {
	return &CJAdapter{
		client: newRESTClient(KindCJ, baseURL, timeout, func(req *http.Request) {
			req.Header.Set("CJ-Access-Token", accessToken)
		}),
	}
}

// cjEnvelope CJ 接口统一响应，HTTP 200 也可能业务失败
type cjEnvelope[T any] struct {
	Code    int    `json:"code"`
	Result  bool   `json:"result"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func (e cjEnvelope[T]) err() error {
	if e.Result && (e.Code == 0 || e.Code == 200) {
		return nil
	}
	return fmt.Errorf("cj api error %d: %s", e.Code, strings.TrimSpace(e.Message))
}

type cjCreateOrderRequest struct {
	OrderNumber          string          `json:"orderNumber"`
	ShippingCountryCode  string          `json:"shippingCountryCode"`
	ShippingProvince     string          `json:"shippingProvince"`
	ShippingCity         string          `json:"shippingCity"`
	ShippingAddress      string          `json:"shippingAddress"`
	ShippingAddress2     string          `json:"shippingAddress2,omitempty"`
	ShippingZip          string          `json:"shippingZip"`
	ShippingCustomerName string          `json:"shippingCustomerName"`
	ShippingPhone        string          `json:"shippingPhone"`
	Email                string          `json:"email"`
	Products             []cjProductLine `json:"products"`
}

type cjProductLine struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type cjOrderData struct {
	OrderID     string `json:"orderId"`
	OrderStatus string `json:"orderStatus"`
	TrackNumber string `json:"trackNumber"`
	TrackingURL string `json:"trackingUrl"`
	Logistic    string `json:"logisticName"`
}

// Kind 供应商类型
func (a *CJAdapter) Kind() Kind {
	return KindCJ
}

// CreateOrder 在 CJ 创建订单，orderNumber 为本地订单号
func (a *CJAdapter) CreateOrder(ctx context.Context, order NormalizedOrder) (*CreateResult, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	address := order.ShippingAddress
	payload := cjCreateOrderRequest{
		OrderNumber:          order.OrderNo,
		ShippingCountryCode:  address.Country,
		ShippingProvince:     address.Region,
		ShippingCity:         address.City,
		ShippingAddress:      address.Line1,
		ShippingAddress2:     address.Line2,
		ShippingZip:          address.PostalCode,
		ShippingCustomerName: order.Customer.Name,
		ShippingPhone:        order.Customer.Phone,
		Email:                order.Customer.Email,
		Products:             make([]cjProductLine, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		payload.Products = append(payload.Products, cjProductLine{SKU: item.SupplierSKU, Quantity: item.Quantity})
	}

	var resp cjEnvelope[cjOrderData]
	if err := a.client.do(ctx, http.MethodPost, "/api2.0/v1/shopping/order/createOrder", payload, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Data.OrderID) == "" {
		return nil, ErrSupplierOrderEmpty
	}
	return &CreateResult{SupplierOrderID: strings.TrimSpace(resp.Data.OrderID)}, nil
}

func (a *CJAdapter) orderDetail(ctx context.Context, supplierOrderID string) (*cjOrderData, error) {
	var resp cjEnvelope[*cjOrderData]
	path := "/api2.0/v1/shopping/order/getOrderDetail?orderId=" + url.QueryEscape(supplierOrderID)
	if err := a.client.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, ErrOrderNotFound
	}
	return resp.Data, nil
}

// GetOrderStatus 查询订单状态
func (a *CJAdapter) GetOrderStatus(ctx context.Context, supplierOrderID string) (*StatusResult, error) {
	detail, err := a.orderDetail(ctx, supplierOrderID)
	if err != nil {
		return nil, err
	}
	return &StatusResult{
		Status:         normalizeCJStatus(detail.OrderStatus),
		RawStatus:      detail.OrderStatus,
		TrackingNumber: detail.TrackNumber,
		TrackingURL:    detail.TrackingURL,
	}, nil
}

// GetTracking CJ 的物流信息随订单详情返回
func (a *CJAdapter) GetTracking(ctx context.Context, supplierOrderID string) (*TrackingResult, error) {
	detail, err := a.orderDetail(ctx, supplierOrderID)
	if err != nil {
		return nil, err
	}
	trackingStatus := constants.TrackingStatusPending
	switch normalizeCJStatus(detail.OrderStatus) {
	case constants.SupplierStatusShipped:
		trackingStatus = constants.TrackingStatusShipped
	case constants.SupplierStatusDelivered:
		trackingStatus = constants.TrackingStatusDelivered
	case constants.SupplierStatusCancelled:
		trackingStatus = constants.TrackingStatusException
	}
	return &TrackingResult{
		Status:         trackingStatus,
		RawStatus:      detail.OrderStatus,
		TrackingNumber: detail.TrackNumber,
		TrackingURL:    detail.TrackingURL,
		Carrier:        detail.Logistic,
	}, nil
}

func normalizeCJStatus(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "IN_CART", "UNPAID":
		return constants.SupplierStatusSentToSupplier
	case "UNSHIPPED":
		return constants.SupplierStatusAcceptedBySupplier
	default:
		return NormalizeStatus(raw)
	}
}
