package supplier

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// BigBuyAdapter BigBuy REST 接口适配器
type BigBuyAdapter struct {
	client *restClient
}

// NewBigBuyAdapter 创建 BigBuy 适配器
func NewBigBuyAdapter(baseURL, apiKey string, timeout time.Duration) *BigBuyAdapter {
	return &BigBuyAdapter{
		client: newRESTClient(KindBigBuy, baseURL, timeout, func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}),
	}
}

type bigBuyOrderRequest struct {
	InternalReference string            `json:"internalReference"`
	Language          string            `json:"language"`
	PaymentMethod     string            `json:"paymentMethod"`
	ShippingAddress   bigBuyAddress     `json:"shippingAddress"`
	Products          []bigBuyOrderLine `json:"products"`
}

type bigBuyAddress struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Country     string `json:"country"`
	PostCode    string `json:"postcode"`
	Town        string `json:"town"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	CompanyName string `json:"companyName,omitempty"`
}

type bigBuyOrderLine struct {
	Reference string `json:"reference"`
	Quantity  int    `json:"quantity"`
}

type bigBuyOrderResponse struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	TrackingNumber string `json:"trackingNumber"`
	TrackingURL    string `json:"trackingUrl"`
}

type bigBuyTrackingResponse struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"trackingNumber"`
	TrackingURL    string `json:"trackingUrl"`
	Carrier        string `json:"carrier"`
}

// Kind 供应商类型
func (a *BigBuyAdapter) Kind() Kind {
	return KindBigBuy
}

// CreateOrder 在 BigBuy 创建订单，internalReference 为本地订单号供对方去重
func (a *BigBuyAdapter) CreateOrder(ctx context.Context, order NormalizedOrder) (*CreateResult, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	firstName, lastName := splitName(order.Customer.Name)
	address := order.ShippingAddress
	payload := bigBuyOrderRequest{
		InternalReference: order.OrderNo,
		Language:          "en",
		PaymentMethod:     "moneybox",
		ShippingAddress: bigBuyAddress{
			FirstName: firstName,
			LastName:  lastName,
			Country:   address.Country,
			PostCode:  address.PostalCode,
			Town:      address.City,
			Address:   joinAddressLines(address.Line1, address.Line2),
			Phone:     order.Customer.Phone,
			Email:     order.Customer.Email,
		},
		Products: make([]bigBuyOrderLine, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		payload.Products = append(payload.Products, bigBuyOrderLine{Reference: item.SupplierSKU, Quantity: item.Quantity})
	}

	var resp bigBuyOrderResponse
	if err := a.client.do(ctx, http.MethodPost, "/v1/orders", payload, &resp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.ID) == "" {
		return nil, ErrSupplierOrderEmpty
	}
	return &CreateResult{SupplierOrderID: strings.TrimSpace(resp.ID)}, nil
}

// GetOrderStatus 查询订单状态
func (a *BigBuyAdapter) GetOrderStatus(ctx context.Context, supplierOrderID string) (*StatusResult, error) {
	var resp bigBuyOrderResponse
	if err := a.client.do(ctx, http.MethodGet, "/v1/orders/"+url.PathEscape(supplierOrderID), nil, &resp); err != nil {
		return nil, err
	}
	return &StatusResult{
		Status:         NormalizeStatus(resp.Status),
		RawStatus:      resp.Status,
		TrackingNumber: resp.TrackingNumber,
		TrackingURL:    resp.TrackingURL,
	}, nil
}

// GetTracking 查询物流
func (a *BigBuyAdapter) GetTracking(ctx context.Context, supplierOrderID string) (*TrackingResult, error) {
	var resp bigBuyTrackingResponse
	if err := a.client.do(ctx, http.MethodGet, "/v1/orders/"+url.PathEscape(supplierOrderID)+"/tracking", nil, &resp); err != nil {
		return nil, err
	}
	return &TrackingResult{
		Status:         NormalizeTrackingStatus(resp.Status),
		RawStatus:      resp.Status,
		TrackingNumber: resp.TrackingNumber,
		TrackingURL:    resp.TrackingURL,
		Carrier:        resp.Carrier,
	}, nil
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func joinAddressLines(lines ...string) string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, ", ")
}
