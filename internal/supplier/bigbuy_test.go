package supplier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/voltdrop/internal/constants"
)

func sampleOrder() NormalizedOrder {
	return NormalizedOrder{
		OrderID:  11,
		OrderNo:  "VD-11",
		StoreID:  1,
		Customer: CustomerInfo{Name: "Kari Nordmann", Email: "kari@example.com", Phone: "+4712345678"},
		ShippingAddress: Address{
			Line1:      "Storgata 1",
			City:       "Oslo",
			PostalCode: "0155",
			Country:    "NO",
		},
		Items: []NormalizedItem{{Name: "USB-C hub", Quantity: 2, SupplierSKU: "BB-100"}},
	}
}

func TestBigBuyCreateOrderSendsReferenceAndAuth(t *testing.T) {
	var got bigBuyOrderRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body failed: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"BB-9001","status":"received"}`))
	}))
	defer server.Close()

	adapter := NewBigBuyAdapter(server.URL, "secret", time.Second)
	result, err := adapter.CreateOrder(context.Background(), sampleOrder())
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if result.SupplierOrderID != "BB-9001" {
		t.Fatalf("unexpected supplier order id: %s", result.SupplierOrderID)
	}
	if got.InternalReference != "VD-11" || got.ShippingAddress.FirstName != "Kari" || got.ShippingAddress.LastName != "Nordmann" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if len(got.Products) != 1 || got.Products[0].Reference != "BB-100" || got.Products[0].Quantity != 2 {
		t.Fatalf("unexpected products: %+v", got.Products)
	}
}

func TestBigBuyNon2xxReturnsRequestError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"out of stock"}`))
	}))
	defer server.Close()

	adapter := NewBigBuyAdapter(server.URL, "secret", time.Second)
	_, err := adapter.CreateOrder(context.Background(), sampleOrder())
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.StatusCode != http.StatusUnprocessableEntity || reqErr.Supplier != KindBigBuy {
		t.Fatalf("unexpected request error: %+v", reqErr)
	}
}

func TestBigBuyStatusAndTracking(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/orders/BB-1":
			_, _ = w.Write([]byte(`{"id":"BB-1","status":"shipped","trackingNumber":"TRK1"}`))
		case "/v1/orders/BB-1/tracking":
			_, _ = w.Write([]byte(`{"status":"in transit","trackingNumber":"TRK1","trackingUrl":"https://t/1","carrier":"posten"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	adapter := NewBigBuyAdapter(server.URL, "secret", time.Second)
	status, err := adapter.GetOrderStatus(context.Background(), "BB-1")
	if err != nil {
		t.Fatalf("get status failed: %v", err)
	}
	if status.Status != constants.SupplierStatusShipped || status.TrackingNumber != "TRK1" {
		t.Fatalf("unexpected status: %+v", status)
	}
	tracking, err := adapter.GetTracking(context.Background(), "BB-1")
	if err != nil {
		t.Fatalf("get tracking failed: %v", err)
	}
	if tracking.Status != constants.TrackingStatusInTransit || tracking.Carrier != "posten" {
		t.Fatalf("unexpected tracking: %+v", tracking)
	}
}

func TestBigBuyRejectsInvalidOrderWithoutCalling(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	order := sampleOrder()
	order.Items[0].SupplierSKU = ""
	_, err := NewBigBuyAdapter(server.URL, "secret", time.Second).CreateOrder(context.Background(), order)
	if !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder, got %v", err)
	}
	if called {
		t.Fatalf("invalid order must not reach supplier")
	}
}
