package public

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voltdrop/internal/http/response"
	"github.com/voltdrop/internal/service"

	"github.com/gin-gonic/gin"
)

type stubApplier struct {
	supplier string
	update   service.SupplierStatusUpdate
	result   *service.PollItemResult
	err      error
}

func (s *stubApplier) ApplySupplierUpdate(_ context.Context, supplierName string, update service.SupplierStatusUpdate) (*service.PollItemResult, error) {
	s.supplier = supplierName
	s.update = update
	return s.result, s.err
}

func postWebhook(t *testing.T, applier *stubApplier, body string) response.Response {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/suppliers/:supplier", (&Handler{updates: applier}).SupplierWebhook)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/suppliers/bigbuy", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("envelope must use http 200, got %d", w.Code)
	}
	var resp response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	return resp
}

func TestSupplierWebhookAppliesTrimmedUpdate(t *testing.T) {
	applier := &stubApplier{result: &service.PollItemResult{OrderID: 9, Outcome: "updated"}}
	resp := postWebhook(t, applier, `{"supplier_order_id":"BB-9","status":"shipped","tracking_number":" TRK-9 "}`)
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("expected success, got %+v", resp)
	}
	if applier.supplier != "bigbuy" || applier.update.TrackingNumber != "TRK-9" || applier.update.Source != "webhook" {
		t.Fatalf("unexpected update passed through: %s %+v", applier.supplier, applier.update)
	}
}

func TestSupplierWebhookRejectsMissingFields(t *testing.T) {
	applier := &stubApplier{}
	resp := postWebhook(t, applier, `{"status":"shipped"}`)
	if resp.StatusCode != response.CodeBadRequest {
		t.Fatalf("expected bad request, got %+v", resp)
	}
	if applier.supplier != "" {
		t.Fatalf("invalid payload must not reach the poller")
	}
}

func TestSupplierWebhookMapsServiceErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrOrderNotFound, response.CodeNotFound},
		{service.ErrSupplierWebhookInvalid, response.CodeBadRequest},
		{errors.New("db down"), response.CodeInternal},
	}
	for _, tc := range cases {
		resp := postWebhook(t, &stubApplier{err: tc.err}, `{"supplier_order_id":"BB-1","status":"shipped"}`)
		if resp.StatusCode != tc.want {
			t.Fatalf("%v: want %d, got %+v", tc.err, tc.want, resp)
		}
	}
}
