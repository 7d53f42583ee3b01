package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voltdrop/internal/authz"
	"github.com/voltdrop/internal/config"
	"github.com/voltdrop/internal/constants"
	"github.com/voltdrop/internal/models"
	"github.com/voltdrop/internal/provider"
	"github.com/voltdrop/internal/repository"
	"github.com/voltdrop/internal/service"
	"github.com/voltdrop/internal/supplier"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testWebhookSecret = "hook-secret"

type routerFixture struct {
	engine    *gin.Engine
	container *provider.Container
	db        *gorm.DB
}

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func setupRouterTest(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	cfg := &config.Config{}
	cfg.Server.Mode = "debug"
	cfg.JWT.SecretKey = "router-test-secret"
	cfg.JWT.ExpireHours = 1
	cfg.Fulfillment.WebhookSecret = testWebhookSecret

	registry, err := supplier.NewRegistry(supplier.KindSandbox, supplier.NewSandboxAdapter())
	if err != nil {
		t.Fatalf("new registry failed: %v", err)
	}
	authzService, err := authz.NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap roles failed: %v", err)
	}

	orderRepo := repository.NewOrderRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	events := service.NewSupplierEventLog(repository.NewSupplierEventRepository(db))
	c := &provider.Container{
		Config:       cfg,
		DB:           db,
		Suppliers:    registry,
		AdminRepo:    adminRepo,
		OrderRepo:    orderRepo,
		AuthzService: authzService,
		AuthService:  service.NewAuthService(cfg, adminRepo),
	}
	c.OrderAdminService = service.NewOrderAdminService(orderRepo, events)
	c.RiskService = service.NewRiskService(orderRepo, service.DefaultRiskPolicy())
	c.DispatchService = service.NewDispatchService(service.DispatchServiceOptions{
		DB: db, OrderRepo: orderRepo, Events: events, Suppliers: registry,
	})
	c.StatusPoller = service.NewStatusPoller(service.StatusPollerOptions{
		DB: db, OrderRepo: orderRepo, Events: events, Suppliers: registry,
	})
	c.OperatorAuditService = service.NewOperatorAuditService(repository.NewOperatorAuditRepository(db))

	return &routerFixture{engine: SetupRouter(cfg, c), container: c, db: db}
}

func (f *routerFixture) createAdmin(t *testing.T, username string, isSuper bool, roles ...string) {
	t.Helper()
	hash, err := f.container.AuthService.HashPassword("pass-" + username)
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	admin := &models.Admin{Username: username, PasswordHash: hash, IsSuper: isSuper}
	if err := f.container.AdminRepo.Create(admin); err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	if len(roles) > 0 {
		if err := f.container.AuthzService.SetAdminRoles(admin.ID, roles); err != nil {
			t.Fatalf("set admin roles failed: %v", err)
		}
	}
}

func (f *routerFixture) login(t *testing.T, username string) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":%q}`, username, "pass-"+username)
	resp := f.do(t, http.MethodPost, "/api/v1/admin/login", body, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("login failed: %+v", resp)
	}
	var data loginData
	if err := json.Unmarshal(resp.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("login token missing: %s", string(resp.Data))
	}
	return data.Token
}

// loginData 登录响应中用到的字段
type loginData struct {
	Token string `json:"token"`
}

func (f *routerFixture) do(t *testing.T, method, path, body string, headers map[string]string) envelope {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s: http status want 200 got %d", method, path, w.Code)
	}
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return resp
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func (f *routerFixture) createSentOrder(t *testing.T, supplierOrderID string) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNo:             "VD-R-" + supplierOrderID,
		StoreID:             1,
		CustomerEmail:       "kari@example.no",
		PaymentStatus:       constants.PaymentStatusPaid,
		FulfillmentStatus:   constants.FulfillmentStatusProcessing,
		SupplierName:        string(supplier.KindSandbox),
		SupplierOrderID:     &supplierOrderID,
		SupplierOrderStatus: constants.SupplierStatusSentToSupplier,
	}
	if err := f.container.OrderRepo.Create(order, nil); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func TestHealth(t *testing.T) {
	f := setupRouterTest(t)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response: %d %s", w.Code, w.Body.String())
	}
}

func TestAdminLoginRejectsWrongPassword(t *testing.T) {
	f := setupRouterTest(t)
	f.createAdmin(t, "root", true)
	resp := f.do(t, http.MethodPost, "/api/v1/admin/login", `{"username":"root","password":"nope"}`, nil)
	if resp.StatusCode != 401 {
		t.Fatalf("status_code want 401 got %d", resp.StatusCode)
	}
}

func TestSuperAdminListsOrdersAndEvents(t *testing.T) {
	f := setupRouterTest(t)
	f.createAdmin(t, "root", true)
	order := f.createSentOrder(t, "SBX-L1")
	token := f.login(t, "root")

	resp := f.do(t, http.MethodGet, "/api/v1/admin/orders?supplier_status=sent_to_supplier", "", bearer(token))
	if resp.StatusCode != 0 {
		t.Fatalf("list orders failed: %+v", resp)
	}
	var orders []models.Order
	if err := json.Unmarshal(resp.Data, &orders); err != nil {
		t.Fatalf("decode orders failed: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != order.ID {
		t.Fatalf("unexpected orders: %+v", orders)
	}

	resp = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/admin/orders/%d/supplier-events", order.ID), "", bearer(token))
	if resp.StatusCode != 0 {
		t.Fatalf("list events failed: %+v", resp)
	}
	resp = f.do(t, http.MethodGet, "/api/v1/admin/orders/9999", "", bearer(token))
	if resp.StatusCode != 404 {
		t.Fatalf("missing order want 404 got %d", resp.StatusCode)
	}
	resp = f.do(t, http.MethodGet, "/api/v1/admin/orders/abc", "", bearer(token))
	if resp.StatusCode != 400 {
		t.Fatalf("bad id want 400 got %d", resp.StatusCode)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	f := setupRouterTest(t)
	resp := f.do(t, http.MethodGet, "/api/v1/admin/orders", "", nil)
	if resp.StatusCode != 401 {
		t.Fatalf("status_code want 401 got %d", resp.StatusCode)
	}
	resp = f.do(t, http.MethodGet, "/api/v1/admin/orders", "", bearer("not-a-jwt"))
	if resp.StatusCode != 401 {
		t.Fatalf("status_code want 401 got %d", resp.StatusCode)
	}
}

func TestViewerCannotDispatch(t *testing.T) {
	f := setupRouterTest(t)
	f.createAdmin(t, "viewer", false, "fulfillment_viewer")
	order := f.createSentOrder(t, "SBX-V1")
	token := f.login(t, "viewer")

	resp := f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/admin/orders/%d", order.ID), "", bearer(token))
	if resp.StatusCode != 0 {
		t.Fatalf("viewer should read orders: %+v", resp)
	}
	resp = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/orders/%d/dispatch", order.ID), "", bearer(token))
	if resp.StatusCode != 403 {
		t.Fatalf("viewer dispatch want 403 got %d", resp.StatusCode)
	}
	resp = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/admin/orders/%d/risk", order.ID), "", bearer(token))
	if resp.StatusCode != 403 {
		t.Fatalf("viewer risk want 403 got %d", resp.StatusCode)
	}
}

func TestRiskReviewerEvaluatesRisk(t *testing.T) {
	f := setupRouterTest(t)
	f.createAdmin(t, "risk", false, "risk_reviewer")
	order := f.createSentOrder(t, "SBX-K1")
	token := f.login(t, "risk")

	resp := f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/admin/orders/%d/risk", order.ID), "", bearer(token))
	if resp.StatusCode != 0 {
		t.Fatalf("risk evaluation failed: %+v", resp)
	}
	var result service.RiskResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("decode risk failed: %v", err)
	}
	if result.OrderID != order.ID {
		t.Fatalf("unexpected risk result: %+v", result)
	}
}

func TestManualDispatchIsAudited(t *testing.T) {
	f := setupRouterTest(t)
	f.createAdmin(t, "root", true)
	f.createAdmin(t, "operator", false, "fulfillment_operator")
	order := f.createSentOrder(t, "SBX-A1")
	operatorToken := f.login(t, "operator")

	resp := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/orders/%d/dispatch", order.ID), "", bearer(operatorToken))
	if resp.StatusCode != 0 {
		t.Fatalf("operator dispatch failed: %+v", resp)
	}
	var result service.DispatchResult
	if err := json.Unmarshal(resp.Data, &result); err != nil || result.Outcome != constants.DispatchOutcomeSkipped {
		t.Fatalf("already sent order should be skipped: %s", string(resp.Data))
	}

	resp = f.do(t, http.MethodGet, "/api/v1/admin/audit-logs", "", bearer(operatorToken))
	if resp.StatusCode != 403 {
		t.Fatalf("operator audit list want 403 got %d", resp.StatusCode)
	}

	rootToken := f.login(t, "root")
	resp = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/admin/audit-logs?order_id=%d", order.ID), "", bearer(rootToken))
	if resp.StatusCode != 0 {
		t.Fatalf("list audit logs failed: %+v", resp)
	}
	var logs []models.OperatorAuditLog
	if err := json.Unmarshal(resp.Data, &logs); err != nil {
		t.Fatalf("decode audit logs failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected one audit log, got %+v", logs)
	}
	entry := logs[0]
	if entry.Action != constants.AuditActionOrderDispatch || entry.OperatorUsername != "operator" || entry.Outcome != constants.AuditOutcomeSucceeded {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
	if entry.DetailJSON["outcome"] != constants.DispatchOutcomeSkipped {
		t.Fatalf("audit detail missing outcome: %+v", entry.DetailJSON)
	}
}

func TestSupplierWebhookToken(t *testing.T) {
	f := setupRouterTest(t)
	order := f.createSentOrder(t, "SBX-H1")
	body := `{"supplier_order_id":"SBX-H1","status":"shipped","tracking_number":"TRK-H1"}`

	resp := f.do(t, http.MethodPost, "/api/v1/webhooks/suppliers/sandbox", body, map[string]string{constants.HeaderWebhookToken: "wrong"})
	if resp.StatusCode != 401 {
		t.Fatalf("wrong token want 401 got %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodPost, "/api/v1/webhooks/suppliers/sandbox", body, map[string]string{constants.HeaderWebhookToken: testWebhookSecret})
	if resp.StatusCode != 0 {
		t.Fatalf("webhook failed: %+v", resp)
	}
	saved, err := f.container.OrderRepo.GetByID(order.ID)
	if err != nil || saved == nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if saved.SupplierOrderStatus != constants.SupplierStatusShipped {
		t.Fatalf("webhook status not applied: %s", saved.SupplierOrderStatus)
	}

	resp = f.do(t, http.MethodPost, "/api/v1/webhooks/suppliers/sandbox", `{"supplier_order_id":"SBX-NONE","status":"shipped"}`, map[string]string{constants.HeaderWebhookToken: testWebhookSecret})
	if resp.StatusCode != 404 {
		t.Fatalf("unknown order want 404 got %d", resp.StatusCode)
	}
	resp = f.do(t, http.MethodPost, "/api/v1/webhooks/suppliers/sandbox", `{"status":"shipped"}`, map[string]string{constants.HeaderWebhookToken: testWebhookSecret})
	if resp.StatusCode != 400 {
		t.Fatalf("missing supplier order id want 400 got %d", resp.StatusCode)
	}
}

func TestPermissionCatalogListsGrantingRoles(t *testing.T) {
	f := setupRouterTest(t)
	f.createAdmin(t, "root", true)
	token := f.login(t, "root")

	resp := f.do(t, http.MethodGet, "/api/v1/admin/authz/permissions/catalog", "", bearer(token))
	if resp.StatusCode != 0 {
		t.Fatalf("catalog failed: %+v", resp)
	}
	var items []adminPermissionCatalogItem
	if err := json.Unmarshal(resp.Data, &items); err != nil {
		t.Fatalf("decode catalog failed: %v", err)
	}
	byPermission := make(map[string]adminPermissionCatalogItem, len(items))
	for _, item := range items {
		byPermission[item.Permission] = item
	}
	dispatch, ok := byPermission["POST:/admin/orders/:id/dispatch"]
	if !ok || dispatch.Module != "orders" || len(dispatch.GrantedBy) != 1 || dispatch.GrantedBy[0] != "role:fulfillment_operator" {
		t.Fatalf("unexpected dispatch entry: %+v", dispatch)
	}
	if audit := byPermission["GET:/admin/audit-logs"]; len(audit.GrantedBy) != 0 {
		t.Fatalf("audit logs should be super only: %+v", audit)
	}
	if _, ok := byPermission["POST:/admin/login"]; ok {
		t.Fatalf("login must not appear in catalog")
	}
}
