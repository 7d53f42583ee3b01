package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/voltdrop/internal/constants"
	"github.com/voltdrop/internal/models"
	"github.com/voltdrop/internal/repository"
	"github.com/voltdrop/internal/supplier"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type fulfillmentFixture struct {
	db        *gorm.DB
	orderRepo *repository.GormOrderRepository
	eventRepo *repository.GormSupplierEventRepository
	events    *SupplierEventLog
	adapter   *stubAdapter
	registry  *supplier.Registry
}

func setupFulfillmentTest(t *testing.T) *fulfillmentFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	adapter := newStubAdapter(supplier.KindBigBuy)
	registry, err := supplier.NewRegistry(supplier.KindBigBuy, adapter, supplier.NewSandboxAdapter())
	if err != nil {
		t.Fatalf("new registry failed: %v", err)
	}
	eventRepo := repository.NewSupplierEventRepository(db)
	return &fulfillmentFixture{
		db:        db,
		orderRepo: repository.NewOrderRepository(db),
		eventRepo: eventRepo,
		events:    NewSupplierEventLog(eventRepo),
		adapter:   adapter,
		registry:  registry,
	}
}

func (f *fulfillmentFixture) dispatchService() *DispatchService {
	return NewDispatchService(DispatchServiceOptions{
		DB:        f.db,
		OrderRepo: f.orderRepo,
		Events:    f.events,
		Suppliers: f.registry,
	})
}

func (f *fulfillmentFixture) createProduct(t *testing.T, product models.Product) *models.Product {
	t.Helper()
	if product.StoreID == 0 {
		product.StoreID = 1
	}
	if product.Slug == "" {
		product.Slug = strings.ToLower(strings.ReplaceAll(product.Name, " ", "-"))
	}
	if err := f.db.Create(&product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return &product
}

// createOrder 默认创建一笔已支付、处理中、带一个订单项的订单
func (f *fulfillmentFixture) createOrder(t *testing.T, order models.Order, items ...models.OrderItem) *models.Order {
	t.Helper()
	if order.StoreID == 0 {
		order.StoreID = 1
	}
	if order.OrderNo == "" {
		order.OrderNo = fmt.Sprintf("VD-%d", time.Now().UnixNano())
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = constants.PaymentStatusPaid
	}
	if order.FulfillmentStatus == "" {
		order.FulfillmentStatus = constants.FulfillmentStatusProcessing
	}
	if order.SupplierOrderStatus == "" {
		order.SupplierOrderStatus = constants.SupplierStatusPending
	}
	if order.CustomerEmail == "" {
		order.CustomerEmail = "kari@example.no"
	}
	if order.CustomerName == "" {
		order.CustomerName = "Kari Nordmann"
	}
	if order.ShippingAddress == "" {
		order.ShippingAddress = `{"line1":"Karl Johans gate 1","city":"Oslo","postalCode":"0154","country":"no"}`
	}
	if err := f.orderRepo.Create(&order, items); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return &order
}

func (f *fulfillmentFixture) reloadOrder(t *testing.T, id uint) *models.Order {
	t.Helper()
	order, err := f.orderRepo.GetByID(id)
	if err != nil || order == nil {
		t.Fatalf("reload order %d failed: %v", id, err)
	}
	return order
}

func (f *fulfillmentFixture) listEvents(t *testing.T, orderID uint) []models.SupplierOrderEvent {
	t.Helper()
	events, err := f.eventRepo.ListByOrder(orderID)
	if err != nil {
		t.Fatalf("list events failed: %v", err)
	}
	return events
}

// takeOverClaim 模拟占用过期后被其他执行者抢走
func (f *fulfillmentFixture) takeOverClaim(t *testing.T, orderID uint, updates map[string]interface{}) {
	t.Helper()
	merged := map[string]interface{}{"dispatch_token": "other-worker", "dispatch_claimed_at": time.Now()}
	for k, v := range updates {
		merged[k] = v
	}
	if err := f.db.Model(&models.Order{}).Where("id = ?", orderID).Updates(merged).Error; err != nil {
		t.Fatalf("take over claim failed: %v", err)
	}
}

func strPtr(value string) *string {
	return &value
}

// stubAdapter 可编排结果的供应商适配器
type stubAdapter struct {
	mu          sync.Mutex
	kind        supplier.Kind
	createID    string
	createErr   error
	statuses    map[string]*supplier.StatusResult
	statusErrs  map[string]error
	tracking    *supplier.TrackingResult
	trackingErr error

	// onCreate 在供应商返回前执行，用于模拟并发的其他执行者
	onCreate func(order supplier.NormalizedOrder)

	created       []supplier.NormalizedOrder
	trackingCalls int
}

func newStubAdapter(kind supplier.Kind) *stubAdapter {
	return &stubAdapter{
		kind:       kind,
		createID:   "BB-100",
		statuses:   make(map[string]*supplier.StatusResult),
		statusErrs: make(map[string]error),
	}
}

func (a *stubAdapter) Kind() supplier.Kind {
	return a.kind
}

func (a *stubAdapter) CreateOrder(ctx context.Context, order supplier.NormalizedOrder) (*supplier.CreateResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.created = append(a.created, order)
	if a.onCreate != nil {
		a.onCreate(order)
	}
	if a.createErr != nil {
		return nil, a.createErr
	}
	return &supplier.CreateResult{SupplierOrderID: a.createID}, nil
}

func (a *stubAdapter) GetOrderStatus(ctx context.Context, supplierOrderID string) (*supplier.StatusResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.statusErrs[supplierOrderID]; err != nil {
		return nil, err
	}
	status, ok := a.statuses[supplierOrderID]
	if !ok {
		return nil, supplier.ErrOrderNotFound
	}
	return status, nil
}

func (a *stubAdapter) GetTracking(ctx context.Context, supplierOrderID string) (*supplier.TrackingResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.trackingCalls++
	if a.trackingErr != nil {
		return nil, a.trackingErr
	}
	return a.tracking, nil
}
