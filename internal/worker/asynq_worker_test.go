package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voltdrop/internal/config"
	"github.com/voltdrop/internal/constants"
	"github.com/voltdrop/internal/models"
	"github.com/voltdrop/internal/provider"
	"github.com/voltdrop/internal/queue"
	"github.com/voltdrop/internal/repository"
	"github.com/voltdrop/internal/service"
	"github.com/voltdrop/internal/supplier"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

func setupConsumerTest(t *testing.T) (*Consumer, *gorm.DB) {
	t.Helper()
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

	registry, err := supplier.NewRegistry(supplier.KindSandbox, supplier.NewSandboxAdapter())
	if err != nil {
		t.Fatalf("new registry failed: %v", err)
	}
	orderRepo := repository.NewOrderRepository(db)
	events := service.NewSupplierEventLog(repository.NewSupplierEventRepository(db))
	c := &provider.Container{
		Config:    &config.Config{},
		DB:        db,
		Suppliers: registry,
		OrderRepo: orderRepo,
	}
	c.DispatchService = service.NewDispatchService(service.DispatchServiceOptions{
		DB: db, OrderRepo: orderRepo, Events: events, Suppliers: registry,
	})
	c.TrackingService = service.NewTrackingService(service.TrackingServiceOptions{
		DB: db, OrderRepo: orderRepo, Events: events, Suppliers: registry,
	})
	c.ShipmentEmailService = service.NewShipmentEmailService(orderRepo, service.NewEmailService(&config.EmailConfig{}))
	return NewConsumer(c), db
}

func mustTask(t *testing.T, task *asynq.Task, err error) *asynq.Task {
	t.Helper()
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	return task
}

func TestHandleSupplierDispatchSendsOrder(t *testing.T) {
	consumer, db := setupConsumerTest(t)
	product := models.Product{StoreID: 1, Name: "Lamp", Slug: "lamp", SupplierName: "sandbox", SupplierSKU: "SBX-LAMP"}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	order := models.Order{
		OrderNo:             "VD-W1",
		StoreID:             1,
		CustomerEmail:       "kari@example.no",
		PaymentStatus:       constants.PaymentStatusPaid,
		FulfillmentStatus:   constants.FulfillmentStatusProcessing,
		SupplierOrderStatus: constants.SupplierStatusPending,
	}
	if err := consumer.OrderRepo.Create(&order, []models.OrderItem{{ProductID: product.ID, Quantity: 1}}); err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	task, buildErr := queue.NewSupplierDispatchTask(queue.SupplierDispatchPayload{OrderID: order.ID})
	task = mustTask(t, task, buildErr)
	if err := consumer.handleSupplierDispatch(context.Background(), task); err != nil {
		t.Fatalf("handle dispatch failed: %v", err)
	}
	saved, err := consumer.OrderRepo.GetByID(order.ID)
	if err != nil || saved == nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if !saved.HasSupplierOrder() || saved.SupplierOrderStatus != constants.SupplierStatusSentToSupplier {
		t.Fatalf("order not dispatched: %+v", saved)
	}
}

func TestHandlersRejectMalformedPayload(t *testing.T) {
	consumer, _ := setupConsumerTest(t)
	handlers := map[string]asynq.HandlerFunc{
		queue.TaskSupplierDispatch:        consumer.handleSupplierDispatch,
		queue.TaskSupplierTrackingRefresh: consumer.handleSupplierTrackingRefresh,
		queue.TaskOrderShipmentEmail:      consumer.handleOrderShipmentEmail,
	}
	for name, handler := range handlers {
		if err := handler(context.Background(), asynq.NewTask(name, []byte("{bad"))); !errors.Is(err, asynq.SkipRetry) {
			t.Fatalf("%s: malformed payload should skip retry, got %v", name, err)
		}
		if err := handler(context.Background(), asynq.NewTask(name, []byte(`{"order_id":0}`))); err != nil {
			t.Fatalf("%s: zero order id should be skipped, got %v", name, err)
		}
	}
}

func TestHandleTrackingRefreshSkipsMissingOrder(t *testing.T) {
	consumer, _ := setupConsumerTest(t)
	task, buildErr := queue.NewSupplierTrackingRefreshTask(queue.SupplierTrackingRefreshPayload{OrderID: 404})
	task = mustTask(t, task, buildErr)
	if err := consumer.handleSupplierTrackingRefresh(context.Background(), task); err != nil {
		t.Fatalf("missing order should be skipped, got %v", err)
	}
}

func TestHandleShipmentEmailSkipsWhenEmailDisabled(t *testing.T) {
	consumer, _ := setupConsumerTest(t)
	order := models.Order{OrderNo: "VD-W2", StoreID: 1, CustomerEmail: "kari@example.no", PaymentStatus: constants.PaymentStatusPaid, FulfillmentStatus: constants.FulfillmentStatusShipped}
	if err := consumer.OrderRepo.Create(&order, nil); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	task, buildErr := queue.NewOrderShipmentEmailTask(queue.OrderShipmentEmailPayload{OrderID: order.ID, FulfillmentStatus: constants.FulfillmentStatusShipped})
	task = mustTask(t, task, buildErr)
	if err := consumer.handleOrderShipmentEmail(context.Background(), task); err != nil {
		t.Fatalf("disabled email should be skipped, got %v", err)
	}
}

func TestRunPeriodicRunsImmediatelyAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	done := make(chan struct{})
	go func() {
		runPeriodic(ctx, time.Hour, func(context.Context) {
			atomic.AddInt32(&calls, 1)
		})
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&calls) == 0 {
		select {
		case <-deadline:
			t.Fatalf("periodic job did not run immediately")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("periodic loop did not stop on cancel")
	}
}

func TestIntervalOr(t *testing.T) {
	if got := intervalOr(0, time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := intervalOr(30, time.Minute); got != 30*time.Second {
		t.Fatalf("expected 30s, got %v", got)
	}
}

func TestLogTaskDurationPassesThroughResult(t *testing.T) {
	wantErr := errors.New("supplier down")
	handler := logTaskDuration(asynq.HandlerFunc(func(context.Context, *asynq.Task) error {
		return wantErr
	}))
	if err := handler.ProcessTask(context.Background(), asynq.NewTask(queue.TaskSupplierDispatch, nil)); !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped handler error, got %v", err)
	}
}

func TestNewServiceRequiresEnabledQueue(t *testing.T) {
	consumer, _ := setupConsumerTest(t)
	if _, err := NewService(&config.QueueConfig{}, consumer); err == nil {
		t.Fatalf("expected queue disabled error")
	}
	if _, err := NewService(&config.QueueConfig{Enabled: true}, nil); err == nil {
		t.Fatalf("expected nil consumer error")
	}
}
