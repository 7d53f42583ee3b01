package service

import (
	"context"
	"testing"

	"github.com/voltdrop/internal/constants"
	"github.com/voltdrop/internal/models"

	"gorm.io/gorm"
)

func TestRecordEventInsideTransaction(t *testing.T) {
	f := setupFulfillmentTest(t)
	order := f.createOrder(t, models.Order{})

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := f.orderRepo.WithTx(tx).UpdateFields(order.ID, map[string]interface{}{"supplier_order_status": constants.SupplierStatusSentToSupplier}); err != nil {
			return err
		}
		f.events.Record(context.Background(), tx, order.ID, "", constants.SupplierStatusSentToSupplier, models.JSON{"supplier": "bigbuy"})
		return nil
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
	events := f.listEvents(t, order.ID)
	if len(events) != 1 || events[0].OldStatus != nil || events[0].MetadataJSON["supplier"] != "bigbuy" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestRecordEventFailureKeepsOrderUpdate(t *testing.T) {
	f := setupFulfillmentTest(t)
	order := f.createOrder(t, models.Order{})
	if err := f.db.Migrator().DropTable(&models.SupplierOrderEvent{}); err != nil {
		t.Fatalf("drop events table failed: %v", err)
	}

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := f.orderRepo.WithTx(tx).UpdateFields(order.ID, map[string]interface{}{"supplier_order_status": constants.SupplierStatusCancelled}); err != nil {
			return err
		}
		f.events.Record(context.Background(), tx, order.ID, constants.SupplierStatusPending, constants.SupplierStatusCancelled, nil)
		return nil
	})
	if err != nil {
		t.Fatalf("audit failure must not abort the transaction: %v", err)
	}
	if saved := f.reloadOrder(t, order.ID); saved.SupplierOrderStatus != constants.SupplierStatusCancelled {
		t.Fatalf("order update should be committed, got %s", saved.SupplierOrderStatus)
	}
}

func TestLogEventSwallowsWriteErrors(t *testing.T) {
	f := setupFulfillmentTest(t)
	if err := f.db.Migrator().DropTable(&models.SupplierOrderEvent{}); err != nil {
		t.Fatalf("drop events table failed: %v", err)
	}
	f.events.LogEvent(context.Background(), 1, constants.SupplierStatusPending, constants.SupplierStatusSentToSupplier, nil)
}
