package repository

import (
	"testing"

	"github.com/voltdrop/internal/constants"
	"github.com/voltdrop/internal/models"
)

func TestSupplierEventRepositoryListsInInsertOrder(t *testing.T) {
	_, db := setupOrderRepositoryTest(t)
	repo := NewSupplierEventRepository(db)

	pending := constants.SupplierStatusPending
	sent := constants.SupplierStatusSentToSupplier
	events := []models.SupplierOrderEvent{
		{OrderID: 9, OldStatus: &pending, NewStatus: sent, MetadataJSON: models.JSON{"supplier": "sandbox"}},
		{OrderID: 9, OldStatus: &sent, NewStatus: constants.SupplierStatusShipped},
		{OrderID: 10, NewStatus: constants.SupplierStatusPending},
	}
	for i := range events {
		if err := repo.Create(&events[i]); err != nil {
			t.Fatalf("create event failed: %v", err)
		}
	}

	list, err := repo.ListByOrder(9)
	if err != nil {
		t.Fatalf("list events failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("want 2 events got %d", len(list))
	}
	if list[0].NewStatus != sent || list[1].NewStatus != constants.SupplierStatusShipped {
		t.Fatalf("unexpected event order: %+v", list)
	}
	if list[0].MetadataJSON["supplier"] != "sandbox" {
		t.Fatalf("metadata not persisted: %+v", list[0].MetadataJSON)
	}
	count, err := repo.CountByOrder(10)
	if err != nil || count != 1 {
		t.Fatalf("count events want 1 got %d err=%v", count, err)
	}
}
