//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/voltdrop/internal/constants"
	"github.com/voltdrop/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	_ = db.Migrator().DropTable(models.AllModels()...)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("migrate postgres failed: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Migrator().DropTable(models.AllModels()...)
	})
	return db
}

func TestPostgresOrderFulfillmentQueries(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewOrderRepository(db)

	orders := []models.Order{
		{OrderNo: "PG-1", StoreID: 1, PaymentStatus: constants.PaymentStatusPaid, FulfillmentStatus: constants.FulfillmentStatusProcessing, ShippingAddress: `{"country":"se"}`},
		{OrderNo: "PG-2", StoreID: 1, PaymentStatus: constants.PaymentStatusPaid, FulfillmentStatus: constants.FulfillmentStatusProcessing, ShippingAddress: `broken`},
	}
	for i := range orders {
		if err := repo.Create(&orders[i], nil); err != nil {
			t.Fatalf("create order failed: %v", err)
		}
	}

	list, total, err := repo.ListAdmin(OrderListFilter{ShippingCountry: "SE", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list by country failed: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].OrderNo != "PG-1" {
		t.Fatalf("unexpected country filter result: total=%d list=%+v", total, list)
	}

	now := time.Now()
	ok, err := repo.ClaimDispatch(orders[0].ID, "pg-token", now, now.Add(-time.Minute))
	if err != nil || !ok {
		t.Fatalf("claim failed: ok=%v err=%v", ok, err)
	}
	ok, err = repo.ClaimDispatch(orders[0].ID, "pg-token-2", now, now.Add(-time.Minute))
	if err != nil || ok {
		t.Fatalf("second claim should lose: ok=%v err=%v", ok, err)
	}
}
