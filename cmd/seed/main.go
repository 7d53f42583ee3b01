package main

import (
	"fmt"
	"time"

	"github.com/voltdrop/internal/config"
	"github.com/voltdrop/internal/constants"
	"github.com/voltdrop/internal/logger"
	"github.com/voltdrop/internal/models"

	"github.com/shopspring/decimal"
)

type seedProduct struct {
	Slug              string
	Name              string
	SupplierName      string
	SupplierSKU       string
	SupplierProductID string
	Price             float64
	Variants          []models.ProductVariant
}

type seedOrder struct {
	OrderNo  string
	Customer string
	Country  string
	Items    map[string]int
	Paid     bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.StdLogger().Fatalf("load config: %v", err)
	}
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 店铺
	store := models.Store{Slug: "nordic-gadgets", Name: "Nordic Gadgets"}
	if err := models.DB.Where("slug = ?", store.Slug).FirstOrCreate(&store).Error; err != nil {
		stdLog.Fatalf("Failed to create store: %v", err)
	}
	stdLog.Printf("Store ready: %s (id=%d)", store.Slug, store.ID)

	// 商品，覆盖每个供应商
	products := []seedProduct{
		{Slug: "usb-c-charger", Name: "USB-C Charger 65W", SupplierName: "bigbuy", SupplierSKU: "BB-CHG-65", Price: 349},
		{Slug: "led-desk-lamp", Name: "LED Desk Lamp", SupplierName: "bigbuy", SupplierProductID: "BB-P-2201", Price: 499,
			Variants: []models.ProductVariant{
				{SKU: "BB-LAMP-BLK", Name: "Black"},
				{SKU: "BB-LAMP-WHT", Name: "White"},
			}},
		{Slug: "wireless-earbuds", Name: "Wireless Earbuds", SupplierName: "cj", SupplierSKU: "CJ-EAR-77", Price: 899},
		{Slug: "robot-vacuum", Name: "Robot Vacuum", SupplierName: "cj", SupplierSKU: "CJ-VAC-01", Price: 4299},
		{Slug: "sandbox-mug", Name: "Sandbox Mug", SupplierName: "sandbox", SupplierSKU: "SBX-MUG", Price: 129},
	}
	productIDs := map[string]uint{}
	productPrices := map[string]decimal.Decimal{}
	productNames := map[string]string{}
	for _, item := range products {
		var existing models.Product
		if err := models.DB.Where("store_id = ? AND slug = ?", store.ID, item.Slug).First(&existing).Error; err == nil {
			stdLog.Printf("Product already exists: %s", item.Slug)
			productIDs[item.Slug] = existing.ID
			productPrices[item.Slug] = existing.PriceAmount.Decimal
			productNames[item.Slug] = existing.Name
			continue
		}
		price := decimal.NewFromFloat(item.Price)
		product := models.Product{
			StoreID:           store.ID,
			Name:              item.Name,
			Slug:              item.Slug,
			SupplierName:      item.SupplierName,
			SupplierSKU:       item.SupplierSKU,
			SupplierProductID: item.SupplierProductID,
			PriceAmount:       models.NewMoneyFromDecimal(price),
			IsActive:          true,
			Variants:          item.Variants,
		}
		if err := models.DB.Create(&product).Error; err != nil {
			stdLog.Printf("Failed to create product %s: %v", item.Slug, err)
			continue
		}
		stdLog.Printf("Created product: %s (%s)", item.Slug, item.SupplierName)
		productIDs[item.Slug] = product.ID
		productPrices[item.Slug] = price
		productNames[item.Slug] = product.Name
	}

	// 顾客
	customers := []models.Customer{
		{StoreID: store.ID, Email: "kari.nordmann@example.no", Name: "Kari Nordmann", Phone: "+4791234567"},
		{StoreID: store.ID, Email: "ola.hansen@example.no", Name: "Ola Hansen", Phone: "+4792345678"},
		{StoreID: store.ID, Email: "anna.berg@example.se", Name: "Anna Berg", Phone: "+46701234567"},
	}
	customerByEmail := map[string]models.Customer{}
	for _, customer := range customers {
		c := customer
		if err := models.DB.Where("store_id = ? AND email = ?", store.ID, c.Email).FirstOrCreate(&c).Error; err != nil {
			stdLog.Printf("Failed to create customer %s: %v", c.Email, err)
			continue
		}
		customerByEmail[c.Email] = c
	}

	// 订单：已支付待下单、未支付、瑞典地址的高价订单
	orders := []seedOrder{
		{OrderNo: "VD-SEED-0001", Customer: "kari.nordmann@example.no", Country: "NO", Items: map[string]int{"usb-c-charger": 1}, Paid: true},
		{OrderNo: "VD-SEED-0002", Customer: "kari.nordmann@example.no", Country: "NO", Items: map[string]int{"wireless-earbuds": 2}, Paid: true},
		{OrderNo: "VD-SEED-0003", Customer: "ola.hansen@example.no", Country: "NO", Items: map[string]int{"sandbox-mug": 3}, Paid: true},
		{OrderNo: "VD-SEED-0004", Customer: "anna.berg@example.se", Country: "SE", Items: map[string]int{"robot-vacuum": 1}, Paid: true},
		{OrderNo: "VD-SEED-0005", Customer: "ola.hansen@example.no", Country: "NO", Items: map[string]int{"led-desk-lamp": 1}, Paid: false},
	}
	created := 0
	for _, item := range orders {
		var count int64
		if err := models.DB.Model(&models.Order{}).Where("order_no = ?", item.OrderNo).Count(&count).Error; err != nil {
			stdLog.Printf("Failed to check order %s: %v", item.OrderNo, err)
			continue
		}
		if count > 0 {
			stdLog.Printf("Order already exists: %s", item.OrderNo)
			continue
		}
		customer, ok := customerByEmail[item.Customer]
		if !ok {
			stdLog.Printf("Skip order %s: customer %s missing", item.OrderNo, item.Customer)
			continue
		}

		total := decimal.Zero
		orderItems := make([]models.OrderItem, 0, len(item.Items))
		for slug, qty := range item.Items {
			productID, ok := productIDs[slug]
			if !ok {
				continue
			}
			unit := models.NewMoneyFromDecimal(productPrices[slug])
			total = total.Add(models.LineTotal(unit, qty).Decimal)
			orderItems = append(orderItems, models.OrderItem{
				ProductID: productID,
				Name:      productNames[slug],
				Quantity:  qty,
				UnitPrice: unit,
			})
		}

		order := models.Order{
			OrderNo:             item.OrderNo,
			StoreID:             store.ID,
			CustomerID:          &customer.ID,
			CustomerEmail:       customer.Email,
			CustomerName:        customer.Name,
			CustomerPhone:       customer.Phone,
			ShippingAddress:     seedAddress(item.Country),
			Currency:            constants.CurrencyDefault,
			TotalAmount:         models.NewMoneyFromDecimal(total),
			PaymentStatus:       constants.PaymentStatusUnpaid,
			FulfillmentStatus:   constants.FulfillmentStatusProcessing,
			SupplierOrderStatus: constants.SupplierStatusPending,
			Items:               orderItems,
		}
		if item.Paid {
			paidAt := time.Now()
			order.PaymentStatus = constants.PaymentStatusPaid
			order.PaidAt = &paidAt
		}
		if err := models.DB.Create(&order).Error; err != nil {
			stdLog.Printf("Failed to create order %s: %v", item.OrderNo, err)
			continue
		}
		created++
		stdLog.Printf("Created order: %s (total=%s, paid=%v)", order.OrderNo, total.StringFixed(2), item.Paid)
	}

	fmt.Println("\n✅ Seed data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 1 Store")
	fmt.Printf("- %d Products (bigbuy / cj / sandbox)\n", len(products))
	fmt.Printf("- %d Customers\n", len(customers))
	fmt.Printf("- %d Orders created this run\n", created)
}

func seedAddress(country string) string {
	switch country {
	case "SE":
		return `{"line1":"Drottninggatan 12","city":"Stockholm","postalCode":"11151","country":"SE"}`
	default:
		return `{"line1":"Karl Johans gate 1","city":"Oslo","postalCode":"0154","country":"NO"}`
	}
}
