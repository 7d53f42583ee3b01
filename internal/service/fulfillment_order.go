package service

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/voltdrop/internal/constants"
	"github.com/voltdrop/internal/models"
	"github.com/voltdrop/internal/supplier"
)

// SupplierResolver 按名称定位供应商适配器
type SupplierResolver interface {
	Resolve(name string) (supplier.Adapter, error)
	DefaultKind() supplier.Kind
}

// resolveSupplierName 订单已记录供应商时优先使用，否则取首个订单项商品的供应商
func resolveSupplierName(order *models.Order, fallback supplier.Kind) string {
	if order == nil {
		return string(fallback)
	}
	if name := strings.ToLower(strings.TrimSpace(order.SupplierName)); name != "" {
		return name
	}
	if len(order.Items) > 0 && order.Items[0].Product != nil {
		if name := strings.ToLower(strings.TrimSpace(order.Items[0].Product.SupplierName)); name != "" {
			return name
		}
	}
	return string(fallback)
}

// resolveSupplierSKU 供应商 SKU 回退顺序：商品供应商 SKU → 规格 SKU → 供应商商品ID → 商品ID
func resolveSupplierSKU(item models.OrderItem) string {
	if item.Product != nil {
		if sku := strings.TrimSpace(item.Product.SupplierSKU); sku != "" {
			return sku
		}
	}
	if item.Variant != nil {
		if sku := strings.TrimSpace(item.Variant.SKU); sku != "" {
			return sku
		}
	}
	if item.Product != nil {
		if id := strings.TrimSpace(item.Product.SupplierProductID); id != "" {
			return id
		}
	}
	return strconv.FormatUint(uint64(item.ProductID), 10)
}

// buildNormalizedOrder 每次下单时从订单实时构建供应商载荷
func buildNormalizedOrder(order *models.Order) supplier.NormalizedOrder {
	customer := supplier.CustomerInfo{
		Name:  strings.TrimSpace(order.CustomerName),
		Email: strings.TrimSpace(order.CustomerEmail),
		Phone: strings.TrimSpace(order.CustomerPhone),
	}
	if order.Customer != nil {
		if customer.Name == "" {
			customer.Name = strings.TrimSpace(order.Customer.Name)
		}
		if customer.Email == "" {
			customer.Email = strings.TrimSpace(order.Customer.Email)
		}
		if customer.Phone == "" {
			customer.Phone = strings.TrimSpace(order.Customer.Phone)
		}
	}

	items := make([]supplier.NormalizedItem, 0, len(order.Items))
	for _, item := range order.Items {
		name := strings.TrimSpace(item.Name)
		if name == "" && item.Product != nil {
			name = item.Product.Name
		}
		items = append(items, supplier.NormalizedItem{
			Name:        name,
			Quantity:    item.Quantity,
			SupplierSKU: resolveSupplierSKU(item),
		})
	}

	return supplier.NormalizedOrder{
		OrderID:         order.ID,
		OrderNo:         order.OrderNo,
		StoreID:         order.StoreID,
		Customer:        customer,
		ShippingAddress: supplier.ParseShippingAddress(order.ShippingAddress),
		Items:           items,
	}
}

func previousSupplierStatus(order *models.Order) string {
	if order == nil || strings.TrimSpace(order.SupplierOrderStatus) == "" {
		return constants.SupplierStatusPending
	}
	return order.SupplierOrderStatus
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

const maxStoredErrorLength = 1000

// truncateError 按字节截断，截断点落在多字节字符中间时向前退到字符边界
func truncateError(err error) string {
	if err == nil {
		return ""
	}
	message := err.Error()
	if len(message) <= maxStoredErrorLength {
		return message
	}
	cut := maxStoredErrorLength
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut]
}
