package supplier

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NormalizedOrder 发送给供应商的统一订单结构，每次下单时重新构建
type NormalizedOrder struct {
	OrderID         uint             `json:"orderId" validate:"required"`
	OrderNo         string           `json:"orderNo" validate:"required"`
	StoreID         uint             `json:"storeId"`
	Customer        CustomerInfo     `json:"customer"`
	ShippingAddress Address          `json:"shippingAddress"`
	Items           []NormalizedItem `json:"items" validate:"required,min=1,dive"`
}

// CustomerInfo 收件人信息
type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

// Address 收货地址
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country" validate:"omitempty,len=2"`
	Region     string `json:"region,omitempty"`
}

// NormalizedItem 订单行
type NormalizedItem struct {
	Name        string `json:"name"`
	Quantity    int    `json:"quantity" validate:"gt=0"`
	SupplierSKU string `json:"supplierSku" validate:"required"`
}

var orderValidator = validator.New()

// Validate 校验下单载荷
func (o NormalizedOrder) Validate() error {
	if err := orderValidator.Struct(o); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidOrder, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}
	return nil
}

var addressFieldAliases = map[string][]string{
	"line1":      {"line1", "address1", "address_line1", "street"},
	"line2":      {"line2", "address2", "address_line2"},
	"city":       {"city", "town"},
	"postalCode": {"postalCode", "postal_code", "zip", "zipCode", "postcode"},
	"country":    {"country", "countryCode", "country_code"},
	"region":     {"region", "state", "province"},
}

// ParseShippingAddress 解析订单上保存的原始地址 JSON
// 非法 JSON 或非对象返回空地址，不报错
func ParseShippingAddress(raw string) Address {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Address{}
	}
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil || fields == nil {
		return Address{}
	}
	pick := func(key string) string {
		for _, alias := range addressFieldAliases[key] {
			if v, ok := fields[alias]; ok {
				if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
		}
		return ""
	}
	return Address{
		Line1:      pick("line1"),
		Line2:      pick("line2"),
		City:       pick("city"),
		PostalCode: pick("postalCode"),
		Country:    strings.ToUpper(pick("country")),
		Region:     pick("region"),
	}
}
