package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

const moneyScale = 2

// Money 订单与商品金额，始终按 2 位小数存取，币种由订单 currency 字段决定
type Money struct {
	decimal.Decimal
}

func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(moneyScale)}
}

// NewMoney 解析字符串金额，非法输入返回 0
func NewMoney(amount string) Money {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}
	}
	return NewMoneyFromDecimal(d)
}

// LineTotal 单价 × 数量
func LineTotal(unit Money, quantity int) Money {
	return NewMoneyFromDecimal(unit.Decimal.Mul(decimal.NewFromInt(int64(quantity))))
}

func (m Money) String() string {
	return m.Decimal.Round(moneyScale).StringFixed(moneyScale)
}

// MarshalJSON 输出字符串避免浮点精度丢失
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON 兼容供应商回传的字符串与数字两种金额格式
func (m *Money) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "" || raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return err
	}
	m.Decimal = d.Round(moneyScale)
	return nil
}

func (m Money) Value() (driver.Value, error) {
	return m.Decimal.Round(moneyScale).Value()
}

func (m *Money) Scan(value interface{}) error {
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = m.Decimal.Round(moneyScale)
	return nil
}
