package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/voltdrop/internal/config"
	"github.com/voltdrop/internal/constants"
	"github.com/voltdrop/internal/repository"
	"github.com/voltdrop/internal/supplier"

	"github.com/shopspring/decimal"
)

const riskRecentWindow = 24 * time.Hour

// RiskPolicy 风险评分阈值
type RiskPolicy struct {
	LocalCountry string
	HighValue    decimal.Decimal
	MediumValue  decimal.Decimal
	FlagScore    int
}

// DefaultRiskPolicy 默认阈值
func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{
		LocalCountry: "NO",
		HighValue:    decimal.NewFromInt(4000),
		MediumValue:  decimal.NewFromInt(2500),
		FlagScore:    50,
	}
}

// RiskPolicyFromConfig 从配置构建阈值，缺省项使用默认值
func RiskPolicyFromConfig(cfg config.RiskConfig) RiskPolicy {
	policy := DefaultRiskPolicy()
	if country := strings.ToUpper(strings.TrimSpace(cfg.LocalCountry)); country != "" {
		policy.LocalCountry = country
	}
	if cfg.HighValueThreshold > 0 {
		policy.HighValue = decimal.NewFromFloat(cfg.HighValueThreshold)
	}
	if cfg.MediumValueThreshold > 0 {
		policy.MediumValue = decimal.NewFromFloat(cfg.MediumValueThreshold)
	}
	if cfg.FlagScore > 0 {
		policy.FlagScore = cfg.FlagScore
	}
	return policy
}

// RiskInput 评分输入
type RiskInput struct {
	Total           decimal.Decimal
	ShippingCountry string
	RecentOrders    int64
}

// RiskResult 评分结果
type RiskResult struct {
	OrderID   uint     `json:"order_id"`
	RiskScore int      `json:"risk_score"`
	Flags     []string `json:"flags"`
	IsFlagged bool     `json:"is_flagged"`
}

// ScoreOrderRisk 纯函数评分
func ScoreOrderRisk(input RiskInput, policy RiskPolicy) RiskResult {
	result := RiskResult{Flags: make([]string, 0, 3)}
	highValue := false

	switch {
	case input.Total.GreaterThanOrEqual(policy.HighValue):
		result.RiskScore += 40
		result.Flags = append(result.Flags, constants.RiskFlagHighValue)
		highValue = true
	case input.Total.GreaterThanOrEqual(policy.MediumValue):
		result.RiskScore += 25
		result.Flags = append(result.Flags, constants.RiskFlagMediumValue)
	}

	country := strings.ToUpper(strings.TrimSpace(input.ShippingCountry))
	if country != "" && country != strings.ToUpper(policy.LocalCountry) {
		result.RiskScore += 20
		result.Flags = append(result.Flags, constants.RiskFlagNonLocalCountry)
	}

	switch {
	case input.RecentOrders >= 3:
		result.RiskScore += 30
		result.Flags = append(result.Flags, constants.RiskFlagManyOrders24h)
	case input.RecentOrders == 2:
		result.RiskScore += 15
		result.Flags = append(result.Flags, constants.RiskFlagMultipleOrders24h)
	}

	result.IsFlagged = result.RiskScore >= policy.FlagScore || highValue
	return result
}

// RiskService 订单风险评估
type RiskService struct {
	orderRepo repository.OrderRepository
	policy    RiskPolicy
	now       func() time.Time
}

// NewRiskService 创建风险评估服务
func NewRiskService(orderRepo repository.OrderRepository, policy RiskPolicy) *RiskService {
	return &RiskService{orderRepo: orderRepo, policy: policy, now: time.Now}
}

// EvaluateOrderRisk 评估订单风险，只读不落库
func (s *RiskService) EvaluateOrderRisk(orderID uint) (*RiskResult, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	recent, err := s.orderRepo.CountRecentOrders(repository.RecentOrderFilter{
		StoreID:        order.StoreID,
		ExcludeOrderID: order.ID,
		CustomerID:     order.CustomerID,
		Email:          order.CustomerEmail,
		Since:          s.now().Add(-riskRecentWindow),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}

	result := ScoreOrderRisk(RiskInput{
		Total:           order.TotalAmount.Decimal,
		ShippingCountry: supplier.ParseShippingAddress(order.ShippingAddress).Country,
		RecentOrders:    recent,
	}, s.policy)
	result.OrderID = order.ID
	return &result, nil
}
