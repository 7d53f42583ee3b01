package supplier

import (
	"strings"

	"github.com/voltdrop/internal/constants"
)

var supplierStatusRank = map[string]int{
	constants.SupplierStatusPending:            0,
	constants.SupplierStatusSentToSupplier:     1,
	constants.SupplierStatusAcceptedBySupplier: 2,
	constants.SupplierStatusShipped:            3,
	constants.SupplierStatusDelivered:          4,
}

// IsTerminalStatus 是否终态
func IsTerminalStatus(status string) bool {
	return status == constants.SupplierStatusDelivered || status == constants.SupplierStatusCancelled
}

// IsKnownStatus 是否为合法的供应商订单状态
func IsKnownStatus(status string) bool {
	if status == constants.SupplierStatusCancelled {
		return true
	}
	_, ok := supplierStatusRank[status]
	return ok
}

// IsAhead 判断 next 是否在生命周期上领先于 current
// 取消可从任意非终态进入
func IsAhead(current, next string) bool {
	if IsTerminalStatus(current) {
		return false
	}
	if next == constants.SupplierStatusCancelled {
		return true
	}
	cur, ok := supplierStatusRank[current]
	if !ok {
		cur = -1
	}
	nxt, ok := supplierStatusRank[next]
	if !ok {
		return false
	}
	return nxt > cur
}

// NormalizeStatus 把常见的供应商原生状态映射为统一状态，无法识别返回空串
func NormalizeStatus(raw string) string {
	value := strings.ToUpper(strings.TrimSpace(raw))
	value = strings.NewReplacer(" ", "_", "-", "_").Replace(value)
	switch value {
	case constants.SupplierStatusPending, "CREATED", "NEW", "UNPAID":
		return constants.SupplierStatusPending
	case constants.SupplierStatusSentToSupplier, "SENT", "SUBMITTED", "RECEIVED":
		return constants.SupplierStatusSentToSupplier
	case constants.SupplierStatusAcceptedBySupplier, "ACCEPTED", "CONFIRMED", "PROCESSING", "IN_PROCESS", "PAID", "READY_TO_SHIP":
		return constants.SupplierStatusAcceptedBySupplier
	case constants.SupplierStatusShipped, "SHIPPING", "SENT_OUT", "DISPATCHED", "IN_TRANSIT":
		return constants.SupplierStatusShipped
	case constants.SupplierStatusDelivered, "COMPLETED", "FINISHED":
		return constants.SupplierStatusDelivered
	case constants.SupplierStatusCancelled, "CANCELED", "REJECTED", "CLOSED":
		return constants.SupplierStatusCancelled
	default:
		return ""
	}
}

// NormalizeTrackingStatus 把物流原生状态映射为统一物流状态
func NormalizeTrackingStatus(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.NewReplacer(" ", "_", "-", "_").Replace(value)
	switch value {
	case "delivered", "signed", "completed":
		return constants.TrackingStatusDelivered
	case "shipped", "dispatched", "picked_up", "sent":
		return constants.TrackingStatusShipped
	case "in_transit", "transit", "out_for_delivery", "on_the_way":
		return constants.TrackingStatusInTransit
	case "exception", "failed", "returned", "lost":
		return constants.TrackingStatusException
	case "", "pending", "info_received", "not_found":
		return constants.TrackingStatusPending
	default:
		return value
	}
}
