package constants

// 供应商订单状态常量
const (
	SupplierStatusPending            = "PENDING"
	SupplierStatusSentToSupplier     = "SENT_TO_SUPPLIER"
	SupplierStatusAcceptedBySupplier = "ACCEPTED_BY_SUPPLIER"
	SupplierStatusShipped            = "SHIPPED"
	SupplierStatusDelivered          = "DELIVERED"
	SupplierStatusCancelled          = "CANCELLED"
)

// PollableSupplierStatuses 需要轮询供应商状态的订单
var PollableSupplierStatuses = []string{
	SupplierStatusSentToSupplier,
	SupplierStatusAcceptedBySupplier,
	SupplierStatusShipped,
}

// 物流状态常量（供应商物流接口归一化结果）
const (
	TrackingStatusPending   = "pending"
	TrackingStatusInTransit = "in_transit"
	TrackingStatusShipped   = "shipped"
	TrackingStatusDelivered = "delivered"
	TrackingStatusException = "exception"
)

// 履约状态常量
const (
	FulfillmentStatusProcessing = "processing"
	FulfillmentStatusShipped    = "shipped"
	FulfillmentStatusDelivered  = "delivered"
	FulfillmentStatusCancelled  = "cancelled"
)

// 支付状态常量
const (
	PaymentStatusUnpaid            = "unpaid"
	PaymentStatusPaid              = "paid"
	PaymentStatusRefunded          = "refunded"
	PaymentStatusPartiallyRefunded = "partially_refunded"
)

// 下单结果常量
const (
	DispatchOutcomeSent     = "sent"
	DispatchOutcomeFailed   = "failed"
	DispatchOutcomeSkipped  = "skipped"
	DispatchOutcomeNotFound = "not_found"
)

// 下单跳过原因常量
const (
	DispatchSkipAlreadySent = "already_sent"
	DispatchSkipNotPaid     = "not_paid"
	DispatchSkipCancelled   = "cancelled"
	DispatchSkipNoItems     = "no_items"
	DispatchSkipInFlight    = "in_flight"
	DispatchSkipQueued      = "already_queued"
)

// 风险标记常量
const (
	RiskFlagHighValue         = "high_value"
	RiskFlagMediumValue       = "medium_value"
	RiskFlagNonLocalCountry   = "non_local_country"
	RiskFlagManyOrders24h     = "many_orders_24h"
	RiskFlagMultipleOrders24h = "multiple_orders_24h"
)

// 队列常量
const (
	QueueDefault                = "default"
	QueueCritical               = "critical"
	TaskSupplierDispatch        = "supplier:dispatch"
	TaskSupplierTrackingRefresh = "supplier:tracking_refresh"
	TaskOrderShipmentEmail      = "order:shipment_email"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "vd"
)

// 币种常量
const (
	CurrencyDefault = "NOK"
)

// 请求头常量
const (
	HeaderWebhookToken = "X-Webhook-Token"
)

// 后台操作审计动作常量
const (
	AuditActionAuthzRolesSet        = "authz_roles_set"
	AuditActionOrderDispatch        = "order_dispatch"
	AuditActionOrderTrackingRefresh = "order_tracking_refresh"
	AuditActionFulfillmentPoll      = "fulfillment_poll"
	AuditActionFulfillmentRetry     = "fulfillment_retry"
)

// 审计结果常量
const (
	AuditOutcomeSucceeded = "succeeded"
	AuditOutcomeFailed    = "failed"
)
