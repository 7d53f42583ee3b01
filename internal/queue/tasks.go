package queue

import (
	"encoding/json"
	"fmt"

	"github.com/voltdrop/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskSupplierDispatch 向供应商自动下单任务
	TaskSupplierDispatch = constants.TaskSupplierDispatch
	// TaskSupplierTrackingRefresh 物流刷新任务
	TaskSupplierTrackingRefresh = constants.TaskSupplierTrackingRefresh
	// TaskOrderShipmentEmail 发货通知邮件任务
	TaskOrderShipmentEmail = constants.TaskOrderShipmentEmail
)

// SupplierDispatchPayload 自动下单任务载荷
type SupplierDispatchPayload struct {
	OrderID uint `json:"order_id"`
}

// SupplierTrackingRefreshPayload 物流刷新任务载荷
type SupplierTrackingRefreshPayload struct {
	OrderID uint `json:"order_id"`
}

// OrderShipmentEmailPayload 发货通知邮件任务载荷
type OrderShipmentEmailPayload struct {
	OrderID           uint   `json:"order_id"`
	FulfillmentStatus string `json:"fulfillment_status"`
}

// NewSupplierDispatchTask 创建自动下单任务
func NewSupplierDispatchTask(payload SupplierDispatchPayload) (*asynq.Task, error) {
	return newJSONTask(TaskSupplierDispatch, payload)
}

// NewSupplierTrackingRefreshTask 创建物流刷新任务
func NewSupplierTrackingRefreshTask(payload SupplierTrackingRefreshPayload) (*asynq.Task, error) {
	return newJSONTask(TaskSupplierTrackingRefresh, payload)
}

// NewOrderShipmentEmailTask 创建发货通知邮件任务
func NewOrderShipmentEmailTask(payload OrderShipmentEmailPayload) (*asynq.Task, error) {
	return newJSONTask(TaskOrderShipmentEmail, payload)
}

func newJSONTask(taskType string, payload interface{}) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body), nil
}

// DispatchTaskID 同一订单的下单任务去重键
func DispatchTaskID(orderID uint) string {
	return fmt.Sprintf("%s:%d", TaskSupplierDispatch, orderID)
}

// ShipmentEmailTaskID 同一订单同一状态的邮件去重键
func ShipmentEmailTaskID(orderID uint, fulfillmentStatus string) string {
	return fmt.Sprintf("%s:%d:%s", TaskOrderShipmentEmail, orderID, fulfillmentStatus)
}

// OrderScoped 所有任务载荷都指向一个订单
type OrderScoped interface {
	TargetOrderID() uint
}

func (p SupplierDispatchPayload) TargetOrderID() uint        { return p.OrderID }
func (p SupplierTrackingRefreshPayload) TargetOrderID() uint { return p.OrderID }
func (p OrderShipmentEmailPayload) TargetOrderID() uint      { return p.OrderID }
