package repository

import (
	"strings"
	"time"

	"github.com/voltdrop/internal/constants"
	"github.com/voltdrop/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	GetByID(id uint) (*models.Order, error)
	GetForFulfillment(id uint) (*models.Order, error)
	GetBySupplierOrderID(supplierName, supplierOrderID string) (*models.Order, error)
	ListAdmin(filter OrderListFilter) ([]models.Order, int64, error)
	ListPollCandidates(filter PollCandidateFilter) ([]models.Order, error)
	ListRetryCandidates(filter RetryCandidateFilter) ([]models.Order, error)
	CountRecentOrders(filter RecentOrderFilter) (int64, error)
	ClaimDispatch(id uint, token string, now, staleBefore time.Time) (bool, error)
	CompleteDispatch(id uint, token string, updates map[string]interface{}) (bool, error)
	ReleaseDispatch(id uint, token string, updates map[string]interface{}) (bool, error)
	AdoptSupplierOrder(id uint, updates map[string]interface{}) (bool, error)
	UpdateSupplierStatus(id uint, expectedStatus string, updates map[string]interface{}) (bool, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

func (r *GormOrderRepository) withFulfillmentGraph(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Product").
		Preload("Items.Variant").
		Preload("Customer")
}

// Create 创建订单与订单项
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Omit("Items", "Customer").Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Omit("Product", "Variant").Create(&items).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetByID 根据 ID 获取订单（含订单项）
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	return firstOrNil[models.Order](r.db.Preload("Items"), id)
}

// GetForFulfillment 获取履约所需的完整订单（订单项、商品、规格、顾客）
func (r *GormOrderRepository) GetForFulfillment(id uint) (*models.Order, error) {
	return firstOrNil[models.Order](r.withFulfillmentGraph(r.db), id)
}

// GetBySupplierOrderID 根据供应商订单号定位订单
// 供应商名为空时只按订单号匹配
func (r *GormOrderRepository) GetBySupplierOrderID(supplierName, supplierOrderID string) (*models.Order, error) {
	supplierOrderID = strings.TrimSpace(supplierOrderID)
	if supplierOrderID == "" {
		return nil, nil
	}
	query := r.db.Where("supplier_order_id = ?", supplierOrderID)
	if name := strings.ToLower(strings.TrimSpace(supplierName)); name != "" {
		query = query.Where("supplier_name = ?", name)
	}
	return firstOrNil[models.Order](query)
}

// ListAdmin 后台订单列表
func (r *GormOrderRepository) ListAdmin(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})

	if filter.StoreID != 0 {
		query = query.Where("store_id = ?", filter.StoreID)
	}
	if filter.OrderNo != "" {
		query = query.Where("order_no = ?", filter.OrderNo)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		condition, args := dialectOf(r.db).likeAny([]string{"order_no", "customer_email", "customer_name"}, search)
		query = query.Where(condition, args...)
	}
	if filter.SupplierName != "" {
		query = query.Where("supplier_name = ?", strings.ToLower(filter.SupplierName))
	}
	if filter.SupplierOrderStatus != "" {
		query = query.Where("supplier_order_status = ?", strings.ToUpper(filter.SupplierOrderStatus))
	}
	if filter.FulfillmentStatus != "" {
		query = query.Where("fulfillment_status = ?", filter.FulfillmentStatus)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.ShippingCountry != "" {
		query = query.Where("UPPER("+dialectOf(r.db).jsonText("shipping_address", "country")+") = ?", strings.ToUpper(filter.ShippingCountry))
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	var orders []models.Order
	if err := query.Preload("Items").Order("id DESC").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListPollCandidates 获取需要轮询供应商状态的订单
func (r *GormOrderRepository) ListPollCandidates(filter PollCandidateFilter) ([]models.Order, error) {
	statuses := filter.Statuses
	if len(statuses) == 0 {
		statuses = constants.PollableSupplierStatuses
	}
	query := r.db.Model(&models.Order{}).
		Where("supplier_order_id IS NOT NULL AND supplier_order_id <> ''").
		Where("supplier_order_status IN ?", statuses)
	if filter.StoreID != nil {
		query = query.Where("store_id = ?", *filter.StoreID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var orders []models.Order
	if err := r.withFulfillmentGraph(query).Order("id ASC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListRetryCandidates 获取可重试自动下单的订单
// 已支付、未取消、未拿到供应商订单号、仍在 PENDING，且尝试次数未达上限
func (r *GormOrderRepository) ListRetryCandidates(filter RetryCandidateFilter) ([]models.Order, error) {
	query := r.db.Model(&models.Order{}).
		Where("payment_status = ?", constants.PaymentStatusPaid).
		Where("fulfillment_status <> ?", constants.FulfillmentStatusCancelled).
		Where("(supplier_order_id IS NULL OR supplier_order_id = '')").
		Where("supplier_order_status IN ?", []string{constants.SupplierStatusPending, ""})
	if filter.MaxAttempts > 0 {
		query = query.Where("auto_order_attempts < ?", filter.MaxAttempts)
	}
	if filter.LastAttemptBefore != nil {
		query = query.Where("(last_auto_order_at IS NULL OR last_auto_order_at <= ?)", *filter.LastAttemptBefore)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var orders []models.Order
	if err := query.Select("id", "order_no", "auto_order_attempts").Order("id ASC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// CountRecentOrders 统计同店铺内同一顾客（ID 或邮箱）近期的其他订单数
func (r *GormOrderRepository) CountRecentOrders(filter RecentOrderFilter) (int64, error) {
	email := strings.ToLower(strings.TrimSpace(filter.Email))
	if filter.CustomerID == nil && email == "" {
		return 0, nil
	}
	query := r.db.Model(&models.Order{}).
		Where("store_id = ?", filter.StoreID).
		Where("id <> ?", filter.ExcludeOrderID).
		Where("created_at >= ?", filter.Since)
	switch {
	case filter.CustomerID != nil && email != "":
		query = query.Where("(customer_id = ? OR LOWER(customer_email) = ?)", *filter.CustomerID, email)
	case filter.CustomerID != nil:
		query = query.Where("customer_id = ?", *filter.CustomerID)
	default:
		query = query.Where("LOWER(customer_email) = ?", email)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ClaimDispatch 抢占订单的下单权
// 只有尚未拿到供应商订单号、且没有未过期占用的订单才能抢到
func (r *GormOrderRepository) ClaimDispatch(id uint, token string, now, staleBefore time.Time) (bool, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ?", id).
		Where("(supplier_order_id IS NULL OR supplier_order_id = '')").
		Where("(dispatch_token IS NULL OR dispatch_claimed_at IS NULL OR dispatch_claimed_at < ?)", staleBefore).
		Updates(map[string]interface{}{
			"dispatch_token":      token,
			"dispatch_claimed_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CompleteDispatch 写入供应商订单号并释放占用
// 供应商订单号只允许写入一次
func (r *GormOrderRepository) CompleteDispatch(id uint, token string, updates map[string]interface{}) (bool, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND dispatch_token = ?", id, token).
		Where("(supplier_order_id IS NULL OR supplier_order_id = '')").
		Updates(withDispatchRelease(updates))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReleaseDispatch 记录失败并释放占用
func (r *GormOrderRepository) ReleaseDispatch(id uint, token string, updates map[string]interface{}) (bool, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND dispatch_token = ?", id, token).
		Updates(withDispatchRelease(updates))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// AdoptSupplierOrder 占用已被他人接管时，仍把供应商订单号写入尚未有单号的订单
func (r *GormOrderRepository) AdoptSupplierOrder(id uint, updates map[string]interface{}) (bool, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ?", id).
		Where("(supplier_order_id IS NULL OR supplier_order_id = '')").
		Updates(withDispatchRelease(updates))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func withDispatchRelease(updates map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(updates)+3)
	for k, v := range updates {
		merged[k] = v
	}
	merged["auto_order_attempts"] = gorm.Expr("auto_order_attempts + ?", 1)
	merged["dispatch_token"] = nil
	merged["dispatch_claimed_at"] = nil
	return merged
}

// UpdateSupplierStatus 按旧状态条件更新供应商状态，返回是否命中
func (r *GormOrderRepository) UpdateSupplierStatus(id uint, expectedStatus string, updates map[string]interface{}) (bool, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND supplier_order_status = ?", id, expectedStatus).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdateFields 更新订单字段
func (r *GormOrderRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}
