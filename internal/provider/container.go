package provider

import (
	"time"

	"github.com/voltdrop/internal/authz"
	"github.com/voltdrop/internal/cache"
	"github.com/voltdrop/internal/config"
	"github.com/voltdrop/internal/logger"
	"github.com/voltdrop/internal/models"
	"github.com/voltdrop/internal/queue"
	"github.com/voltdrop/internal/repository"
	"github.com/voltdrop/internal/service"
	"github.com/voltdrop/internal/supplier"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	QueueClient *queue.Client
	Suppliers   *supplier.Registry

	// Repositories
	AdminRepo         repository.AdminRepository
	OrderRepo         repository.OrderRepository
	SupplierEventRepo repository.SupplierEventRepository
	OperatorAuditRepo repository.OperatorAuditRepository

	// Services
	AuthzService         *authz.Service
	AuthService          *service.AuthService
	EmailService         *service.EmailService
	ShipmentEmailService *service.ShipmentEmailService
	SupplierEventLog     *service.SupplierEventLog
	DispatchService      *service.DispatchService
	TrackingService      *service.TrackingService
	StatusPoller         *service.StatusPoller
	RiskService          *service.RiskService
	OrderAdminService    *service.OrderAdminService
	OperatorAuditService *service.OperatorAuditService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed_fallback_single_instance", "error", err)
	}

	// 初始化队列客户端，未启用时为空实现
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient, _ = queue.NewClient(nil)
	}

	suppliers, err := supplier.NewRegistryFromConfig(cfg.Supplier)
	if err != nil {
		logger.Errorw("provider_init_supplier_registry_failed", "error", err)
		panic(err)
	}

	c := &Container{
		Config:      cfg,
		DB:          models.DB,
		QueueClient: queueClient,
		Suppliers:   suppliers,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	c.AdminRepo = repository.NewAdminRepository(c.DB)
	c.OrderRepo = repository.NewOrderRepository(c.DB)
	c.SupplierEventRepo = repository.NewSupplierEventRepository(c.DB)
	c.OperatorAuditRepo = repository.NewOperatorAuditRepository(c.DB)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(c.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	fulfillment := c.Config.Fulfillment
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.ShipmentEmailService = service.NewShipmentEmailService(c.OrderRepo, c.EmailService)
	c.SupplierEventLog = service.NewSupplierEventLog(c.SupplierEventRepo)
	c.DispatchService = service.NewDispatchService(service.DispatchServiceOptions{
		DB:        c.DB,
		OrderRepo: c.OrderRepo,
		Events:    c.SupplierEventLog,
		Suppliers: c.Suppliers,
		Queue:     c.QueueClient,
		ClaimTTL:  seconds(fulfillment.DispatchClaimTTLSeconds),

		RetryBackoff: fulfillment.RetryInterval(),
	})
	c.TrackingService = service.NewTrackingService(service.TrackingServiceOptions{
		DB:          c.DB,
		OrderRepo:   c.OrderRepo,
		Events:      c.SupplierEventLog,
		Suppliers:   c.Suppliers,
		QueueClient: c.QueueClient,
		Notifier:    c.ShipmentEmailService,
	})
	c.StatusPoller = service.NewStatusPoller(service.StatusPollerOptions{
		DB:          c.DB,
		OrderRepo:   c.OrderRepo,
		Events:      c.SupplierEventLog,
		Suppliers:   c.Suppliers,
		QueueClient: c.QueueClient,
		Locker:      cache.RedisLocker{},
		Tracking:    c.TrackingService,
		BatchSize:   fulfillment.PollBatchSize,
	})
	c.RiskService = service.NewRiskService(c.OrderRepo, service.RiskPolicyFromConfig(c.Config.Risk))
	c.OrderAdminService = service.NewOrderAdminService(c.OrderRepo, c.SupplierEventLog)
	c.OperatorAuditService = service.NewOperatorAuditService(c.OperatorAuditRepo)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
