package queue

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/voltdrop/internal/config"
	"github.com/voltdrop/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 下单等关键任务队列
	CriticalQueue = constants.QueueCritical

	shipmentEmailRetention     = 24 * time.Hour
	trackingRefreshUniqueSlack = time.Minute
	trackingRefreshMaxRetry    = 3
	defaultConcurrency         = 10
)

// ErrAlreadyQueued 相同任务 ID 的任务仍在排队或执行中
var ErrAlreadyQueued = errors.New("task already queued")

// Client 投递端，队列未启用时所有 Enqueue 都是空操作
type Client struct {
	inner     *asynq.Client
	inspector *asynq.Inspector
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	opt := buildRedisOpt(cfg)
	return &Client{inner: asynq.NewClient(opt), inspector: asynq.NewInspector(opt)}, nil
}

func (c *Client) Enabled() bool {
	return c != nil && c.inner != nil
}

func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return errors.Join(c.inspector.Close(), c.inner.Close())
}

// EnqueueSupplierDispatch 同一订单同一时刻只有一个待执行的下单任务，且不重试
// 已有任务在排队或执行中时返回 ErrAlreadyQueued
func (c *Client) EnqueueSupplierDispatch(payload SupplierDispatchPayload, opts ...asynq.Option) error {
	enqueue := c.enqueue(func() (*asynq.Task, error) { return NewSupplierDispatchTask(payload) },
		asynq.Queue(CriticalQueue),
		asynq.TaskID(DispatchTaskID(payload.OrderID)),
		asynq.MaxRetry(0),
	)
	err := enqueue(opts...)
	if !errors.Is(err, ErrAlreadyQueued) {
		return err
	}
	// 归档的失败任务仍占着任务 ID，清掉后重新投递
	if !c.clearFinishedTask(CriticalQueue, DispatchTaskID(payload.OrderID)) {
		return err
	}
	return enqueue(opts...)
}

// EnqueueSupplierTrackingRefresh 延迟刷新物流；等待窗口内同一订单的重复刷新被合并
func (c *Client) EnqueueSupplierTrackingRefresh(payload SupplierTrackingRefreshPayload, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	return ignoreAlreadyQueued(c.enqueue(func() (*asynq.Task, error) { return NewSupplierTrackingRefreshTask(payload) },
		asynq.Queue(DefaultQueue),
		asynq.ProcessIn(delay),
		asynq.Unique(delay+trackingRefreshUniqueSlack),
		asynq.MaxRetry(trackingRefreshMaxRetry),
	)())
}

// EnqueueOrderShipmentEmail 每个订单的每次状态变化只发一封
func (c *Client) EnqueueOrderShipmentEmail(payload OrderShipmentEmailPayload, opts ...asynq.Option) error {
	return ignoreAlreadyQueued(c.enqueue(func() (*asynq.Task, error) { return NewOrderShipmentEmailTask(payload) },
		asynq.Queue(DefaultQueue),
		asynq.TaskID(ShipmentEmailTaskID(payload.OrderID, payload.FulfillmentStatus)),
		asynq.Retention(shipmentEmailRetention),
	)(opts...))
}

// enqueue 组合默认选项与调用方追加的选项，任务 ID 冲突或重复返回 ErrAlreadyQueued
func (c *Client) enqueue(build func() (*asynq.Task, error), defaults ...asynq.Option) func(...asynq.Option) error {
	return func(extra ...asynq.Option) error {
		if !c.Enabled() {
			return nil
		}
		task, err := build()
		if err != nil {
			return err
		}
		options := make([]asynq.Option, 0, len(defaults)+len(extra))
		options = append(append(options, defaults...), extra...)
		_, err = c.inner.Enqueue(task, options...)
		return normalizeEnqueueError(err)
	}
}

func normalizeEnqueueError(err error) error {
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return ErrAlreadyQueued
	}
	return err
}

func ignoreAlreadyQueued(err error) error {
	if errors.Is(err, ErrAlreadyQueued) {
		return nil
	}
	return err
}

// clearFinishedTask 删除已归档或已完成但仍占用任务 ID 的任务
func (c *Client) clearFinishedTask(queueName, taskID string) bool {
	info, err := c.inspector.GetTaskInfo(queueName, taskID)
	if err != nil {
		return false
	}
	switch info.State {
	case asynq.TaskStateArchived, asynq.TaskStateCompleted:
		return c.inspector.DeleteTask(queueName, taskID) == nil
	default:
		return false
	}
}

// BuildServerConfig 消费端的 Redis 连接与并发配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	serverCfg := asynq.Config{
		Concurrency: defaultConcurrency,
		Queues:      map[string]int{DefaultQueue: 1, CriticalQueue: 2},
	}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			serverCfg.Concurrency = cfg.Concurrency
		}
		if len(cfg.Queues) > 0 {
			serverCfg.Queues = cfg.Queues
		}
	}
	return buildRedisOpt(cfg), serverCfg
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}
