package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/voltdrop/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Queue       QueueConfig       `mapstructure:"queue"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Security    SecurityConfig    `mapstructure:"security"`
	Email       EmailConfig       `mapstructure:"email"`
	Supplier    SupplierConfig    `mapstructure:"supplier"`
	Fulfillment FulfillmentConfig `mapstructure:"fulfillment"`
	Risk        RiskConfig        `mapstructure:"risk"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release

	// 同步派单与回调处理会等待供应商响应，写超时需大于 supplier 超时
	WriteTimeoutSeconds int `mapstructure:"write_timeout_seconds"`
	IdleTimeoutSeconds  int `mapstructure:"idle_timeout_seconds"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`

	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Level,
		Console:    c.Console,
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// EmailConfig 邮件服务配置
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
	UseSSL   bool   `mapstructure:"use_ssl"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	LoginRateLimit   RateLimitConfig `mapstructure:"login_rate_limit"`
	WebhookRateLimit RateLimitConfig `mapstructure:"webhook_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
	BlockSeconds  int `mapstructure:"block_seconds"`
}

// SupplierConfig 供应商适配器配置
type SupplierConfig struct {
	Default               string                `mapstructure:"default"`
	RequestTimeoutSeconds int                   `mapstructure:"request_timeout_seconds"`
	BigBuy                SupplierAPIConfig     `mapstructure:"bigbuy"`
	CJ                    SupplierAPIConfig     `mapstructure:"cj"`
	Sandbox               SupplierSandboxConfig `mapstructure:"sandbox"`
}

// SupplierAPIConfig 单个 HTTP 供应商配置
type SupplierAPIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// SupplierSandboxConfig 沙箱供应商配置
type SupplierSandboxConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// RequestTimeout 供应商请求超时
func (c SupplierConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// FulfillmentConfig 履约流水线配置
type FulfillmentConfig struct {
	PollIntervalSeconds     int    `mapstructure:"poll_interval_seconds"`
	PollBatchSize           int    `mapstructure:"poll_batch_size"`
	RetryIntervalSeconds    int    `mapstructure:"retry_interval_seconds"`
	RetryMaxAttempts        int    `mapstructure:"retry_max_attempts"`
	RetryBatchSize          int    `mapstructure:"retry_batch_size"`
	DispatchClaimTTLSeconds int    `mapstructure:"dispatch_claim_ttl_seconds"`
	WebhookSecret           string `mapstructure:"webhook_secret"`
}

const (
	DefaultRetryInterval    = 5 * time.Minute
	DefaultRetryMaxAttempts = 5
	DefaultRetryBatchSize   = 50
)

// RetryInterval 自动重试间隔，也作为同一订单两次重试之间的最短间隔
func (c FulfillmentConfig) RetryInterval() time.Duration {
	if c.RetryIntervalSeconds <= 0 {
		return DefaultRetryInterval
	}
	return time.Duration(c.RetryIntervalSeconds) * time.Second
}

// RetryLimits 自动重试的尝试上限与单批数量，未配置时取默认值
func (c FulfillmentConfig) RetryLimits() (maxAttempts, batchSize int) {
	maxAttempts, batchSize = c.RetryMaxAttempts, c.RetryBatchSize
	if maxAttempts <= 0 {
		maxAttempts = DefaultRetryMaxAttempts
	}
	if batchSize <= 0 {
		batchSize = DefaultRetryBatchSize
	}
	return maxAttempts, batchSize
}

// RiskConfig 风险评分阈值配置
type RiskConfig struct {
	LocalCountry         string  `mapstructure:"local_country"`
	HighValueThreshold   float64 `mapstructure:"high_value_threshold"`
	MediumValueThreshold float64 `mapstructure:"medium_value_threshold"`
	FlagScore            int     `mapstructure:"flag_score"`
}

// Load 依次读取默认值、config.yml 与环境变量（server.port -> SERVER_PORT）
// CONFIG_FILE 可指定配置文件路径；找不到配置文件时只用默认值与环境变量
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if file := strings.TrimSpace(os.Getenv("CONFIG_FILE")); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, dir := range []string{".", "./etc", ".."} {
			v.AddConfigPath(dir)
		}
	}

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	case errors.As(err, &notFound):
		logger.Warnw("config_file_not_found", "fallback", "env_or_defaults")
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查无法靠默认值修正的组合
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Risk.MediumValueThreshold > c.Risk.HighValueThreshold {
		errs = append(errs, errors.New("risk.medium_value_threshold must not exceed risk.high_value_threshold"))
	}
	if !c.Supplier.enabled(c.Supplier.Default) {
		errs = append(errs, fmt.Errorf("supplier.default %q is not enabled", c.Supplier.Default))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c SupplierConfig) enabled(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bigbuy":
		return c.BigBuy.Enabled
	case "cj":
		return c.CJ.Enabled
	case "sandbox":
		return c.Sandbox.Enabled
	}
	return false
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.host":                  "0.0.0.0",
		"server.port":                  "8080",
		"server.mode":                  "debug",
		"server.write_timeout_seconds": 60,
		"server.idle_timeout_seconds":  120,

		"log.level":        "",
		"log.console":      false,
		"log.dir":          "",
		"log.filename":     "app.log",
		"log.max_size_mb":  100,
		"log.max_backups":  7,
		"log.max_age_days": 30,
		"log.compress":     true,

		"database.driver":                          "sqlite",
		"database.dsn":                             "./db/voltdrop.db",
		"database.pool.max_open_conns":             1,
		"database.pool.max_idle_conns":             1,
		"database.pool.conn_max_lifetime_seconds":  0,
		"database.pool.conn_max_idle_time_seconds": 0,

		"jwt.secret":       "change-me-in-production",
		"jwt.expire_hours": 24,

		"redis.enabled":  true,
		"redis.host":     "127.0.0.1",
		"redis.port":     6379,
		"redis.password": "",
		"redis.db":       0,
		"redis.prefix":   "vd",

		"queue.enabled":     true,
		"queue.host":        "127.0.0.1",
		"queue.port":        6379,
		"queue.password":    "",
		"queue.db":          1,
		"queue.concurrency": 10,
		"queue.queues":      map[string]int{"default": 10, "critical": 5},

		"cors.allowed_origins":   []string{"*"},
		"cors.allowed_methods":   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		"cors.allowed_headers":   []string{"Content-Type", "Authorization", "Cache-Control", "X-Requested-With", "X-Request-ID", "X-Webhook-Token"},
		"cors.allow_credentials": true,
		"cors.max_age":           600,

		"security.login_rate_limit.window_seconds":   300,
		"security.login_rate_limit.max_attempts":     5,
		"security.login_rate_limit.block_seconds":    900,
		"security.webhook_rate_limit.window_seconds": 60,
		"security.webhook_rate_limit.max_attempts":   120,
		"security.webhook_rate_limit.block_seconds":  60,

		"email.enabled":   false,
		"email.host":      "",
		"email.port":      587,
		"email.username":  "",
		"email.password":  "",
		"email.from":      "",
		"email.from_name": "Voltdrop",
		"email.use_ssl":   false,

		"supplier.default":                 "sandbox",
		"supplier.request_timeout_seconds": 15,
		"supplier.bigbuy.enabled":          false,
		"supplier.bigbuy.base_url":         "https://api.bigbuy.eu",
		"supplier.bigbuy.api_key":          "",
		"supplier.cj.enabled":              false,
		"supplier.cj.base_url":             "https://developers.cjdropshipping.com",
		"supplier.cj.api_key":              "",
		"supplier.sandbox.enabled":         true,

		"fulfillment.poll_interval_seconds":      600,
		"fulfillment.poll_batch_size":            200,
		"fulfillment.retry_interval_seconds":     300,
		"fulfillment.retry_max_attempts":         5,
		"fulfillment.retry_batch_size":           50,
		"fulfillment.dispatch_claim_ttl_seconds": 120,
		"fulfillment.webhook_secret":             "",

		"risk.local_country":          "NO",
		"risk.high_value_threshold":   4000,
		"risk.medium_value_threshold": 2500,
		"risk.flag_score":             50,
	}
}
