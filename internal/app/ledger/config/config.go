package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/mem-transfer-ledger/pkg/logger"
	"github.com/JoeShih716/mem-transfer-ledger/pkg/mysql"
)

// DefaultPath 預設設定檔路徑
const DefaultPath = "config/config.yaml"

// Config 服務設定
type Config struct {
	GRPC         ServerConfig       `yaml:"grpc"`
	HTTP         ServerConfig       `yaml:"http"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Log          logger.Config      `yaml:"log"`
	Tracing      TracingConfig      `yaml:"tracing"`
	Notification NotificationConfig `yaml:"notification"`
	SeedAccounts []SeedAccount      `yaml:"seed_accounts"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// NotificationConfig 通知派送器與各個 sink 的設定，沒有開任何 sink 時只寫 log
type NotificationConfig struct {
	Workers   int           `yaml:"workers"`
	QueueSize int           `yaml:"queue_size"`
	Timeout   time.Duration `yaml:"timeout"`
	// EnqueueTimeout 輸送帶滿時轉帳最多等多久，0 表示直接丟棄通知
	EnqueueTimeout time.Duration `yaml:"enqueue_timeout"`

	Log     bool          `yaml:"log"`
	Journal JournalConfig `yaml:"journal"`
	NATS    NATSConfig    `yaml:"nats"`
	MySQL   MySQLConfig   `yaml:"mysql"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Sync    bool   `yaml:"sync"`
}

type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type MySQLConfig struct {
	Enabled      bool `yaml:"enabled"`
	mysql.Config `yaml:",inline"`
}

// SeedAccount 啟動時建立的帳戶
type SeedAccount struct {
	ID      string          `yaml:"id"`
	Balance decimal.Decimal `yaml:"balance"`
}

// Default 回傳全部使用預設值的設定
func Default() Config {
	var cfg Config
	cfg.SetDefaults()
	return cfg
}

// Load 讀取 YAML 設定檔，檔案不存在時使用預設值
//
// 參數:
//
//	path: string - 設定檔路徑
//
// 回傳值:
//
//	Config: 補齊預設值且通過檢查的設定
//	error: 讀檔、解析或檢查失敗
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults 補上 yaml 沒寫的預設值
func (c *Config) SetDefaults() {
	if c.GRPC.Addr == "" {
		c.GRPC.Addr = ":50051"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = "localhost:4317"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "mem-transfer-ledger"
	}

	n := &c.Notification
	if n.Workers == 0 {
		n.Workers = 4
	}
	if n.QueueSize == 0 {
		n.QueueSize = 1024
	}
	if n.Timeout == 0 {
		n.Timeout = 5 * time.Second
	}
	if n.Journal.Path == "" {
		n.Journal.Path = "notifications.log"
	}
	if n.NATS.URL == "" {
		n.NATS.URL = "nats://localhost:4222"
	}
	if n.NATS.Subject == "" {
		n.NATS.Subject = "ledger.notifications"
	}
	if !n.Log && !n.Journal.Enabled && !n.NATS.Enabled && !n.MySQL.Enabled {
		n.Log = true
	}
	if n.MySQL.Enabled {
		n.MySQL.SetDefaults()
	}
}

// Validate 檢查設定值
func (c Config) Validate() error {
	var errs []error
	// 0 已在 SetDefaults 換成預設值
	if c.Notification.Workers < 0 {
		errs = append(errs, fmt.Errorf("notification.workers must not be negative, got %d", c.Notification.Workers))
	}
	if c.Notification.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("notification.queue_size must not be negative, got %d", c.Notification.QueueSize))
	}
	if c.Notification.EnqueueTimeout < 0 {
		errs = append(errs, fmt.Errorf("notification.enqueue_timeout must not be negative, got %s", c.Notification.EnqueueTimeout))
	}
	if c.Notification.MySQL.Enabled && c.Notification.MySQL.Host == "" {
		errs = append(errs, errors.New("notification.mysql.host is required when mysql is enabled"))
	}

	seen := make(map[string]struct{}, len(c.SeedAccounts))
	for i, seed := range c.SeedAccounts {
		if seed.ID == "" {
			errs = append(errs, fmt.Errorf("seed_accounts[%d]: id is required", i))
			continue
		}
		if seed.Balance.IsNegative() {
			errs = append(errs, fmt.Errorf("seed_accounts[%d]: balance of %s must not be negative", i, seed.ID))
		}
		if _, ok := seen[seed.ID]; ok {
			errs = append(errs, fmt.Errorf("seed_accounts[%d]: duplicate id %s", i, seed.ID))
		}
		seen[seed.ID] = struct{}{}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
