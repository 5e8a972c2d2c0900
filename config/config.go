package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/mengeric/scrape-trigger-go/scheduler"
)

// DefaultHour 未配置 schedule.hour 时每天运行的整点。
const DefaultHour = 8

// ErrMissingEndpoint 未配置远端启动接口。
var ErrMissingEndpoint = errors.New("trigger.endpoint is required")

// Config 组件运行所需的完整配置。
// 功能：承载远端触发、定时、状态存储、HTTP 监听与日志相关配置。
type Config struct {
	Job struct {
		Name string `yaml:"name"` // 任务名，默认 web-scraper
	} `yaml:"job"`

	Trigger struct {
		Endpoint string `yaml:"endpoint"` // 如 https://your-app.onrender.com/run-scraper
		APIKey   string `yaml:"apiKey"`   // 支持 ${ENV} 展开
		Header   string `yaml:"header"`   // 默认 X-API-Key
		// Timeout 请求超时；0 表示沿用 net/http 默认（不限时）。
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"trigger"`

	Schedule struct {
		Enabled      bool   `yaml:"enabled"`
		Hour         *int   `yaml:"hour"`         // 0–23，缺省 8
		IntervalDays int    `yaml:"intervalDays"` // ≥1
		Location     string `yaml:"location"`     // IANA 时区名，空为本地时区
	} `yaml:"schedule"`

	Store struct {
		Driver     string `yaml:"driver"`     // memory | file | mysql | postgres | sqlite | redis
		Path       string `yaml:"path"`       // file 驱动的文件路径
		DataSource string `yaml:"dataSource"` // 数据库 DSN 或 redis:// URL
	} `yaml:"store"`

	HTTP struct {
		Host string `yaml:"host"` // 监听地址，例如 0.0.0.0
		Port int    `yaml:"port"` // 监听端口，例如 8080
	} `yaml:"http"`

	Log struct {
		Level  string `yaml:"level"`  // debug | info | warn | error
		Format string `yaml:"format"` // text | json
	} `yaml:"log"`
}

// Default 返回带默认值的配置：每天 8 点、内存存储、监听 0.0.0.0:8080。
func Default() Config {
	var c Config
	c.applyDefaults()
	return c
}

// applyDefaults 只填充零值字段。
func (c *Config) applyDefaults() {
	if c.Job.Name == "" {
		c.Job.Name = "web-scraper"
	}
	if c.Trigger.Header == "" {
		c.Trigger.Header = "X-API-Key"
	}
	if c.Schedule.IntervalDays == 0 {
		c.Schedule.IntervalDays = 1
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Store.Driver == "file" && c.Store.Path == "" {
		c.Store.Path = "data/status.json"
	}
	if c.HTTP.Host == "" {
		c.HTTP.Host = "0.0.0.0"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate 校验必填项与取值范围。
func (c Config) Validate() error {
	if c.Trigger.Endpoint == "" {
		return ErrMissingEndpoint
	}
	if c.Trigger.Timeout < 0 {
		return fmt.Errorf("trigger.timeout must not be negative: %s", c.Trigger.Timeout)
	}
	if c.Schedule.Enabled {
		if _, err := c.DailySchedule(); err != nil {
			return err
		}
	}
	switch c.Store.Driver {
	case "memory", "file":
	case "mysql", "postgres", "sqlite", "redis":
		if c.Store.DataSource == "" {
			return fmt.Errorf("store.dataSource is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	return nil
}

// DailySchedule 把 schedule 段转换为调度定义。
func (c Config) DailySchedule() (scheduler.Daily, error) {
	d := scheduler.Daily{Hour: DefaultHour, IntervalDays: c.Schedule.IntervalDays}
	if c.Schedule.Hour != nil {
		d.Hour = *c.Schedule.Hour
	}
	if c.Schedule.Location != "" {
		loc, err := time.LoadLocation(c.Schedule.Location)
		if err != nil {
			return d, fmt.Errorf("schedule.location: %w", err)
		}
		d.Location = loc
	}
	return d, d.Validate()
}

// ListenAddr 返回 host:port。
func (c Config) ListenAddr() string { return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port) }
