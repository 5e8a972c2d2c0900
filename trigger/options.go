package trigger

import (
	"time"

	"github.com/mengeric/scrape-trigger-go/client"
	"github.com/mengeric/scrape-trigger-go/status"
)

// DefaultJobName 未配置任务名时使用的名字。
const DefaultJobName = "web-scraper"

// Options 触发参数。
type Options struct {
	JobName    string // 任务名，用于日志与按任务分行的存储
	Endpoint   string // 远端启动接口，如 https://scraper.example.com/run-scraper
	Credential string // 静态 API 密钥
}

// withDefaults 填充默认值。
func (o *Options) withDefaults() {
	if o.JobName == "" {
		o.JobName = DefaultJobName
	}
}

// orchestratorConfig 构造期的可选项集合。
type orchestratorConfig struct {
	opt    Options
	store  status.Store
	client client.TriggerClient
	now    func() time.Time
}

// Option 可选项。
type Option func(*orchestratorConfig)

// WithJobName 设置任务名。
func WithJobName(name string) Option { return func(c *orchestratorConfig) { c.opt.JobName = name } }

// WithEndpoint 设置远端启动接口地址。
func WithEndpoint(u string) Option { return func(c *orchestratorConfig) { c.opt.Endpoint = u } }

// WithCredential 设置随请求发送的 API 密钥。
func WithCredential(key string) Option { return func(c *orchestratorConfig) { c.opt.Credential = key } }

// WithStore 注入状态存储；不传时使用内存存储。
func WithStore(s status.Store) Option { return func(c *orchestratorConfig) { c.store = s } }

// WithClient 注入触发客户端；不传时使用默认 HTTP 客户端。
func WithClient(tc client.TriggerClient) Option { return func(c *orchestratorConfig) { c.client = tc } }

// withClock 替换时间源，仅测试使用。
func withClock(now func() time.Time) Option { return func(c *orchestratorConfig) { c.now = now } }
