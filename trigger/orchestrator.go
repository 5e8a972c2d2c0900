// Package trigger 协调状态存储与触发客户端，完成一次完整的运行：
// 写入 running → 调用远端一次 → 写入 succeeded/failed 与结束时间。
package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mengeric/scrape-trigger-go/client"
	"github.com/mengeric/scrape-trigger-go/logging"
	"github.com/mengeric/scrape-trigger-go/status"
)

// Orchestrator 状态记录的唯一写入者。
// 调用方需保证 Run 不被并发调用，内部不加锁。
type Orchestrator struct {
	opt    Options
	store  status.Store
	client client.TriggerClient
	now    func() time.Time
}

// New 创建 Orchestrator。
// 功能：按照 With... 可选项组合；未传存储时使用内存存储，未传客户端时使用默认 HTTP 客户端。
func New(opts ...Option) *Orchestrator {
	cfg := &orchestratorConfig{}
	for _, fn := range opts {
		fn(cfg)
	}
	cfg.opt.withDefaults()
	o := &Orchestrator{opt: cfg.opt, store: cfg.store, client: cfg.client, now: cfg.now}
	if o.store == nil {
		o.store = status.NewMemoryStore()
	}
	if o.client == nil {
		o.client = client.NewHTTPTriggerClient(0, "")
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// JobName 返回任务名。
func (o *Orchestrator) JobName() string { return o.opt.JobName }

// Status 读取当前状态记录快照。
func (o *Orchestrator) Status(ctx context.Context) (status.JobStatus, error) {
	return o.store.Read(ctx)
}

// Run 执行一次运行。
// 流程：
// 1) 写入 state=running、startedAt，并清空上一轮结果；
// 2) 调用远端恰好一次，不重试；
// 3) 无论成功、失败还是 panic，都在 defer 中写入终态、结果与 endedAt。
// 返回：仅当状态记录本身写不进去时返回 error；远端失败只体现在状态记录里。
func (o *Orchestrator) Run(ctx context.Context) (err error) {
	log := logging.L().With("job", o.opt.JobName, "run_id", uuid.NewString())

	started := o.now()
	running := status.Patch{State: status.Ptr(status.StateRunning), StartedAt: &started, ClearOutcome: true}
	if err := o.store.Write(ctx, running); err != nil {
		log.Error(ctx, "record running failed", "err", err)
		return fmt.Errorf("record running: %w", err)
	}
	log.Info(ctx, "run started", "endpoint", o.opt.Endpoint)

	final, msg := status.StateFailed, "run aborted"
	defer func() {
		if r := recover(); r != nil {
			final, msg = status.StateFailed, fmt.Sprintf("unexpected fault: %v", r)
			log.Error(ctx, "run panicked", "panic", r)
		}
		ended := o.now()
		// 调用方 ctx 可能已取消，终态必须照常落盘
		werr := o.store.Write(context.WithoutCancel(ctx), status.Patch{State: &final, ResultMessage: &msg, EndedAt: &ended})
		if werr != nil {
			log.Error(ctx, "record outcome failed", "state", final, "err", werr)
			err = fmt.Errorf("record outcome: %w", werr)
			return
		}
		log.Info(ctx, "run finished", "state", final, "duration", ended.Sub(started), "result", msg)
	}()

	res := o.client.Invoke(ctx, o.opt.Endpoint, o.opt.Credential)
	final, msg = outcome(res)
	if final == status.StateFailed {
		log.Warn(ctx, "trigger failed", "kind", res.Kind.String(), "http_status", res.StatusCode, "msg", res.Message)
	}
	return nil
}

// outcome 把触发结果映射为终态与结果文案。
func outcome(r client.TriggerResult) (status.State, string) {
	switch r.Kind {
	case client.ResultSuccess:
		return status.StateSucceeded, r.Message
	case client.ResultApplicationFailure, client.ResultTransportFailure:
		return status.StateFailed, r.Message
	default:
		return status.StateFailed, fmt.Sprintf("unexpected trigger result %s", r.Kind)
	}
}
