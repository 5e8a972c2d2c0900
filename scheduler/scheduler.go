package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/mengeric/scrape-trigger-go/logging"
)

// ErrAlreadyStarted Start 被重复调用。
var ErrAlreadyStarted = errors.New("scheduler already started")

// Func 到点执行的函数；同一注册项的调用严格串行，不会重叠。
type Func func(ctx context.Context)

type entry struct {
	name    string
	sched   Schedule
	fn      Func
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// stop 取消并等待该项的协程退出（包括正在执行的 fn）。
func (e *entry) stop() {
	if !e.started {
		return
	}
	e.cancel()
	<-e.done
}

// Scheduler 按名字管理定时任务。
// 同名重复注册会先撤下旧项再装上新项，重复应用同一份配置结果不变。
type Scheduler struct {
	regMu   sync.Mutex // 串行化 Register/Remove
	mu      sync.Mutex
	entries map[string]*entry
	ctx     context.Context
	cancel  context.CancelFunc
	now     func() time.Time
}

// New 创建调度器。
func New() *Scheduler { return &Scheduler{entries: map[string]*entry{}, now: time.Now} }

// Register 安装名为 name 的定时任务；已存在同名项时先移除。
// 调度器已启动时新项立即生效。
func (s *Scheduler) Register(name string, sched Schedule, fn Func) error {
	if name == "" {
		return errors.New("schedule name is required")
	}
	if sched == nil || fn == nil {
		return errors.New("schedule and func are required")
	}
	if v, ok := sched.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	s.regMu.Lock()
	defer s.regMu.Unlock()

	if s.remove(name) {
		logging.L().Info(context.Background(), "replaced prior schedule registration", "name", name)
	}

	e := &entry{name: name, sched: sched, fn: fn}
	s.mu.Lock()
	s.entries[name] = e
	if s.ctx != nil {
		s.launchLocked(e)
	}
	s.mu.Unlock()
	return nil
}

// Remove 撤下名为 name 的定时任务，返回是否存在。
func (s *Scheduler) Remove(name string) bool {
	s.regMu.Lock()
	defer s.regMu.Unlock()
	return s.remove(name)
}

func (s *Scheduler) remove(name string) bool {
	s.mu.Lock()
	old, ok := s.entries[name]
	delete(s.entries, name)
	s.mu.Unlock()
	if ok {
		old.stop()
	}
	return ok
}

// Names 返回已注册的名字（有序）。
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for n := range s.entries {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// NextRun 返回名为 name 的任务下一次运行时间。
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	next := e.sched.Next(s.now())
	return next, !next.IsZero()
}

// Start 启动所有已注册项；生命周期受 ctx 控制。
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		return ErrAlreadyStarted
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	for _, e := range s.entries {
		s.launchLocked(e)
	}
	return nil
}

// Stop 停止全部协程并等待其退出；可重复调用。
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	list := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		list = append(list, e)
	}
	s.mu.Unlock()
	for _, e := range list {
		e.stop()
	}
}

func (s *Scheduler) launchLocked(e *entry) {
	ctx, cancel := context.WithCancel(s.ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.started = true
	go s.loop(ctx, e)
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer close(e.done)
	var last time.Time
	for {
		after := s.now()
		if after.Before(last) {
			after = last
		}
		next := e.sched.Next(after)
		if next.IsZero() {
			logging.L().Warn(ctx, "schedule has no further runs", "name", e.name)
			return
		}
		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			logging.L().Info(ctx, "scheduled run", "name", e.name, "due", next)
			e.fn(ctx)
			last = next
		}
	}
}
