package status

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// State 任务生命周期状态。
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// ErrInvalidState 写入了四种状态以外的值。
var ErrInvalidState = errors.New("invalid job state")

// Valid 判断状态是否为四种合法取值之一。
func (s State) Valid() bool {
	switch s {
	case StateIdle, StateRunning, StateSucceeded, StateFailed:
		return true
	}
	return false
}

// Terminal 成功或失败为终态（直到下一次运行）。
func (s State) Terminal() bool { return s == StateSucceeded || s == StateFailed }

// JobStatus 最近一次运行的状态记录，全局唯一，每次运行覆盖。
// 不变式：EndedAt 非空当且仅当 State 为终态；StartedAt 一旦写入不会被清除。
type JobStatus struct {
	State         State      `json:"state"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
	ResultMessage *string    `json:"resultMessage,omitempty"`
}

// Idle 返回尚无运行数据时的默认记录。
func Idle() JobStatus { return JobStatus{State: StateIdle} }

// Clone 深拷贝，保证读者拿到的是快照而非共享指针。
func (s JobStatus) Clone() JobStatus {
	out := JobStatus{State: s.State}
	if s.StartedAt != nil {
		t := *s.StartedAt
		out.StartedAt = &t
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		out.EndedAt = &t
	}
	if s.ResultMessage != nil {
		m := *s.ResultMessage
		out.ResultMessage = &m
	}
	return out
}

// Summary 生成面向人的状态说明（对应原先弹窗展示的四行）。
func (s JobStatus) Summary() string {
	if s.State == StateIdle && s.StartedAt == nil {
		return "no run recorded yet"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "state: %s\n", s.State)
	fmt.Fprintf(&b, "started: %s\n", formatTime(s.StartedAt))
	result := "-"
	if s.ResultMessage != nil {
		result = *s.ResultMessage
	}
	fmt.Fprintf(&b, "result: %s\n", result)
	if s.EndedAt == nil {
		b.WriteString("ended: not finished yet")
	} else {
		fmt.Fprintf(&b, "ended: %s", formatTime(s.EndedAt))
	}
	return b.String()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

// Patch 字段级 upsert：nil 字段保持原值。
// ClearOutcome 清空 EndedAt 与 ResultMessage，在进入 Running 时使用；
// 同一 Patch 中显式给出的 EndedAt/ResultMessage 优先于清空动作。
type Patch struct {
	State         *State
	StartedAt     *time.Time
	EndedAt       *time.Time
	ResultMessage *string
	ClearOutcome  bool
}

// Validate 校验 Patch 中的状态取值。
func (p Patch) Validate() error {
	if p.State != nil && !p.State.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidState, *p.State)
	}
	return nil
}

// Apply 将 Patch 合并到当前记录并返回新记录（不修改入参）。
// 所有存储后端都通过它完成合并，保证 upsert 语义一致。
func Apply(cur JobStatus, p Patch) JobStatus {
	out := cur.Clone()
	if out.State == "" {
		out.State = StateIdle
	}
	if p.ClearOutcome {
		out.EndedAt = nil
		out.ResultMessage = nil
	}
	if p.State != nil {
		out.State = *p.State
	}
	if p.StartedAt != nil {
		t := *p.StartedAt
		out.StartedAt = &t
	}
	if p.EndedAt != nil {
		t := *p.EndedAt
		out.EndedAt = &t
	}
	if p.ResultMessage != nil {
		m := *p.ResultMessage
		out.ResultMessage = &m
	}
	return out
}

// Store 状态记录的持久化接口（内存、文件、数据库、Redis 等后端实现）。
// 约定：Read 在尚无记录时返回 Idle() 且不报错；Write 以整条记录原子替换的方式落盘。
type Store interface {
	// Read 读取当前记录快照。
	Read(ctx context.Context) (JobStatus, error)
	// Write 按字段 upsert。
	Write(ctx context.Context, p Patch) error
}

// Ptr 取值地址，便于构造 Patch。
func Ptr[T any](v T) *T { return &v }
