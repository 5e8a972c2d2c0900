package status

import (
	"context"
	"sync"
)

// MemoryStore 是包内置的线程安全内存存储，用于默认与测试场景。
// 进程退出即丢失，需要持久化请使用 storage 下的后端。
type MemoryStore struct {
	mu  sync.RWMutex
	rec *JobStatus
}

// NewMemoryStore 创建内存存储。
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// Read 返回记录快照；尚未写入过时返回 Idle。
func (s *MemoryStore) Read(ctx context.Context) (JobStatus, error) {
	if err := ctx.Err(); err != nil {
		return JobStatus{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rec == nil {
		return Idle(), nil
	}
	return s.rec.Clone(), nil
}

// Write 合并 Patch 后整体替换记录。
func (s *MemoryStore) Write(ctx context.Context, p Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := Idle()
	if s.rec != nil {
		cur = *s.rec
	}
	next := Apply(cur, p)
	s.rec = &next
	return nil
}
