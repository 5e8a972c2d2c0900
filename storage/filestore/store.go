package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mengeric/scrape-trigger-go/status"
)

// Store 把状态记录保存在本地 JSON 文件中。
// 写入先落临时文件再 rename，读者不会看到写了一半的记录。
type Store struct {
	path string
	mu   sync.Mutex
}

// New 创建文件存储；目录不存在时在首次写入时创建。
func New(path string) *Store { return &Store{path: path} }

// Read 实现 status.Store.Read；文件不存在或为空时返回 Idle。
func (s *Store) Read(ctx context.Context) (status.JobStatus, error) {
	if err := ctx.Err(); err != nil {
		return status.JobStatus{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Write 实现 status.Store.Write。
func (s *Store) Write(ctx context.Context, p status.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.loadLocked()
	if err != nil {
		return err
	}
	return s.saveLocked(status.Apply(cur, p))
}

func (s *Store) loadLocked() (status.JobStatus, error) {
	if s.path == "" {
		return status.JobStatus{}, errors.New("store path is required")
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return status.Idle(), nil
		}
		return status.JobStatus{}, err
	}
	if len(data) == 0 {
		return status.Idle(), nil
	}
	var rec status.JobStatus
	if err := json.Unmarshal(data, &rec); err != nil {
		return status.JobStatus{}, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if rec.State == "" {
		rec.State = status.StateIdle
	}
	if !rec.State.Valid() {
		return status.JobStatus{}, fmt.Errorf("%w: %q in %s", status.ErrInvalidState, rec.State, s.path)
	}
	return rec, nil
}

func (s *Store) saveLocked(rec status.JobStatus) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-status-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
