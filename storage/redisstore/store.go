package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mengeric/scrape-trigger-go/status"
)

// KeyPrefix 状态记录在 Redis 中的键前缀，完整键为 KeyPrefix+任务名。
const KeyPrefix = "scrape-trigger:status:"

// maxTxAttempts 乐观事务冲突时的最大尝试次数。
const maxTxAttempts = 5

// Store 把状态记录以 JSON 字符串保存在单个 Redis 键中。
type Store struct {
	rdb *redis.Client
	key string
}

// New 创建 Redis 存储。
func New(rdb *redis.Client, job string) *Store { return &Store{rdb: rdb, key: KeyPrefix + job} }

// Dial 按 redis:// URL 创建客户端。
func Dial(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

// Read 实现 status.Store.Read。
func (s *Store) Read(ctx context.Context) (status.JobStatus, error) {
	return s.get(ctx, s.rdb)
}

// Write 实现 status.Store.Write：WATCH 键后读出、合并，再在 MULTI 中整体覆盖。
func (s *Store) Write(ctx context.Context, p status.Patch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	txf := func(tx *redis.Tx) error {
		cur, err := s.get(ctx, tx)
		if err != nil {
			return err
		}
		b, err := json.Marshal(status.Apply(cur, p))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, b, 0)
			return nil
		})
		return err
	}
	for i := 0; i < maxTxAttempts; i++ {
		err := s.rdb.Watch(ctx, txf, s.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("write %s: %w", s.key, redis.TxFailedErr)
}

func (s *Store) get(ctx context.Context, c redis.Cmdable) (status.JobStatus, error) {
	b, err := c.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return status.Idle(), nil
	}
	if err != nil {
		return status.JobStatus{}, err
	}
	var rec status.JobStatus
	if err := json.Unmarshal(b, &rec); err != nil {
		return status.JobStatus{}, fmt.Errorf("decode %s: %w", s.key, err)
	}
	if rec.State == "" {
		rec.State = status.StateIdle
	}
	return rec, nil
}
