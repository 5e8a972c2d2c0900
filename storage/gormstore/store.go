package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mengeric/scrape-trigger-go/status"
)

// model 映射到数据库表，每个任务名一行。
type model struct {
	Job           string     `gorm:"primaryKey;size:128"`
	State         string     `gorm:"size:16;not null"`
	StartedAt     *time.Time
	EndedAt       *time.Time
	ResultMessage *string    `gorm:"type:text"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime"`
}

func (model) TableName() string { return "trigger_status" }

// Store 基于 GORM 的 status.Store 实现。
type Store struct {
	db  *gorm.DB
	job string
}

// New 创建 Store；调用方需先执行 Migrate。
func New(db *gorm.DB, job string) *Store { return &Store{db: db, job: job} }

// Migrate 建表或补齐字段。
func Migrate(db *gorm.DB) error { return db.AutoMigrate(&model{}) }

// Open 按驱动名打开数据库：mysql、postgres 或 sqlite。
func Open(driver, dsn string) (*gorm.DB, error) {
	var d gorm.Dialector
	switch driver {
	case "mysql":
		d = mysql.Open(dsn)
	case "postgres":
		d = postgres.Open(dsn)
	case "sqlite":
		d = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported gorm driver %q", driver)
	}
	return gorm.Open(d, &gorm.Config{})
}

// Read 实现 status.Store.Read。
func (s *Store) Read(ctx context.Context) (status.JobStatus, error) {
	m, err := s.load(s.db.WithContext(ctx))
	if err != nil {
		return status.JobStatus{}, err
	}
	if m == nil {
		return status.Idle(), nil
	}
	return fromModel(*m), nil
}

// Write 实现 status.Store.Write：在事务内读出、合并并整行保存。
func (s *Store) Write(ctx context.Context, p status.Patch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.load(tx)
		if err != nil {
			return err
		}
		cur := status.Idle()
		if m != nil {
			cur = fromModel(*m)
		}
		next := toModel(s.job, status.Apply(cur, p))
		return tx.Save(&next).Error
	})
}

func (s *Store) load(db *gorm.DB) (*model, error) {
	var m model
	err := db.Where("job = ?", s.job).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func toModel(job string, r status.JobStatus) model {
	return model{Job: job, State: string(r.State), StartedAt: r.StartedAt, EndedAt: r.EndedAt, ResultMessage: r.ResultMessage}
}

func fromModel(m model) status.JobStatus {
	return status.JobStatus{State: status.State(m.State), StartedAt: m.StartedAt, EndedAt: m.EndedAt, ResultMessage: m.ResultMessage}
}
