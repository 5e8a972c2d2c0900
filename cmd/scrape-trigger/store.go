package main

import (
	"context"
	"fmt"

	"github.com/mengeric/scrape-trigger-go/client"
	"github.com/mengeric/scrape-trigger-go/config"
	"github.com/mengeric/scrape-trigger-go/status"
	"github.com/mengeric/scrape-trigger-go/storage/filestore"
	"github.com/mengeric/scrape-trigger-go/storage/gormstore"
	"github.com/mengeric/scrape-trigger-go/storage/redisstore"
)

// openStore 按 store.driver 构造状态存储，返回的关闭函数总是非 nil。
func openStore(ctx context.Context, cfg config.Config) (status.Store, func(), error) {
	noop := func() {}
	switch cfg.Store.Driver {
	case "memory":
		return status.NewMemoryStore(), noop, nil
	case "file":
		return filestore.New(cfg.Store.Path), noop, nil
	case "mysql", "postgres", "sqlite":
		db, err := gormstore.Open(cfg.Store.Driver, cfg.Store.DataSource)
		if err != nil {
			return nil, noop, fmt.Errorf("open %s: %w", cfg.Store.Driver, err)
		}
		if err := gormstore.Migrate(db.WithContext(ctx)); err != nil {
			return nil, noop, fmt.Errorf("migrate: %w", err)
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				client.SafeLogErr(sqlDB.Close(), "close database")
			}
		}
		return gormstore.New(db, cfg.Job.Name), closeDB, nil
	case "redis":
		rdb, err := redisstore.Dial(cfg.Store.DataSource)
		if err != nil {
			return nil, noop, err
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			client.SafeLogErr(rdb.Close(), "close redis")
			return nil, noop, fmt.Errorf("ping redis: %w", err)
		}
		return redisstore.New(rdb, cfg.Job.Name), func() { client.SafeLogErr(rdb.Close(), "close redis") }, nil
	default:
		return nil, noop, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
