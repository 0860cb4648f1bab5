package main

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jobayadurrasid/Smart-Campus/config"
	"github.com/jobayadurrasid/Smart-Campus/internal/repository"
	"github.com/jobayadurrasid/Smart-Campus/internal/service"
	"github.com/jobayadurrasid/Smart-Campus/pkg/database"
	applogger "github.com/jobayadurrasid/Smart-Campus/pkg/logger"
	"github.com/jobayadurrasid/Smart-Campus/pkg/metrics"
	"github.com/jobayadurrasid/Smart-Campus/pkg/redis"
)

// app 命令行共用的运行时依赖
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	sqlDB  *sql.DB
	rdb    *redis.Client // 未启用或不可用时为 nil
}

func openApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, db: db, sqlDB: sqlDB}
	if cfg.Redis.Enabled {
		rdb, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 不可用，班组缓存将等待 TTL 过期", zap.Error(err))
		} else {
			a.rdb = rdb
		}
	}
	return a, nil
}

// services 组装业务层，与服务端共用同一份班组缓存
func (a *app) services() *service.Service {
	repo := repository.NewRepository(a.db, a.cfg.Database.TxRetries)
	var (
		cache  service.ScheduleCache
		tokens service.TokenStore
	)
	if a.rdb != nil {
		cache, tokens = a.rdb, a.rdb
	}
	return service.NewService(a.cfg, repo, cache, tokens, metrics.New(), a.logger)
}

func (a *app) Close() {
	a.sqlDB.Close()
	if a.rdb != nil {
		a.rdb.Close()
	}
	_ = a.logger.Sync()
}
