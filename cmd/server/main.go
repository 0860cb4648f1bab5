package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jobayadurrasid/Smart-Campus/config"
	"github.com/jobayadurrasid/Smart-Campus/internal/api/handler"
	"github.com/jobayadurrasid/Smart-Campus/internal/api/middleware"
	"github.com/jobayadurrasid/Smart-Campus/internal/api/router"
	"github.com/jobayadurrasid/Smart-Campus/internal/repository"
	"github.com/jobayadurrasid/Smart-Campus/internal/service"
	"github.com/jobayadurrasid/Smart-Campus/pkg/database"
	"github.com/jobayadurrasid/Smart-Campus/pkg/jwt"
	applogger "github.com/jobayadurrasid/Smart-Campus/pkg/logger"
	"github.com/jobayadurrasid/Smart-Campus/pkg/metrics"
	"github.com/jobayadurrasid/Smart-Campus/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("SMARTCAMPUS_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
	}

	// 4. Redis 可选：未启用或连接失败时黑名单退回进程内、限流退回本地令牌桶、查询直接读库
	// 黑名单的读（JWTAuth）与写（吊销接口）必须落在同一存储
	memBlacklist := middleware.NewMemoryBlacklist()
	var (
		rdb        *redis.Client
		cache      service.ScheduleCache
		rateStore  middleware.RateStore
		blacklist  middleware.TokenBlacklist = memBlacklist
		tokenStore service.TokenStore        = memBlacklist
		redisPing  handler.Pinger
	)
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，降级运行", zap.Error(err))
			rdb = nil
		}
	}
	if rdb != nil {
		cache, rateStore, blacklist, tokenStore, redisPing = rdb, rdb, rdb, rdb, rdb
	}

	// 5. 依赖注入: Repository → Service → Handler
	m := metrics.New()
	repo := repository.NewRepository(db, cfg.Database.TxRetries)
	svc := service.NewService(cfg, repo, cache, tokenStore, m, logger)

	if err := middleware.RegisterValidators(); err != nil {
		logger.Fatal("注册校验规则失败", zap.Error(err))
	}

	health := handler.NewHealthHandler(map[string]handler.Pinger{
		"database": handler.PingFunc(sqlDB.PingContext),
		"redis":    redisPing,
	}, logger)
	h := handler.NewHandler(svc, health)

	// 6. 初始化路由
	engine := router.Setup(cfg, h, router.Deps{
		Verifier:  jwt.NewVerifier(&cfg.Auth),
		Blacklist: blacklist,
		RateStore: rateStore,
		Metrics:   m,
	}, logger)

	// 7. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 8. 监听系统信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	sqlDB.Close()
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
