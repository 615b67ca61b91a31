package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations 将 schema 迁移到最新版本（server 进程启动时调用，worker 只连接不迁移）。
// dirty 状态说明上一次迁移中途失败，需要人工介入，拒绝继续启动。
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("加载迁移文件失败: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("初始化迁移实例失败: %w", err)
	}

	before, dirty, err := m.Version()
	fresh := errors.Is(err, migrate.ErrNilVersion)
	if err != nil && !fresh {
		return fmt.Errorf("读取迁移版本失败: %w", err)
	}
	if dirty {
		return fmt.Errorf("数据库迁移处于 dirty 状态（版本 %d），需人工修复后重启", before)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("数据库 schema 已是最新", zap.Uint("version", before))
			return nil
		}
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	after, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("读取迁移版本失败: %w", err)
	}
	if fresh {
		logger.Info("已初始化薪资库 schema", zap.Uint("version", after))
	} else {
		logger.Info("数据库迁移完成",
			zap.Uint("from", before),
			zap.Uint("to", after))
	}

	return nil
}
