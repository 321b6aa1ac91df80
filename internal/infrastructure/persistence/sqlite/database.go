// Package sqlite provides SQLite database setup and configuration
package sqlite

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/alchemorsel/nutriplan/internal/infrastructure/config"
	gormrepo "github.com/alchemorsel/nutriplan/internal/infrastructure/persistence/gorm"
)

const memoryPath = ":memory:"

// Open creates and configures the SQLite database. An empty path or
// ":memory:" opens a private in-memory database pinned to one connection.
func Open(cfg config.DatabaseConfig, monitor *gormrepo.QueryMonitor, logger *zap.Logger) (*gorm.DB, error) {
	dsn, inMemory := buildDSN(cfg.Path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormrepo.NewLogger(logger, cfg.LogLevel, cfg.SlowQueryThreshold),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if inMemory {
		// every new connection would see a fresh empty database
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if monitor != nil {
		if err := monitor.Install(db); err != nil {
			logger.Warn("Failed to install query monitoring", zap.Error(err))
		}
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(gormrepo.AllModels()...); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	logger.Info("SQLite database ready",
		zap.String("path", displayPath(cfg.Path)),
		zap.Bool("auto_migrate", cfg.AutoMigrate),
	)
	return db, nil
}

func buildDSN(path string) (string, bool) {
	if path == "" || path == memoryPath {
		return "file::memory:?_foreign_keys=on", true
	}
	if strings.Contains(path, "?") {
		return path, strings.Contains(path, "mode=memory")
	}
	return path + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", false
}

func displayPath(path string) string {
	if path == "" {
		return memoryPath
	}
	return path
}
