// Package postgres provides PostgreSQL database connection and management
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/alchemorsel/nutriplan/internal/infrastructure/config"
	gormrepo "github.com/alchemorsel/nutriplan/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/persistence/migrations"
)

const pingTimeout = 10 * time.Second

// ConnectionManager owns the primary connection pool and any read replicas
type ConnectionManager struct {
	config  config.DatabaseConfig
	logger  *zap.Logger
	db      *gorm.DB
	writeDB *sql.DB
	monitor *gormrepo.QueryMonitor
}

// NewConnectionManager opens the primary database, registers read replicas
// and installs query monitoring when monitor is non-nil
func NewConnectionManager(ctx context.Context, cfg config.DatabaseConfig, monitor *gormrepo.QueryMonitor, log *zap.Logger) (*ConnectionManager, error) {
	cm := &ConnectionManager{
		config:  cfg,
		logger:  log.Named("postgres"),
		monitor: monitor,
	}

	if err := cm.initializePrimaryConnection(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize primary connection: %w", err)
	}

	if err := cm.initializeReadReplicas(); err != nil {
		cm.logger.Warn("Failed to initialize read replicas", zap.Error(err))
	}

	if monitor != nil {
		if err := monitor.Install(cm.db); err != nil {
			cm.logger.Warn("Failed to install query monitoring", zap.Error(err))
		}
	}

	cm.logger.Info("Database connection manager initialized",
		zap.String("host", cfg.Host),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Int("read_replicas", len(cfg.ReadReplicas)),
	)
	return cm, nil
}

func (cm *ConnectionManager) initializePrimaryConnection(ctx context.Context) error {
	db, err := gorm.Open(postgres.Open(cm.config.GetDSN()), &gorm.Config{
		Logger:                 gormrepo.NewLogger(cm.logger, cm.config.LogLevel, cm.config.SlowQueryThreshold),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cm.config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cm.config.MaxOpenConns)
	}
	if cm.config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cm.config.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(cm.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cm.config.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	cm.db = db
	cm.writeDB = sqlDB
	return nil
}

// initializeReadReplicas routes catalog reads to the configured replica hosts
func (cm *ConnectionManager) initializeReadReplicas() error {
	if len(cm.config.ReadReplicas) == 0 {
		return nil
	}

	replicas := make([]gorm.Dialector, len(cm.config.ReadReplicas))
	for i, host := range cm.config.ReadReplicas {
		replicas[i] = postgres.Open(cm.config.HostDSN(host))
	}

	resolver := dbresolver.Register(dbresolver.Config{
		Replicas: replicas,
		Policy:   dbresolver.RandomPolicy{},
	})
	if cm.config.MaxOpenConns > 0 {
		resolver = resolver.SetMaxOpenConns(cm.config.MaxOpenConns)
	}
	if cm.config.MaxIdleConns > 0 {
		resolver = resolver.SetMaxIdleConns(cm.config.MaxIdleConns)
	}
	resolver = resolver.SetConnMaxLifetime(cm.config.ConnMaxLifetime)

	if err := cm.db.Use(resolver); err != nil {
		return fmt.Errorf("failed to register read replicas: %w", err)
	}
	return nil
}

// Migrate applies the embedded schema migrations to the primary
func (cm *ConnectionManager) Migrate() error {
	migrator, err := migrations.New(cm.writeDB, cm.config.Database, cm.logger)
	if err != nil {
		return err
	}
	// closing the migrator would close the shared pool
	return migrator.Up()
}

// DB returns the gorm handle
func (cm *ConnectionManager) DB() *gorm.DB {
	return cm.db
}

// SQLDB returns the primary connection pool
func (cm *ConnectionManager) SQLDB() *sql.DB {
	return cm.writeDB
}

// QueryMonitor returns the installed query monitor, or nil
func (cm *ConnectionManager) QueryMonitor() *gormrepo.QueryMonitor {
	return cm.monitor
}

// HealthCheck pings the primary database
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if err := cm.writeDB.PingContext(ctx); err != nil {
		return fmt.Errorf("primary database ping failed: %w", err)
	}
	return nil
}

// Close closes the primary pool
func (cm *ConnectionManager) Close() error {
	if cm.writeDB == nil {
		return nil
	}
	if err := cm.writeDB.Close(); err != nil {
		cm.logger.Error("Failed to close primary database", zap.Error(err))
		return err
	}
	return nil
}
