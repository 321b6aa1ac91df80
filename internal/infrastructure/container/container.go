// Package container provides dependency injection using Uber FX
package container

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/alchemorsel/nutriplan/internal/application/catalog"
	appmealplan "github.com/alchemorsel/nutriplan/internal/application/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/shared"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/cache"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/config"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/events"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/http/apiserver"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/monitoring"
	gormrepo "github.com/alchemorsel/nutriplan/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/persistence/postgres"
	redisrepo "github.com/alchemorsel/nutriplan/internal/infrastructure/persistence/redis"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/persistence/sqlite"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/solver"
	"github.com/alchemorsel/nutriplan/internal/ports/inbound"
	"github.com/alchemorsel/nutriplan/internal/ports/outbound"
	"github.com/alchemorsel/nutriplan/pkg/healthcheck"
	"github.com/alchemorsel/nutriplan/pkg/logger"
)

// ConfigPath is the optional configuration file handed to config.Load
type ConfigPath string

// CoreModule wires everything a meal-plan computation needs: configuration,
// storage, caching, metrics, events and the application services
var CoreModule = fx.Options(
	ConfigModule,
	LoggerModule,
	DatabaseModule,
	CacheModule,
	RepositoryModule,
	MonitoringModule,
	EventModule,
	ServiceModule,
)

// Module is CoreModule plus the HTTP API and its lifecycle
var Module = fx.Options(
	CoreModule,
	HealthModule,
	HTTPModule,
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func(path ConfigPath) (*config.Config, error) {
		return config.Load(string(path))
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
		})
	},
)

// Database is the open catalog store
type Database struct {
	Gorm    *gorm.DB
	SQL     *sql.DB
	Monitor *gormrepo.QueryMonitor
	Driver  string
}

// DatabaseModule provides database connections
var DatabaseModule = fx.Provide(
	NewDatabase,
	func(db *Database) *gorm.DB { return db.Gorm },
)

// NewDatabase opens the configured driver. Postgres schemas come from the
// embedded migrations, SQLite schemas from AutoMigrate.
func NewDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*Database, error) {
	monitor := gormrepo.NewQueryMonitor(cfg.Database.SlowQueryThreshold, log)

	var db *gorm.DB
	switch cfg.Database.Driver {
	case "postgres":
		cm, err := postgres.NewConnectionManager(context.Background(), cfg.Database, monitor, log)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := cm.Migrate(); err != nil {
				_ = cm.Close()
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}
		db = cm.DB()
	default:
		var err error
		db, err = sqlite.Open(cfg.Database, monitor, log)
		if err != nil {
			return nil, fmt.Errorf("failed to setup SQLite database: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stats := monitor.Stats()
			log.Info("Closing database",
				zap.Int64("total_queries", stats.TotalQueries),
				zap.Int64("slow_queries", stats.SlowQueries),
			)
			return sqlDB.Close()
		},
	})

	return &Database{Gorm: db, SQL: sqlDB, Monitor: monitor, Driver: cfg.Database.Driver}, nil
}

// CacheBackend is the snapshot cache selected by cache.driver. Repository is
// nil for driver "none"; Redis is set only for driver "redis".
type CacheBackend struct {
	Repository outbound.CacheRepository
	Redis      *cache.RedisClient
}

// CacheModule provides caching
var CacheModule = fx.Provide(
	NewCacheBackend,
	func(b *CacheBackend) outbound.CacheRepository { return b.Repository },
)

// NewCacheBackend builds the configured cache tier and publishes its hit ratio
func NewCacheBackend(lc fx.Lifecycle, cfg *config.Config, metrics *monitoring.MetricsCollector, log *zap.Logger) (*CacheBackend, error) {
	switch cfg.Cache.Driver {
	case "none":
		log.Info("Catalog snapshot cache disabled")
		return &CacheBackend{}, nil

	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := cache.NewRedisClient(ctx, &cfg.Redis, log)
		if err != nil {
			return nil, err
		}
		svc := cache.NewCacheService(client, &cache.CacheConfig{
			DefaultTTL:     cfg.Cache.SnapshotTTL,
			LocalTTL:       time.Minute,
			LocalCacheSize: cfg.Cache.LocalCacheSize,
			KeyPrefix:      "nutriplan:",
		}, log)
		metrics.RegisterCacheHitRatio("redis", client.HitRatio)
		metrics.RegisterCacheHitRatio("service", func() float64 { return svc.GetStats().HitRatio() })
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error { return client.Close() },
		})
		return &CacheBackend{Repository: redisrepo.NewCacheRepository(svc, log), Redis: client}, nil

	default:
		repo := memory.NewCacheRepository(time.Minute)
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error { return repo.Close() },
		})
		log.Info("Using in-memory snapshot cache")
		return &CacheBackend{Repository: repo}, nil
	}
}

// RepositoryModule provides repository implementations
var RepositoryModule = fx.Provide(
	fx.Annotate(
		gormrepo.NewRecipeRepository,
		fx.As(new(outbound.RecipeRepository)),
	),
	func(recipes outbound.RecipeRepository) outbound.RecipeCatalog { return recipes },
	fx.Annotate(
		gormrepo.NewPlanRepository,
		fx.As(new(outbound.PlanRepository)),
	),
)

// MonitoringModule provides metrics and telemetry
var MonitoringModule = fx.Provide(
	func(db *Database, log *zap.Logger) *monitoring.MetricsCollector {
		metrics := monitoring.NewMetricsCollector(nil, log)
		metrics.RegisterDB(db.SQL, db.Driver)
		return metrics
	},
	func(lc fx.Lifecycle, cfg *config.Config, metrics *monitoring.MetricsCollector, log *zap.Logger) (*monitoring.OpenTelemetryProvider, error) {
		provider, err := monitoring.NewOpenTelemetryProvider(context.Background(), monitoring.NewOpenTelemetryConfig(cfg), metrics.Registry(), log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: provider.Shutdown})
		return provider, nil
	},
)

// EventModule provides event handling
var EventModule = fx.Provide(
	NewEventPublisher,
)

// NewEventPublisher subscribes the plan history recorder and, when enabled,
// the Kafka producer and the S3 archive to generated plans
func NewEventPublisher(lc fx.Lifecycle, cfg *config.Config, plans outbound.PlanRepository, log *zap.Logger) (outbound.EventPublisher, error) {
	publisher := events.NewPublisher(shared.NewEventDispatcher(), 5*time.Second, log)
	generated := mealplan.PlanGeneratedEvent{}.EventName()

	publisher.Subscribe(generated, events.NewPlanRecorder(plans, log).Handle)

	if cfg.Kafka.Enabled {
		producer, err := events.NewKafkaPublisher(&cfg.Kafka, log)
		if err != nil {
			return nil, err
		}
		publisher.Subscribe(generated, producer.Handle)
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error { return producer.Close() },
		})
	}

	if cfg.Archive.Enabled {
		archiver, err := events.NewS3Archiver(&cfg.Archive, log)
		if err != nil {
			return nil, err
		}
		publisher.Subscribe(generated, archiver.Handle)
	}

	return publisher, nil
}

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	func(cfg *config.Config) (appmealplan.Options, error) {
		return OptimizerOptions(cfg)
	},
	func(cfg *config.Config) outbound.LPSolver {
		return &solver.Simplex{Tolerance: cfg.Optimizer.SolverTolerance}
	},
	func(
		recipes outbound.RecipeCatalog,
		cacheRepo outbound.CacheRepository,
		lp outbound.LPSolver,
		publisher outbound.EventPublisher,
		metrics *monitoring.MetricsCollector,
		opts appmealplan.Options,
		log *zap.Logger,
	) inbound.MealPlanService {
		return appmealplan.NewService(recipes, cacheRepo, lp, publisher, metrics, opts, log)
	},
	fx.Annotate(
		catalog.NewService,
		fx.As(new(inbound.CatalogService)),
	),
	fx.Annotate(
		appmealplan.NewHistoryService,
		fx.As(new(inbound.PlanHistoryService)),
	),
)

// HealthModule provides the health checker with database, cache and catalog checks
var HealthModule = fx.Provide(
	func(cfg *config.Config, db *Database, backend *CacheBackend, recipes outbound.RecipeRepository, log *zap.Logger) *healthcheck.HealthCheck {
		health := healthcheck.New(cfg.App.Version, log)
		health.Register("database", healthcheck.NewDatabaseChecker(db.SQL))
		if backend.Redis != nil {
			health.Register("redis", healthcheck.NewRedisChecker(backend.Redis.Client()))
		}
		health.Register("catalog", NewCatalogChecker(recipes))
		return health
	},
)

// NewCatalogChecker reports degraded while the catalog is empty, since every
// optimization would fail
func NewCatalogChecker(recipes outbound.RecipeRepository) healthcheck.Checker {
	return healthcheck.NewCustomChecker("catalog", func(ctx context.Context) (healthcheck.Status, string, interface{}) {
		count, err := recipes.Count(ctx)
		if err != nil {
			return healthcheck.StatusUnhealthy, err.Error(), nil
		}
		metadata := map[string]interface{}{"recipes": count}
		if count == 0 {
			return healthcheck.StatusDegraded, "catalog is empty", metadata
		}
		return healthcheck.StatusHealthy, "", metadata
	})
}

// HTTPModule provides HTTP server and handlers
var HTTPModule = fx.Provide(
	func(
		mealPlans inbound.MealPlanService,
		catalogSvc inbound.CatalogService,
		history inbound.PlanHistoryService,
		cfg *config.Config,
		log *zap.Logger,
	) *handlers.APIHandlers {
		return handlers.NewAPIHandlers(mealPlans, catalogSvc, history, cfg.Server.MaxBatchSize, log)
	},
	func(
		cfg *config.Config,
		api *handlers.APIHandlers,
		health *healthcheck.HealthCheck,
		metrics *monitoring.MetricsCollector,
		telemetry *monitoring.OpenTelemetryProvider,
		log *zap.Logger,
	) *apiserver.Server {
		deps := apiserver.Dependencies{
			API:       api,
			Health:    health,
			Metrics:   metrics,
			Telemetry: telemetry,
		}
		if cfg.RateLimit.Enable {
			deps.Limiter = middleware.NewRateLimiter(cfg.RateLimit, log)
		}
		return apiserver.NewServer(cfg, deps, log)
	},
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// RegisterLifecycleHooks seeds the demo catalog when configured and runs the
// API server between start and stop
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	catalogSvc inbound.CatalogService,
	server *apiserver.Server,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting Nutriplan",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.String("database", cfg.Database.Driver),
				zap.String("cache", cfg.Cache.Driver),
			)

			if cfg.Database.SeedDemoData {
				seeded, err := catalogSvc.SeedDemo(ctx)
				if err != nil {
					return fmt.Errorf("failed to seed demo catalog: %w", err)
				}
				log.Info("Demo catalog checked", zap.Int("seeded", seeded))
			}

			go func() {
				if err := server.Start(); err != nil {
					log.Error("API server failed", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down Nutriplan")
			if err := server.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown API server", zap.Error(err))
			}
			_ = log.Sync()
			return nil
		},
	})
}
