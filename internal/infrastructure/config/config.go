// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Optimizer  OptimizerConfig  `mapstructure:"optimizer"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	MaxBatchSize    int           `mapstructure:"max_batch_size"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver             string        `mapstructure:"driver"`
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Database           string        `mapstructure:"database"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	SSLMode            string        `mapstructure:"ssl_mode"`
	Path               string        `mapstructure:"path"`
	MaxOpenConns       int           `mapstructure:"max_open_conns"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel           string        `mapstructure:"log_level"`
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
	AutoMigrate        bool          `mapstructure:"auto_migrate"`
	ReadReplicas       []string      `mapstructure:"read_replicas"`
	SeedDemoData       bool          `mapstructure:"seed_demo_data"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Password        string        `mapstructure:"password"`
	Database        int           `mapstructure:"database"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PoolSize        int           `mapstructure:"pool_size"`
	EnableCluster   bool          `mapstructure:"enable_cluster"`
	ClusterNodes    []string      `mapstructure:"cluster_nodes"`
}

// CacheConfig selects where catalog snapshots are memoized.
type CacheConfig struct {
	Driver         string        `mapstructure:"driver"` // memory | redis | none
	SnapshotTTL    time.Duration `mapstructure:"snapshot_ttl"`
	LocalCacheSize int           `mapstructure:"local_cache_size"`
}

// KafkaConfig contains Kafka configuration for plan events
type KafkaConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Brokers      []string `mapstructure:"brokers"`
	Topic        string   `mapstructure:"topic"`
	ClientID     string   `mapstructure:"client_id"`
	RetryMax     int      `mapstructure:"retry_max"`
	RequiredAcks int      `mapstructure:"required_acks"`
}

// ArchiveConfig contains S3 plan archive configuration
type ArchiveConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
}

// MonitoringConfig contains monitoring configuration
type MonitoringConfig struct {
	EnableMetrics   bool    `mapstructure:"enable_metrics"`
	MetricsPath     string  `mapstructure:"metrics_path"`
	EnableTracing   bool    `mapstructure:"enable_tracing"`
	OTLPEndpoint    string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure    bool    `mapstructure:"otlp_insecure"`
	SamplingRate    float64 `mapstructure:"sampling_rate"`
	HealthCheckPath string  `mapstructure:"health_check_path"`
}

// RateLimitConfig limits how many solves a client may start
type RateLimitConfig struct {
	Enable          bool          `mapstructure:"enable"`
	RequestsPerMin  int           `mapstructure:"requests_per_min"`
	BurstSize       int           `mapstructure:"burst_size"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// OptimizerConfig contains the tunable optimizer constants
type OptimizerConfig struct {
	CalorieOvershoot           float64            `mapstructure:"calorie_overshoot"`
	SignificanceThreshold      float64            `mapstructure:"significance_threshold"`
	MinServings                float64            `mapstructure:"min_servings"`
	MaxServings                float64            `mapstructure:"max_servings"`
	QuantityPrecision          int                `mapstructure:"quantity_precision"`
	SolveTimeout               time.Duration      `mapstructure:"solve_timeout"`
	SolverTolerance            float64            `mapstructure:"solver_tolerance"`
	FallbackNutrients          int                `mapstructure:"fallback_nutrients"`
	FallbackRecipesPerNutrient int                `mapstructure:"fallback_recipes_per_nutrient"`
	BatchWorkers               int                `mapstructure:"batch_workers"`
	DefaultTargets             map[string]float64 `mapstructure:"default_targets"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/nutriplan")
	}

	// NUTRIPLAN_OPTIMIZER_SOLVE_TIMEOUT overrides optimizer.solve_timeout, and so on
	v.SetEnvPrefix("NUTRIPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := loadSecretFiles(v, DefaultSecretMappings); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Nutriplan")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.max_header_bytes", 1<<20) // 1MB
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.request_timeout", "20s")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.max_batch_size", 50)
	v.SetDefault("server.cors_origins", []string{})

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "nutriplan.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "nutriplan")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.slow_query_threshold", "100ms")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.read_replicas", []string{})
	v.SetDefault("database.seed_demo_data", false)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	// Cache defaults
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.snapshot_ttl", "10m")
	v.SetDefault("cache.local_cache_size", 64)

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "nutriplan.mealplan.generated")
	v.SetDefault("kafka.client_id", "nutriplan")
	v.SetDefault("kafka.retry_max", 5)
	v.SetDefault("kafka.required_acks", -1)

	// Archive defaults
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.prefix", "meal-plans/")

	// Monitoring defaults
	v.SetDefault("monitoring.enable_metrics", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.enable_tracing", false)
	v.SetDefault("monitoring.otlp_endpoint", "localhost:4318")
	v.SetDefault("monitoring.otlp_insecure", true)
	v.SetDefault("monitoring.sampling_rate", 0.1)
	v.SetDefault("monitoring.health_check_path", "/health")

	// Rate limit defaults
	v.SetDefault("rate_limit.enable", true)
	v.SetDefault("rate_limit.requests_per_min", 120)
	v.SetDefault("rate_limit.burst_size", 20)
	v.SetDefault("rate_limit.cleanup_interval", "1m")

	// Optimizer defaults
	v.SetDefault("optimizer.calorie_overshoot", 1.2)
	v.SetDefault("optimizer.significance_threshold", 0.05)
	v.SetDefault("optimizer.min_servings", 0.0)
	v.SetDefault("optimizer.max_servings", 2.0)
	v.SetDefault("optimizer.quantity_precision", 2)
	v.SetDefault("optimizer.solve_timeout", "5s")
	v.SetDefault("optimizer.solver_tolerance", 1e-10)
	v.SetDefault("optimizer.fallback_nutrients", 3)
	v.SetDefault("optimizer.fallback_recipes_per_nutrient", 2)
	v.SetDefault("optimizer.batch_workers", 4)
	v.SetDefault("optimizer.default_targets", map[string]float64{
		"protein":      70,
		"fat":          65,
		"carbohydrate": 300,
		"calories":     2000,
	})
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.Database == "" {
			return fmt.Errorf("database.database is required")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}

	switch c.Cache.Driver {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("cache.driver must be memory, redis or none, got %q", c.Cache.Driver)
	}

	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka.brokers and kafka.topic are required when kafka is enabled")
	}

	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required when the plan archive is enabled")
	}

	return c.Optimizer.Validate()
}

// Validate rejects inconsistent optimizer settings
func (o OptimizerConfig) Validate() error {
	if o.CalorieOvershoot < 1 {
		return fmt.Errorf("optimizer.calorie_overshoot must be at least 1, got %g", o.CalorieOvershoot)
	}
	if o.MinServings < 0 {
		return fmt.Errorf("optimizer.min_servings must not be negative")
	}
	if o.MaxServings <= o.MinServings {
		return fmt.Errorf("optimizer.max_servings (%g) must exceed optimizer.min_servings (%g)", o.MaxServings, o.MinServings)
	}
	if o.SignificanceThreshold < 0 || o.SignificanceThreshold >= o.MaxServings {
		return fmt.Errorf("optimizer.significance_threshold must be in [0, max_servings)")
	}
	if o.QuantityPrecision < 0 || o.QuantityPrecision > 6 {
		return fmt.Errorf("optimizer.quantity_precision must be between 0 and 6")
	}
	if o.SolveTimeout <= 0 {
		return fmt.Errorf("optimizer.solve_timeout must be positive")
	}
	if o.FallbackNutrients < 1 || o.FallbackRecipesPerNutrient < 1 {
		return fmt.Errorf("optimizer fallback counts must be positive")
	}
	if o.BatchWorkers < 1 {
		return fmt.Errorf("optimizer.batch_workers must be positive")
	}
	for name, v := range o.DefaultTargets {
		if v < 0 {
			return fmt.Errorf("optimizer.default_targets.%s must not be negative", name)
		}
	}
	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// GetDSN returns the postgres connection string for the primary host
func (c *DatabaseConfig) GetDSN() string {
	return c.HostDSN(c.Host)
}

// HostDSN returns the postgres connection string for host, sharing the
// primary's port, credentials and database name
func (c *DatabaseConfig) HostDSN(host string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host,
		c.Port,
		c.Username,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}
