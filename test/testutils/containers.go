package testutils

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/alchemorsel/nutriplan/internal/infrastructure/config"
)

// IntegrationEnv enables the container-backed tests.
const IntegrationEnv = "NUTRIPLAN_INTEGRATION"

// RequireDocker skips the test unless container tests were requested.
func RequireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	if os.Getenv(IntegrationEnv) == "" {
		t.Skipf("set %s=1 to run container tests", IntegrationEnv)
	}
}

// startContainer starts req and terminates it on cleanup. A provider that
// cannot reach Docker skips the test instead of failing it.
func startContainer(t *testing.T, req testcontainers.ContainerRequest) (container testcontainers.Container) {
	t.Helper()
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			t.Skipf("docker is not available: %v", r)
		}
	}()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "Failed to start %s container", req.Image)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = container.Terminate(ctx)
	})
	return container
}

// StartPostgres runs a throwaway postgres and returns a matching database config.
func StartPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	RequireDocker(t)

	cfg := config.DatabaseConfig{
		Driver:       "postgres",
		Database:     "nutriplan_test",
		Username:     "test_user",
		Password:     "test_password",
		SSLMode:      "disable",
		MaxOpenConns: 10,
		MaxIdleConns: 2,
		LogLevel:     "silent",
	}

	container := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       cfg.Database,
			"POSTGRES_USER":     cfg.Username,
			"POSTGRES_PASSWORD": cfg.Password,
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("5432/tcp"),
		),
		Tmpfs: map[string]string{
			"/var/lib/postgresql/data": "rw,noexec,nosuid,size=256m",
		},
	})

	ctx := context.Background()
	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg.Host = host
	cfg.Port = port.Int()
	return cfg
}

// StartRedis runs a throwaway redis and returns a matching redis config.
func StartRedis(t *testing.T) config.RedisConfig {
	t.Helper()
	RequireDocker(t)

	container := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	})

	ctx := context.Background()
	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	return config.RedisConfig{
		Host:         host,
		Port:         port.Int(),
		MaxRetries:   1,
		PoolSize:     4,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}
