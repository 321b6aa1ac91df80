package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 2.0, cfg.Optimizer.MaxServings)
	assert.Equal(t, 1.2, cfg.Optimizer.CalorieOvershoot)
	assert.Equal(t, 5*time.Second, cfg.Optimizer.SolveTimeout)
	assert.Equal(t, 70.0, cfg.Optimizer.DefaultTargets["protein"])
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
optimizer:
  max_servings: 3
`)
	t.Setenv("NUTRIPLAN_OPTIMIZER_SOLVE_TIMEOUT", "250ms")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3.0, cfg.Optimizer.MaxServings)
	assert.Equal(t, 250*time.Millisecond, cfg.Optimizer.SolveTimeout)
}

func TestLoad_SecretFiles(t *testing.T) {
	secret := filepath.Join(t.TempDir(), "db-password")
	require.NoError(t, os.WriteFile(secret, []byte("s3cret\n"), 0o600))
	t.Setenv("NUTRIPLAN_DATABASE_PASSWORD_FILE", secret)

	cfg, err := Load(writeConfig(t, "database:\n  password: from-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Database.Password)
}

func TestLoad_MissingSecretFile(t *testing.T) {
	t.Setenv("NUTRIPLAN_REDIS_PASSWORD_FILE", filepath.Join(t.TempDir(), "absent"))

	_, err := Load(writeConfig(t, "{}\n"))
	assert.ErrorContains(t, err, "redis.password")
}

func TestLoad_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"driver", "database:\n  driver: mysql\n", "database.driver"},
		{"cache", "cache:\n  driver: memcached\n", "cache.driver"},
		{"servings", "optimizer:\n  max_servings: 0\n", "max_servings"},
		{"overshoot", "optimizer:\n  calorie_overshoot: 0.5\n", "calorie_overshoot"},
		{"archive", "archive:\n  enabled: true\n", "archive.bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, Username: "u", Password: "p", Database: "plans", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=plans sslmode=disable", c.GetDSN())
	assert.Contains(t, c.HostDSN("replica-1"), "host=replica-1 ")
}
