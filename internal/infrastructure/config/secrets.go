package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// SecretField maps a configuration key to the environment variable naming a
// file that holds its value, the convention of Docker and Kubernetes secrets
type SecretField struct {
	ConfigPath  string
	Environment string
}

// DefaultSecretMappings lists the credentials that may be mounted as files
var DefaultSecretMappings = []SecretField{
	{ConfigPath: "database.password", Environment: "NUTRIPLAN_DATABASE_PASSWORD_FILE"},
	{ConfigPath: "redis.password", Environment: "NUTRIPLAN_REDIS_PASSWORD_FILE"},
	{ConfigPath: "archive.access_key_id", Environment: "NUTRIPLAN_ARCHIVE_ACCESS_KEY_ID_FILE"},
	{ConfigPath: "archive.secret_access_key", Environment: "NUTRIPLAN_ARCHIVE_SECRET_ACCESS_KEY_FILE"},
}

// loadSecretFiles overrides each mapped key with the trimmed contents of its
// secret file. Unset variables are skipped; unreadable files are errors.
func loadSecretFiles(v *viper.Viper, mappings []SecretField) error {
	for _, m := range mappings {
		path := os.Getenv(m.Environment)
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read secret for %s: %w", m.ConfigPath, err)
		}
		v.Set(m.ConfigPath, strings.TrimSpace(string(data)))
	}
	return nil
}
