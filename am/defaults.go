package am

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/teranos/attrgen/attribute"
)

// Default values
const (
	DefaultDatabasePath      = "attrgen.db"
	DefaultSearch            = "*"
	DefaultRequestsPerMinute = 100
	DefaultTimeoutSeconds    = 30
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("source.search", DefaultSearch)
	v.SetDefault("source.requests_per_minute", DefaultRequestsPerMinute)
	v.SetDefault("source.timeout_seconds", DefaultTimeoutSeconds)

	v.SetDefault("generation.max_attempts", attribute.DefaultMaxAttempts)
	v.SetDefault("generation.json_logs", false)
}

// BindSensitiveEnvVars binds credentials to explicit environment variables
// so they never need to live in a config file.
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("source.client_id", "ATTRGEN_CLIENT_ID")
	v.BindEnv("source.client_secret", "ATTRGEN_CLIENT_SECRET")
	v.BindEnv("source.base_url", "ATTRGEN_BASE_URL")
	v.BindEnv("database.path", "ATTRGEN_DATABASE_PATH")
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return DefaultDatabasePath
	}
	return c.Database.Path
}

// GetMaxAttempts returns the uniqueness retry bound.
func (c *Config) GetMaxAttempts() int {
	if c.Generation.MaxAttempts <= 0 {
		return attribute.DefaultMaxAttempts
	}
	return c.Generation.MaxAttempts
}

// String returns a short description of the config. Secrets are omitted.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Source: %s, Database: %s, Attributes: %d, Counters: %d}",
		c.sourceLabel(), c.GetDatabasePath(), len(c.Attributes), len(c.Counters))
}

func (c *Config) sourceLabel() string {
	if c.Source.Offline() {
		return "file:" + c.Source.OfflineFile
	}
	return c.Source.BaseURL
}
