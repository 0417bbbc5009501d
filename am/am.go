// Package am loads and writes the attrgen configuration (attrgen.toml).
package am

import (
	"strings"
	"time"

	"github.com/teranos/attrgen/attribute"
)

// Config is the full attrgen configuration.
type Config struct {
	// Requires is a semver constraint the running binary must satisfy.
	Requires   string                 `mapstructure:"requires" toml:"requires,omitempty" yaml:"requires,omitempty"`
	Source     SourceConfig           `mapstructure:"source" toml:"source" yaml:"source"`
	Database   DatabaseConfig         `mapstructure:"database" toml:"database" yaml:"database"`
	Generation GenerationConfig       `mapstructure:"generation" toml:"generation" yaml:"generation"`
	Counters   map[string]int64       `mapstructure:"counters" toml:"counters,omitempty" yaml:"counters,omitempty"`
	Attributes []attribute.Definition `mapstructure:"attributes" toml:"attributes" yaml:"attributes"`
}

// SourceConfig configures where identities come from.
type SourceConfig struct {
	BaseURL      string `mapstructure:"base_url" toml:"base_url" yaml:"base_url"`
	ClientID     string `mapstructure:"client_id" toml:"client_id" yaml:"client_id"`
	ClientSecret string `mapstructure:"client_secret" toml:"client_secret" yaml:"-"`
	Search       string `mapstructure:"search" toml:"search" yaml:"search"` // identity search query

	// ConnectorInstanceID selects the source whose accounts this connector owns.
	ConnectorInstanceID string `mapstructure:"connector_instance_id" toml:"connector_instance_id" yaml:"connector_instance_id"`

	// OfflineFile, when set, replaces the HTTP catalog with a fixture file
	// (JSON, YAML or TOML). Existing accounts then come from the database.
	OfflineFile string `mapstructure:"offline_file" toml:"offline_file,omitempty" yaml:"offline_file,omitempty"`

	RequestsPerMinute int  `mapstructure:"requests_per_minute" toml:"requests_per_minute" yaml:"requests_per_minute"`
	TimeoutSeconds    int  `mapstructure:"timeout_seconds" toml:"timeout_seconds" yaml:"timeout_seconds"`
	AllowPrivate      bool `mapstructure:"allow_private" toml:"allow_private,omitempty" yaml:"allow_private,omitempty"`
}

// Offline reports whether identities come from a local file.
func (s SourceConfig) Offline() bool {
	return s.OfflineFile != ""
}

// Timeout returns the request timeout.
func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// DatabaseConfig configures the SQLite state database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path" yaml:"path"`
}

// GenerationConfig tunes attribute generation.
type GenerationConfig struct {
	MaxAttempts int  `mapstructure:"max_attempts" toml:"max_attempts" yaml:"max_attempts"` // uniqueness retries per value
	JSONLogs    bool `mapstructure:"json_logs" toml:"json_logs" yaml:"json_logs"`
}

// CounterSeed returns the configured counters keyed by attribute name.
//
// Configuration keys are case-folded on load, so each definition picks up
// the counter whose key matches its name case-insensitively. Keys that match
// no definition are kept as they are.
func (c *Config) CounterSeed() map[string]int64 {
	out := make(map[string]int64, len(c.Counters))
	byFold := make(map[string]string, len(c.Attributes))
	for _, def := range c.Attributes {
		byFold[strings.ToLower(def.Name)] = def.Name
	}
	for key, value := range c.Counters {
		if name, ok := byFold[strings.ToLower(key)]; ok {
			out[name] = value
			continue
		}
		out[key] = value
	}
	return out
}

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// ConfigFileName is the project configuration file looked up from the
// working directory upwards.
const ConfigFileName = "attrgen.toml"
