package am

import (
	"os"
	"sort"
	"strings"

	"github.com/teranos/attrgen/errors"
)

// ConfigSource represents where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"      // /etc/attrgen/attrgen.toml
	SourceUser        ConfigSource = "user"        // ~/.attrgen/attrgen.toml
	SourceProject     ConfigSource = "project"     // attrgen.toml found upwards from cwd
	SourceEnvironment ConfigSource = "environment" // ATTRGEN_* env vars
)

// SourceInfo tracks where a configuration value originated
type SourceInfo struct {
	Source ConfigSource
	Path   string
}

// SettingInfo is one effective setting with its origin.
type SettingInfo struct {
	Key        string       `json:"key" yaml:"key"`
	Value      interface{}  `json:"value" yaml:"value"`
	Source     ConfigSource `json:"source" yaml:"source"`
	SourcePath string       `json:"source_path,omitempty" yaml:"source_path,omitempty"`
}

// ConfigIntrospection describes the active configuration.
type ConfigIntrospection struct {
	ConfigFile string        `json:"config_file" yaml:"config_file"`
	Settings   []SettingInfo `json:"settings" yaml:"settings"`
}

// sensitiveKeys are masked in introspection output.
var sensitiveKeys = map[string]bool{
	"source.client_secret": true,
}

// GetConfigIntrospection returns every effective setting with its source.
// Attribute definitions are reported as one entry.
func GetConfigIntrospection() (*ConfigIntrospection, error) {
	if _, err := Load(); err != nil {
		return nil, errors.Wrap(err, "failed to load config for introspection")
	}
	v := GetViper()

	out := &ConfigIntrospection{ConfigFile: v.ConfigFileUsed()}
	flattenSettings(v.AllSettings(), "", out)
	return out, nil
}

func flattenSettings(settings map[string]interface{}, prefix string, out *ConfigIntrospection) {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := settings[key]
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]interface{}); ok {
			flattenSettings(nested, fullKey, out)
			continue
		}

		info := SourceInfo{Source: SourceDefault, Path: "built-in default"}
		if si, ok := ConfigSources[fullKey]; ok {
			info = si
		}
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(fullKey, ".", "_"))
		if os.Getenv(envKey) != "" {
			info = SourceInfo{Source: SourceEnvironment, Path: envKey}
		}

		if sensitiveKeys[fullKey] && value != "" {
			value = "********"
		}

		out.Settings = append(out.Settings, SettingInfo{
			Key:        fullKey,
			Value:      value,
			Source:     info.Source,
			SourcePath: info.Path,
		})
	}
}
