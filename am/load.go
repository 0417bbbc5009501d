package am

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/teranos/attrgen/errors"
)

// EnvPrefix prefixes every environment override, e.g. ATTRGEN_DATABASE_PATH.
const EnvPrefix = "ATTRGEN"

var (
	loadMu        sync.Mutex
	globalConfig  *Config
	viperInstance *viper.Viper

	// ConfigSources records, per flattened key, the file that last set it.
	ConfigSources = map[string]SourceInfo{}
)

// Load reads the configuration from system, user and project files plus
// the environment. The result is cached until Reset.
func Load() (*Config, error) {
	loadMu.Lock()
	defer loadMu.Unlock()

	if globalConfig != nil {
		return globalConfig, nil
	}

	cfg, err := LoadWithViper(initViper())
	if err != nil {
		return nil, err
	}
	globalConfig = cfg
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	loadMu.Lock()
	defer loadMu.Unlock()
	return initViper()
}

// LoadWithViper unmarshals configuration from a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from one file, with defaults and
// environment overrides but without the system/user/project search.
func LoadFromFile(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}
	if _, err := mergeCounters(v, configPath); err != nil {
		return nil, err
	}

	cfg, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", configPath)
	}
	return cfg, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	loadMu.Lock()
	defer loadMu.Unlock()
	globalConfig = nil
	viperInstance = nil
	ConfigSources = map[string]SourceInfo{}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindSensitiveEnvVars(v)
	SetDefaults(v)
	return v
}

// initViper builds the merged Viper instance. Callers hold loadMu.
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := newViper()
	mergeConfigFiles(v)

	// Report the highest-precedence file as the one in use.
	if used := lastConfigPath(); used != "" {
		v.SetConfigFile(used)
	}

	viperInstance = v
	return v
}

// FindProjectConfig walks up from the working directory looking for
// attrgen.toml. It returns "" when none is found.
func FindProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// configLayers lists config files lowest precedence first.
func configLayers() []SourceInfo {
	layers := []SourceInfo{
		{Source: SourceSystem, Path: filepath.Join("/etc/attrgen", ConfigFileName)},
	}
	if home, err := os.UserHomeDir(); err == nil {
		layers = append(layers, SourceInfo{Source: SourceUser, Path: filepath.Join(home, ".attrgen", ConfigFileName)})
	}
	if project := FindProjectConfig(); project != "" {
		layers = append(layers, SourceInfo{Source: SourceProject, Path: project})
	}
	return layers
}

// mergeConfigFiles merges configuration files in precedence order
// system < user < project. Environment variables win over all of them.
func mergeConfigFiles(v *viper.Viper) {
	for _, layer := range configLayers() {
		if _, err := os.Stat(layer.Path); err != nil {
			continue
		}

		layerViper := viper.New()
		layerViper.SetConfigFile(layer.Path)
		layerViper.SetConfigType("toml")
		if err := layerViper.ReadInConfig(); err != nil {
			continue
		}

		// Config-level merge keeps environment variables above every file.
		if err := v.MergeConfigMap(layerViper.AllSettings()); err != nil {
			continue
		}
		for _, key := range layerViper.AllKeys() {
			ConfigSources[key] = layer
		}

		keys, err := mergeCounters(v, layer.Path)
		if err != nil {
			continue
		}
		for _, key := range keys {
			ConfigSources[key] = SourceInfo{Source: layer.Source, Path: CountersPath(layer.Path)}
		}
	}
}

// mergeCounters merges the counters file belonging to configPath, if there
// is one, and returns the keys it set.
func mergeCounters(v *viper.Viper, configPath string) ([]string, error) {
	path := CountersPath(configPath)
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}

	cv := viper.New()
	cv.SetConfigFile(path)
	cv.SetConfigType("toml")
	if err := cv.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read counters file %s", path)
	}
	counters := cv.GetStringMap("counters")
	if len(counters) == 0 {
		return nil, nil
	}
	if err := v.MergeConfigMap(map[string]any{"counters": counters}); err != nil {
		return nil, errors.Wrapf(err, "failed to merge %s", path)
	}

	keys := make([]string, 0, len(counters))
	for key := range counters {
		keys = append(keys, "counters."+key)
	}
	return keys, nil
}

func lastConfigPath() string {
	var last string
	seen := map[string]bool{}
	for _, info := range ConfigSources {
		seen[info.Path] = true
	}
	for _, layer := range configLayers() {
		if seen[layer.Path] {
			last = layer.Path
		}
	}
	return last
}
