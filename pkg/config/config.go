/*
Package config manages the TOML config of the educate client.
*/
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/educate/internal/utils"
	"github.com/charmbracelet/log"
)

// FileName is the config file looked up in the config dir.
const FileName = "educate.toml"

// Config holds the entire config structure
type Config struct {
	Backend BackendConfig `toml:"backend"`
	Dict    DictConfig    `toml:"dict"`
	Suggest SuggestConfig `toml:"suggest"`
	Storage StorageConfig `toml:"storage"`
	Summary SummaryConfig `toml:"summary"`
	Tasks   TasksConfig   `toml:"tasks"`
}

// BackendConfig points at the search server.
type BackendConfig struct {
	BaseURL           string  `toml:"base_url"`
	ResultsTimeoutSec int     `toml:"results_timeout_sec"`
	RateLimit         float64 `toml:"rate_limit"`
	Burst             int     `toml:"burst"`
}

// DictConfig holds dictionary options. Source is a URL or a file path; empty
// means no dictionary.
type DictConfig struct {
	Source string `toml:"source"`
}

// SuggestConfig holds completion options.
type SuggestConfig struct {
	MaxSuggestions int `toml:"max_suggestions"`
}

// StorageConfig selects the durable session storage.
type StorageConfig struct {
	Driver    string `toml:"driver"`
	Path      string `toml:"path"`
	RedisAddr string `toml:"redis_addr"`
	RedisDB   int    `toml:"redis_db"`
	KeyPrefix string `toml:"key_prefix"`
}

// SummaryConfig configures result summaries. Driver is "http", "ollama" or "openai".
type SummaryConfig struct {
	Enabled bool   `toml:"enabled"`
	Driver  string `toml:"driver"`
	URL     string `toml:"url"`
	Model   string `toml:"model"`
}

// TasksConfig sizes the background pool.
type TasksConfig struct {
	PoolSize int `toml:"pool_size"`
}

// ResultsTimeout returns the ranked-results ceiling as a duration.
func (b BackendConfig) ResultsTimeout() time.Duration {
	return time.Duration(b.ResultsTimeoutSec) * time.Second
}

// GetConfigDir returns the config directory.
func GetConfigDir() string {
	return utils.NewPathResolver().GetConfigDir()
}

// GetDefaultConfigPath returns the default path for educate.toml
func GetDefaultConfigPath() string {
	return utils.NewPathResolver().GetConfigPath(FileName)
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/educate/educate.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}

	defaultPath := GetDefaultConfigPath()
	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:           "http://localhost:9797",
			ResultsTimeoutSec: 300,
			RateLimit:         0,
			Burst:             1,
		},
		Dict: DictConfig{
			Source: "",
		},
		Suggest: SuggestConfig{
			MaxSuggestions: 10,
		},
		Storage: StorageConfig{
			Driver:    "badger",
			Path:      "session",
			RedisAddr: "localhost:6379",
			KeyPrefix: "educate:",
		},
		Summary: SummaryConfig{
			Enabled: false,
			Driver:  "ollama",
			URL:     "http://localhost:11434",
			Model:   "llama2-uncensored",
		},
		Tasks: TasksConfig{
			PoolSize: 4,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse keeps every well-typed value of a file that failed typed decoding
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "backend"); ok {
		extractBackendConfig(section, &config.Backend)
	}
	if section, ok := utils.ExtractSection(tempConfig, "dict"); ok {
		if val, ok := utils.ExtractString(section, "source"); ok {
			config.Dict.Source = val
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "suggest"); ok {
		if val, ok := utils.ExtractInt64(section, "max_suggestions"); ok {
			config.Suggest.MaxSuggestions = val
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "storage"); ok {
		extractStorageConfig(section, &config.Storage)
	}
	if section, ok := utils.ExtractSection(tempConfig, "summary"); ok {
		extractSummaryConfig(section, &config.Summary)
	}
	if section, ok := utils.ExtractSection(tempConfig, "tasks"); ok {
		if val, ok := utils.ExtractInt64(section, "pool_size"); ok {
			config.Tasks.PoolSize = val
		}
	}
	return config, nil
}

func extractBackendConfig(data map[string]any, backend *BackendConfig) {
	if val, ok := utils.ExtractString(data, "base_url"); ok {
		backend.BaseURL = val
	}
	if val, ok := utils.ExtractInt64(data, "results_timeout_sec"); ok {
		backend.ResultsTimeoutSec = val
	}
	if val, ok := utils.ExtractFloat(data, "rate_limit"); ok {
		backend.RateLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "burst"); ok {
		backend.Burst = val
	}
}

func extractStorageConfig(data map[string]any, storage *StorageConfig) {
	if val, ok := utils.ExtractString(data, "driver"); ok {
		storage.Driver = val
	}
	if val, ok := utils.ExtractString(data, "path"); ok {
		storage.Path = val
	}
	if val, ok := utils.ExtractString(data, "redis_addr"); ok {
		storage.RedisAddr = val
	}
	if val, ok := utils.ExtractInt64(data, "redis_db"); ok {
		storage.RedisDB = val
	}
	if val, ok := utils.ExtractString(data, "key_prefix"); ok {
		storage.KeyPrefix = val
	}
}

func extractSummaryConfig(data map[string]any, summary *SummaryConfig) {
	if val, ok := utils.ExtractBool(data, "enabled"); ok {
		summary.Enabled = val
	}
	if val, ok := utils.ExtractString(data, "driver"); ok {
		summary.Driver = val
	}
	if val, ok := utils.ExtractString(data, "url"); ok {
		summary.URL = val
	}
	if val, ok := utils.ExtractString(data, "model"); ok {
		summary.Model = val
	}
}

// RebuildConfigFile force creates a new educate.toml at the default path
func RebuildConfigFile() error {
	defaultPath := GetDefaultConfigPath()
	if err := utils.EnsureDir(filepath.Dir(defaultPath)); err != nil {
		return err
	}
	return utils.SaveTOMLFile(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		return GetDefaultConfigPath()
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// StoragePath resolves the badger directory under the data dir.
func (c *Config) StoragePath() string {
	return utils.NewPathResolver().GetDataDir(c.Storage.Path)
}
