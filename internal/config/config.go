package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the syndex service configuration.
type Config struct {
	HTTP        HTTPConfig               `yaml:"http"`
	Clusters    map[string]ClusterConfig `yaml:"clusters"`
	Database    DatabaseConfig           `yaml:"database"`
	Stream      StreamConfig             `yaml:"stream"`
	Sync        SyncConfig               `yaml:"sync"`
	Search      SearchConfig             `yaml:"search"`
	Translation TranslationConfig        `yaml:"translation"`
	Logging     LoggingConfig            `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds the admin HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// ClusterConfig holds one search cluster's connection settings.
// The map of clusters must contain an entry named "default".
type ClusterConfig struct {
	Addresses  []string `yaml:"addresses"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	APIKey     string   `yaml:"api_key"`
	MaxRetries int      `yaml:"max_retries"`
}

// DatabaseConfig holds the relational database settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// StreamConfig holds the change-event stream consumer settings.
type StreamConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	Stream   string   `yaml:"stream"`
	BlockMs  int      `yaml:"block_ms"`
	Count    int      `yaml:"count"`
}

// SyncConfig holds bulk synchronization settings.
type SyncConfig struct {
	QuerysetPagination int    `yaml:"queryset_pagination"` // 0 = disabled
	ChunkSize          int    `yaml:"chunk_size"`
	ChunkBytes         int    `yaml:"chunk_bytes"`
	Refresh            string `yaml:"refresh"`       // "", "true", "wait_for"
	ResultPolicy       string `yaml:"result_policy"` // default_only, aggregate
}

// SearchConfig holds query defaults.
type SearchConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
}

// TranslationConfig holds per-language index variant settings.
type TranslationConfig struct {
	Enabled         bool     `yaml:"enabled"`
	DefaultLanguage string   `yaml:"default_language"`
	Analysers       []string `yaml:"analysers"`
	IndexPrefix     string   `yaml:"index_prefix"`
	IndexSuffix     string   `yaml:"index_suffix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Stream.Stream == "" {
		c.Stream.Stream = "syndex:changes"
	}
	if c.Stream.BlockMs <= 0 {
		c.Stream.BlockMs = 5000
	}
	if c.Stream.Count <= 0 {
		c.Stream.Count = 100
	}
	if c.Sync.ChunkSize <= 0 {
		c.Sync.ChunkSize = 500
	}
	if c.Sync.ChunkBytes <= 0 {
		c.Sync.ChunkBytes = 100 * 1024 * 1024
	}
	if c.Sync.ResultPolicy == "" {
		c.Sync.ResultPolicy = "default_only"
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 10
	}
	if c.Translation.DefaultLanguage == "" {
		c.Translation.DefaultLanguage = "en"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Clusters) == 0 {
		return fmt.Errorf("clusters is required")
	}
	if _, ok := c.Clusters["default"]; !ok {
		return fmt.Errorf(`clusters must contain an entry named "default"`)
	}
	for name, cl := range c.Clusters {
		if len(cl.Addresses) == 0 {
			return fmt.Errorf("clusters.%s.addresses is required", name)
		}
	}
	switch c.Sync.ResultPolicy {
	case "default_only", "aggregate":
		// ok
	default:
		return fmt.Errorf(
			"sync.result_policy must be \"default_only\" or \"aggregate\", got %q",
			c.Sync.ResultPolicy,
		)
	}
	switch c.Sync.Refresh {
	case "", "true", "wait_for":
		// ok
	default:
		return fmt.Errorf("sync.refresh must be \"\", \"true\" or \"wait_for\", got %q", c.Sync.Refresh)
	}
	if c.Translation.Enabled && len(c.Translation.Analysers) == 0 {
		return fmt.Errorf("translation.analysers is required when translation is enabled")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
