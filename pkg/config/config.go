// Package config loads the server configuration from a YAML file with
// sensible defaults for every field.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListen          = ":8000"
	DefaultStore           = "file"
	DefaultNodeMaxAge      = 7 * 24 * time.Hour
	DefaultCleanupInterval = time.Hour
	DefaultPathTimeout     = 15 * time.Second
	DefaultLinkTimeout     = 15 * time.Second
	DefaultRequestTimeout  = 15 * time.Second
	DefaultQueueSize       = 16
)

// Config holds the ren-api server settings.
type Config struct {
	Listen  string `yaml:"listen"`
	DataDir string `yaml:"data_dir"`

	// Store backend: memory|file|sqlite|consul (consul requires the consul
	// build tag).
	Store      string `yaml:"store"`
	SQLitePath string `yaml:"sqlite_path"`
	ConsulAddr string `yaml:"consul_addr"`

	// AuthToken is the bootstrap bearer token; empty disables auth.
	AuthToken string `yaml:"auth_token"`
	// EnableUserAuth turns on the MySQL-backed JWT login flow.
	EnableUserAuth bool `yaml:"enable_user_auth"`

	NodeMaxAge      time.Duration `yaml:"node_max_age"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	PathTimeout    time.Duration `yaml:"path_timeout"`
	LinkTimeout    time.Duration `yaml:"link_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	MessageQueueSize int `yaml:"message_queue_size"`
}

// Load reads and parses a YAML config file. A missing file yields the
// defaults.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyDefaults(&cfg)
			return cfg, nil
		}
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	ApplyDefaults(&cfg)
	return cfg, nil
}

// Save writes a YAML config file to disk.
func Save(path string, cfg Config) error {
	ApplyDefaults(&cfg)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate performs minimal validation for required fields.
func Validate(cfg Config) error {
	if cfg.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	switch cfg.Store {
	case "memory", "file", "sqlite", "consul":
	default:
		return fmt.Errorf("unsupported store type: %s", cfg.Store)
	}
	if cfg.NodeMaxAge <= 0 {
		return fmt.Errorf("node_max_age must be positive")
	}
	return nil
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}
	if cfg.Store == "" {
		cfg.Store = DefaultStore
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(cfg.DataDir, "state.db")
	}
	if cfg.NodeMaxAge == 0 {
		cfg.NodeMaxAge = DefaultNodeMaxAge
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.PathTimeout == 0 {
		cfg.PathTimeout = DefaultPathTimeout
	}
	if cfg.LinkTimeout == 0 {
		cfg.LinkTimeout = DefaultLinkTimeout
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.MessageQueueSize == 0 {
		cfg.MessageQueueSize = DefaultQueueSize
	}
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".ren_browser")
	}
	return ".ren_browser"
}
