// Package config provides the configuration system for Skylark.
// Configuration is loaded from a YAML file through viper, with
// SKYLARK_-prefixed environment variables overriding file values.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/skylarkml/skylark/pkg/skyerrors"
)

// Config is the root configuration for a Skylark deployment.
type Config struct {
	// Name identifies the feature store instance
	Name string `yaml:"name" mapstructure:"name"`

	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Online  OnlineConfig  `yaml:"online" mapstructure:"online"`
	Offline OfflineConfig `yaml:"offline" mapstructure:"offline"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig controls the HTTP serving layer.
type ServerConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

// OnlineConfig controls the online (low-latency key-value) store.
type OnlineConfig struct {
	// Enabled switches the online store between redis and in-memory.
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	// RequestTimeout bounds every online store operation.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

// OfflineConfig controls the offline (partitioned columnar) store.
type OfflineConfig struct {
	// RootPath is the root directory of the partitioned parquet tree.
	RootPath string `yaml:"root_path" mapstructure:"root_path"`
	// Compression selects the parquet codec (snappy, zstd, gzip, none).
	Compression string `yaml:"compression" mapstructure:"compression"`
	// RequestTimeout bounds every offline store operation.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Development bool   `yaml:"development" mapstructure:"development"`
	Encoding    string `yaml:"encoding" mapstructure:"encoding"`
}

// Default returns a Config with production defaults applied.
func Default() *Config {
	return &Config{
		Name: "skylark",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Online: OnlineConfig{
			Enabled:        true,
			Addr:           "localhost:6379",
			DB:             0,
			RequestTimeout: 2 * time.Second,
		},
		Offline: OfflineConfig{
			RootPath:       "./offline_store",
			Compression:    "snappy",
			RequestTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Load reads configuration from the given YAML file, applying defaults and
// SKYLARK_* environment overrides. An empty path loads defaults only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SKYLARK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := Default()
	v.SetDefault("name", defaults.Name)
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("online.enabled", defaults.Online.Enabled)
	v.SetDefault("online.addr", defaults.Online.Addr)
	v.SetDefault("online.db", defaults.Online.DB)
	v.SetDefault("online.request_timeout", defaults.Online.RequestTimeout)
	v.SetDefault("offline.root_path", defaults.Offline.RootPath)
	v.SetDefault("offline.compression", defaults.Offline.Compression)
	v.SetDefault("offline.request_timeout", defaults.Offline.RequestTimeout)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.encoding", defaults.Logging.Encoding)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, skyerrors.Wrap(err, skyerrors.ErrorTypeConfig, "failed to read config file").
				WithDetail("path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, skyerrors.Wrap(err, skyerrors.ErrorTypeConfig, "failed to unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks invariants and fills zero values with defaults.
func (c *Config) Validate() error {
	if c.Name == "" {
		c.Name = "skylark"
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return skyerrors.Newf(skyerrors.ErrorTypeConfig, "invalid server port: %d", c.Server.Port)
	}
	if c.Online.Enabled && c.Online.Addr == "" {
		return skyerrors.New(skyerrors.ErrorTypeConfig, "online store enabled but no addr configured")
	}
	if c.Online.RequestTimeout <= 0 {
		c.Online.RequestTimeout = 2 * time.Second
	}
	if c.Offline.RootPath == "" {
		return skyerrors.New(skyerrors.ErrorTypeConfig, "offline root_path must not be empty")
	}
	if c.Offline.RequestTimeout <= 0 {
		c.Offline.RequestTimeout = 30 * time.Second
	}
	switch c.Offline.Compression {
	case "", "snappy", "zstd", "gzip", "none":
	default:
		return skyerrors.Newf(skyerrors.ErrorTypeConfig, "unsupported parquet compression: %s", c.Offline.Compression)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	return nil
}

// Save writes the configuration to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return skyerrors.Wrap(err, skyerrors.ErrorTypeConfig, "failed to marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return skyerrors.Wrap(err, skyerrors.ErrorTypeConfig, "failed to write config file").
			WithDetail("path", path)
	}
	return nil
}
