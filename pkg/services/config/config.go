package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultBackendBaseURL = "http://127.0.0.1:8000/api/v1"
	DefaultTimeoutMs      = 30000
	DefaultRetryBackoffMs = 200
	DefaultShutdownMs     = 10000
	envPrefix             = "AUTOFIXER"
)

type BackendConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutMs      int    `mapstructure:"timeout_ms"`
	MaxRetries     int    `mapstructure:"max_retries"`
	RetryBackoffMs int    `mapstructure:"retry_backoff_ms"`
}

func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

func (b BackendConfig) RetryBackoff() time.Duration {
	return time.Duration(b.RetryBackoffMs) * time.Millisecond
}

type ServerConfig struct {
	Host              string `mapstructure:"host"`
	Port              string `mapstructure:"port"`
	ShutdownTimeoutMs int    `mapstructure:"shutdown_timeout_ms"`
}

func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutMs) * time.Millisecond
}

type Config struct {
	Backend BackendConfig `mapstructure:"backend"`
	Server  ServerConfig  `mapstructure:"server"`
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("backend.base_url is required")
	}
	if c.Backend.TimeoutMs <= 0 {
		return fmt.Errorf("backend.timeout_ms must be positive, got %d", c.Backend.TimeoutMs)
	}
	if c.Backend.MaxRetries < 0 {
		return fmt.Errorf("backend.max_retries must not be negative, got %d", c.Backend.MaxRetries)
	}
	if c.Backend.RetryBackoffMs < 0 {
		return fmt.Errorf("backend.retry_backoff_ms must not be negative, got %d", c.Backend.RetryBackoffMs)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("backend.base_url", DefaultBackendBaseURL)
	v.SetDefault("backend.timeout_ms", DefaultTimeoutMs)
	v.SetDefault("backend.max_retries", 0)
	v.SetDefault("backend.retry_backoff_ms", DefaultRetryBackoffMs)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout_ms", DefaultShutdownMs)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads the optional config file at path and overlays AUTOFIXER_* environment
// variables on top of the built-in defaults.
func LoadConfig(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse autofixer config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
