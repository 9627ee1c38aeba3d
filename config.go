package client

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the file-based configuration source. Durations are expressed
// in whole units so the file stays YAML-portable.
type Config struct {
	BaseURL            string            `yaml:"base_url"`
	TimeoutSeconds     int               `yaml:"timeout_seconds"`
	MaxAttempts        int               `yaml:"max_attempts"`
	RetryWaitMillis    int               `yaml:"retry_wait_ms"`
	RetryMaxWaitMillis int               `yaml:"retry_max_wait_ms"`
	Headers            map[string]string `yaml:"headers"`
	Endpoints          map[string]string `yaml:"endpoints"`
}

// LoadConfig reads configuration from a YAML file. Environment variables
// referenced as ${VAR} in the file are expanded before parsing.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = 30
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryWaitMillis == 0 {
		cfg.RetryWaitMillis = 500
	}
	if cfg.RetryMaxWaitMillis == 0 {
		cfg.RetryMaxWaitMillis = 3000
	}

	return &cfg, nil
}

// ClientOptions converts the file configuration into [Option] values for
// [New]. The base URL is passed to [New] directly.
func (c *Config) ClientOptions() []Option {
	opts := []Option{
		WithTimeout(time.Duration(c.TimeoutSeconds) * time.Second),
		WithMaxAttempts(c.MaxAttempts),
		WithRetryWaitTime(time.Duration(c.RetryWaitMillis) * time.Millisecond),
		WithRetryMaxWaitTime(time.Duration(c.RetryMaxWaitMillis) * time.Millisecond),
	}

	for header, value := range c.Headers {
		opts = append(opts, WithRequestHeader(header, value))
	}

	for name, path := range c.Endpoints {
		opts = append(opts, WithEndpointPath(name, path))
	}

	return opts
}
