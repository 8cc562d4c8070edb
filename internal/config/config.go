// Package config loads service configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the full service configuration.
type Config struct {
	DBPath string `yaml:"db_path"`

	// Listen address for the management API.
	APIAddr string `yaml:"api_addr"`

	Engine EngineConfig `yaml:"engine"`

	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig describes how to reach the reverse-proxy engine.
type EngineConfig struct {
	// Base URL of the engine's admin API, e.g. http://127.0.0.1:2019.
	AdminURL string `yaml:"admin_url"`

	// Path to the engine binary, used for hash-password invocations.
	// Empty means the local bcrypt fallback is used.
	Binary string `yaml:"binary"`
}

// LoggingConfig mirrors logging.Config for file-based configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		DBPath:  "proxydeck.db",
		APIAddr: "127.0.0.1:8081",
		Engine: EngineConfig{
			AdminURL: "http://127.0.0.1:2019",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from path (if non-empty), then applies
// environment variable overrides. Precedence: env > file > defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PROXYDECK_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("PROXYDECK_API_ADDR"); v != "" {
		cfg.APIAddr = v
	}
	if v := os.Getenv("PROXYDECK_ENGINE_ADMIN_URL"); v != "" {
		cfg.Engine.AdminURL = v
	}
	if v := os.Getenv("PROXYDECK_ENGINE_BINARY"); v != "" {
		cfg.Engine.Binary = v
	}
	if v := os.Getenv("PROXYDECK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PROXYDECK_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.Engine.AdminURL == "" {
		return fmt.Errorf("engine.admin_url must not be empty")
	}
	return nil
}
