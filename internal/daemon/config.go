// Package daemon wires configuration, storage, cache, and the HTTP API into
// a running FiamBond service.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration, loaded from a TOML file layered over
// DefaultConfig.
type Config struct {
	API       APIConfig       `toml:"api"`
	Storage   StorageConfig   `toml:"storage"`
	Redis     RedisConfig     `toml:"redis"`
	Metrics   MetricsConfig   `toml:"metrics"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type StorageConfig struct {
	// DataDir holds the sqlite database. Created on startup if missing.
	DataDir string `toml:"data_dir"`
}

type RedisConfig struct {
	// Addr is the redis host:port for the balance cache. Empty means an
	// in-process cache is used instead.
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

type RateLimitConfig struct {
	Enabled           bool `toml:"enabled"`
	RequestsPerMinute int  `toml:"requests_per_minute"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
		Storage: StorageConfig{
			DataDir: filepath.Join(home, ".fiambond"),
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 300,
		},
	}
}

// LoadConfig reads a TOML config file and merges it over the defaults. A
// missing file is not an error: defaults apply.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Addr returns the host:port the API listens on.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}
