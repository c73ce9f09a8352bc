package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8090 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8090)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir should have a default")
	}
	if cfg.Redis.Addr != "" {
		t.Errorf("Redis.Addr = %q, want empty (in-process cache by default)", cfg.Redis.Addr)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be true by default")
	}
	if !cfg.RateLimit.Enabled {
		t.Error("RateLimit.Enabled should be true by default")
	}
	if cfg.RateLimit.RequestsPerMinute != 300 {
		t.Errorf("RateLimit.RequestsPerMinute = %d, want %d", cfg.RateLimit.RequestsPerMinute, 300)
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[api]
host = "0.0.0.0"
port = 9000

[storage]
data_dir = "/var/lib/fiambond"

[redis]
addr = "localhost:6379"

[rate_limit]
enabled = false
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.Host != "0.0.0.0" || cfg.API.Port != 9000 {
		t.Errorf("API = %+v, want 0.0.0.0:9000", cfg.API)
	}
	if cfg.Storage.DataDir != "/var/lib/fiambond" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
	if cfg.RateLimit.Enabled {
		t.Error("RateLimit.Enabled should be overridden to false")
	}
	// Sections absent from the file keep their defaults.
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should keep its default")
	}
	if cfg.Addr() != "0.0.0.0:9000" {
		t.Errorf("Addr() = %q, want %q", cfg.Addr(), "0.0.0.0:9000")
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("API.Port = %d, want default", cfg.API.Port)
	}
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[api\nhost ="), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig should fail on malformed TOML")
	}
}
