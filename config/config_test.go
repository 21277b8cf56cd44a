package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoadConfig_Defaults без файла и окружения действуют дефолты
func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("PORT", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.FilterRecentMonths {
		t.Error("FilterRecentMonths must default to false")
	}
	if cfg.PreviewTTL != 30*time.Minute {
		t.Errorf("PreviewTTL = %v, want 30m", cfg.PreviewTTL)
	}
}

// TestLoadConfig_FileAndEnv окружение перекрывает файл, файл перекрывает дефолты
func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	fileCfg := map[string]any{
		"port":                 "9000",
		"max_upload_size_mb":   50,
		"filter_recent_months": true,
	}
	data, err := json.Marshal(fileCfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, env must override file", cfg.Port)
	}
	if cfg.MaxUploadSizeMB != 50 {
		t.Errorf("MaxUploadSizeMB = %d, want 50 from file", cfg.MaxUploadSizeMB)
	}
	if !cfg.FilterRecentMonths {
		t.Error("FilterRecentMonths must come from file")
	}
}

// TestConfigValidate отказ на несогласованной конфигурации
func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Port = "" }},
		{"empty db path", func(c *Config) { c.ServiceDatabasePath = "" }},
		{"zero upload size", func(c *Config) { c.MaxUploadSizeMB = 0 }},
		{"zero preview ttl", func(c *Config) { c.PreviewTTL = 0 }},
		{"zero rate limit", func(c *Config) { c.RateLimitRPS = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
