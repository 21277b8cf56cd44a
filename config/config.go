package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config конфигурация сервера загрузки и нормализации
type Config struct {
	// Сервер
	Port string `json:"port"`

	// База данных
	ServiceDatabasePath string `json:"service_database_path"`
	MaxOpenConns        int    `json:"max_open_conns"`
	MaxIdleConns        int    `json:"max_idle_conns"`
	ConnMaxLifetime     time.Duration `json:"conn_max_lifetime"`

	// Загрузки
	MaxUploadSizeMB int           `json:"max_upload_size_mb"`
	PreviewTTL      time.Duration `json:"preview_ttl"`
	RateLimitRPS    float64       `json:"rate_limit_rps"`
	RateLimitBurst  int           `json:"rate_limit_burst"`

	// Парсинг
	// Фильтр еще не закрытых месяцев: строка отбрасывается, если конец ее
	// месяца моложе девяти суток. По умолчанию выключен.
	FilterRecentMonths bool `json:"filter_recent_months"`

	// Логирование
	LogLevel string `json:"log_level"`
}

// DefaultConfig значения по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Port:                "8080",
		ServiceDatabasePath: "data/service.db",
		MaxOpenConns:        10,
		MaxIdleConns:        5,
		ConnMaxLifetime:     30 * time.Minute,
		MaxUploadSizeMB:     25,
		PreviewTTL:          30 * time.Minute,
		RateLimitRPS:        5,
		RateLimitBurst:      10,
		FilterRecentMonths:  false,
		LogLevel:            "info",
	}
}

// LoadConfig загружает конфигурацию: дефолты, затем JSON-файл (если указан
// через CONFIG_PATH или существует config.json), затем переменные окружения
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides применяет переменные окружения поверх файла
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("SERVICE_DATABASE_PATH"); v != "" {
		cfg.ServiceDatabasePath = v
	}
	if v := os.Getenv("MAX_UPLOAD_SIZE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxUploadSizeMB = n
		}
	}
	if v := os.Getenv("PREVIEW_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PreviewTTL = d
		}
	}
	if v := os.Getenv("FILTER_RECENT_MONTHS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.FilterRecentMonths = b
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.ServiceDatabasePath == "" {
		return fmt.Errorf("service_database_path must not be empty")
	}
	if c.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("max_upload_size_mb must be positive")
	}
	if c.PreviewTTL <= 0 {
		return fmt.Errorf("preview_ttl must be positive")
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("rate_limit_rps must be positive")
	}
	return nil
}
