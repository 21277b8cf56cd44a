package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DBConfig конфигурация подключения к БД
type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ServiceDB обертка для работы с сервисной базой данных:
// правила алиасов, закоммиченные записи, превью-сессии
type ServiceDB struct {
	conn *sql.DB
}

// NewServiceDB открывает сервисную базу и применяет миграции
func NewServiceDB(path string, cfg DBConfig) (*ServiceDB, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open service database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping service database: %w", err)
	}

	sdb := &ServiceDB{conn: conn}
	if err := sdb.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate service database: %w", err)
	}

	return sdb, nil
}

// GetDB возвращает низкоуровневое подключение
func (sdb *ServiceDB) GetDB() *sql.DB {
	return sdb.conn
}

// Close закрывает подключение
func (sdb *ServiceDB) Close() error {
	return sdb.conn.Close()
}

// migrate создает таблицы, если их еще нет
func (sdb *ServiceDB) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS metric_alias_rules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			canonical_value TEXT NOT NULL,
			alias_pattern TEXT NOT NULL,
			match_type TEXT NOT NULL DEFAULT 'exact',
			case_sensitive INTEGER NOT NULL DEFAULT 0,
			priority INTEGER NOT NULL DEFAULT 0,
			client_scope TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS industry_alias_rules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			canonical_value TEXT NOT NULL,
			alias_pattern TEXT NOT NULL,
			match_type TEXT NOT NULL DEFAULT 'exact',
			case_sensitive INTEGER NOT NULL DEFAULT 0,
			priority INTEGER NOT NULL DEFAULT 0,
			client_scope TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS behavior_records (
			id TEXT PRIMARY KEY,
			client TEXT NOT NULL,
			month TEXT NOT NULL,
			year INTEGER NOT NULL,
			source_sheet TEXT NOT NULL DEFAULT '',
			source_row_number INTEGER NOT NULL DEFAULT 0,
			organization TEXT NOT NULL,
			program TEXT NOT NULL,
			behavior TEXT NOT NULL DEFAULT '',
			sub_behavior TEXT NOT NULL DEFAULT '',
			supervisor TEXT NOT NULL DEFAULT '',
			coaching_count REAL,
			effectiveness REAL,
			canonical_org TEXT NOT NULL DEFAULT '',
			canonical_industry TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (client, organization, program, behavior, sub_behavior, month, year)
		)`,
		`CREATE TABLE IF NOT EXISTS metric_records (
			id TEXT PRIMARY KEY,
			client TEXT NOT NULL,
			month TEXT NOT NULL,
			year INTEGER NOT NULL,
			source_sheet TEXT NOT NULL DEFAULT '',
			source_row_number INTEGER NOT NULL DEFAULT 0,
			organization TEXT NOT NULL,
			program TEXT NOT NULL,
			metric TEXT NOT NULL,
			actual REAL,
			goal REAL,
			percent_to_goal REAL,
			canonical_org TEXT NOT NULL DEFAULT '',
			canonical_metric TEXT NOT NULL DEFAULT '',
			canonical_industry TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (client, organization, program, metric, month, year)
		)`,
		`CREATE TABLE IF NOT EXISTS preview_sessions (
			id TEXT PRIMARY KEY,
			client TEXT NOT NULL,
			payload TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_metric_rules_scope ON metric_alias_rules (client_scope)`,
		`CREATE INDEX IF NOT EXISTS idx_industry_rules_scope ON industry_alias_rules (client_scope)`,
		`CREATE INDEX IF NOT EXISTS idx_previews_expires ON preview_sessions (expires_at)`,
	}

	for _, stmt := range statements {
		if _, err := sdb.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
