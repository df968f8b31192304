// Package store provides PostgreSQL-backed persistence for plugin instances,
// lifecycle events, source registrations, and update history, grounded on
// the teacher's internal/db package: a thin *sql.DB wrapper with a
// NewDatabaseForTesting escape hatch for sqlmock-driven tests, and an
// idempotent CREATE TABLE IF NOT EXISTS migration set run at startup.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Config holds the connection parameters for the orchestrator's database.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Store wraps the plugin persistence layer's database handle.
type Store struct {
	db *sql.DB
}

// New opens a connection pool and verifies it with a ping.
func New(cfg Config) (*Store, error) {
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// NewForTesting wraps an existing *sql.DB (typically a sqlmock connection).
// Only for tests; production code must go through New.
func NewForTesting(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is reachable, for the /health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB exposes the underlying handle for components that need raw access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates every table the orchestrator needs if it does not exist yet.
func (s *Store) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS plugins (
			plugin_key VARCHAR(255) PRIMARY KEY,
			manifest_id VARCHAR(255) NOT NULL,
			manifest JSONB NOT NULL,
			previous_manifest JSONB,
			status VARCHAR(50) NOT NULL,
			container_handle VARCHAR(255),
			container_name VARCHAR(255) NOT NULL,
			allocated_host_port INT NOT NULL,
			effective_config JSONB DEFAULT '{}',
			effective_env JSONB DEFAULT '{}',
			installed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			started_at TIMESTAMP,
			stopped_at TIMESTAMP,
			last_probe_at TIMESTAMP,
			health_state VARCHAR(50) NOT NULL DEFAULT 'unknown',
			last_error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_plugins_manifest_id ON plugins(manifest_id)`,
		`CREATE INDEX IF NOT EXISTS idx_plugins_status ON plugins(status)`,

		`CREATE TABLE IF NOT EXISTS plugin_events (
			id BIGSERIAL PRIMARY KEY,
			plugin_key VARCHAR(255) NOT NULL,
			kind VARCHAR(100) NOT NULL,
			payload JSONB DEFAULT '{}',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_plugin_events_plugin_key ON plugin_events(plugin_key)`,
		`CREATE INDEX IF NOT EXISTS idx_plugin_events_created_at ON plugin_events(created_at)`,

		`CREATE TABLE IF NOT EXISTS plugin_sources (
			source_id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			url TEXT NOT NULL,
			kind VARCHAR(50) NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT true,
			priority INT NOT NULL DEFAULT 0,
			is_default BOOLEAN NOT NULL DEFAULT false,
			last_fetched_at TIMESTAMP,
			last_error TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS plugin_updates (
			id BIGSERIAL PRIMARY KEY,
			plugin_key VARCHAR(255) NOT NULL,
			from_version VARCHAR(100),
			to_version VARCHAR(100) NOT NULL,
			action VARCHAR(50) NOT NULL,
			actor VARCHAR(255),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_plugin_updates_plugin_key ON plugin_updates(plugin_key)`,

		`CREATE TABLE IF NOT EXISTS catalog_entries (
			source_id VARCHAR(255) NOT NULL,
			manifest_id VARCHAR(255) NOT NULL,
			manifest JSONB NOT NULL,
			downloads INT DEFAULT 0,
			rating DOUBLE PRECISION DEFAULT 0,
			verified BOOLEAN DEFAULT false,
			featured BOOLEAN DEFAULT false,
			published_at TIMESTAMP,
			updated_at TIMESTAMP,
			PRIMARY KEY (source_id, manifest_id)
		)`,
	}

	for _, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
