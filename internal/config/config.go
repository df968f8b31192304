// Package config loads the orchestrator's process configuration from the
// environment, following the cmd/main.go getEnv/getEnvInt convention: one
// immutable struct built at startup, no package-level config globals.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

// Config is the full set of environment-derived settings for one process.
type Config struct {
	Port string
	Host string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	ContainerDaemonHost string // unix socket path or tcp host:port

	GatewayAdminURL string

	ContainerNamePrefix string
	VolumeNamePrefix    string
	ManagedNetworkName  string

	PortRangeStart int
	PortRangeEnd   int

	DefaultRegistryPath string

	LogLevel string

	CacheHost     string
	CachePort     string
	CachePassword string

	RelationalHost string
	RelationalPort string

	VectorHost string
	VectorPort string
}

// Load reads the environment, falling back to a default for every unset
// variable, and rejects an invalid host-port range.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		Host:                getEnv("HOST", "0.0.0.0"),
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBPort:              getEnv("DB_PORT", "5432"),
		DBUser:              getEnv("DB_USER", "orchestrator"),
		DBPassword:          getEnv("DB_PASSWORD", ""),
		DBName:              getEnv("DB_NAME", "orchestrator"),
		DBSSLMode:           getEnv("DB_SSL_MODE", "disable"),
		ContainerDaemonHost: getEnv("CONTAINER_DAEMON_HOST", "unix:///var/run/docker.sock"),
		GatewayAdminURL:     getEnv("GATEWAY_ADMIN_URL", "http://localhost:8001"),
		ContainerNamePrefix: getEnv("CONTAINER_NAME_PREFIX", "plugin-"),
		VolumeNamePrefix:    getEnv("VOLUME_NAME_PREFIX", "plugin-vol-"),
		ManagedNetworkName:  getEnv("MANAGED_NETWORK_NAME", "plugin-net"),
		PortRangeStart:      getEnvInt("PORT_RANGE_START", 20000),
		PortRangeEnd:        getEnvInt("PORT_RANGE_END", 21000),
		DefaultRegistryPath: getEnv("DEFAULT_REGISTRY_PATH", "./registry-seed.json"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		CacheHost:           getEnv("CACHE_HOST", "localhost"),
		CachePort:           getEnv("CACHE_PORT", "6379"),
		CachePassword:       getEnv("CACHE_PASSWORD", ""),
		RelationalHost:      getEnv("PLATFORM_RELATIONAL_HOST", "localhost"),
		RelationalPort:      getEnv("PLATFORM_RELATIONAL_PORT", "5432"),
		VectorHost:          getEnv("PLATFORM_VECTOR_HOST", "localhost"),
		VectorPort:          getEnv("PLATFORM_VECTOR_PORT", "6333"),
	}

	if cfg.PortRangeStart <= 0 || cfg.PortRangeEnd <= 0 || cfg.PortRangeStart > cfg.PortRangeEnd {
		return nil, fmt.Errorf("invalid port range [%d,%d]", cfg.PortRangeStart, cfg.PortRangeEnd)
	}

	return cfg, nil
}

// MustLoad loads config or terminates the process, mirroring cmd/main.go's
// log.Fatalf-on-missing-secret behavior for unrecoverable startup errors.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}
