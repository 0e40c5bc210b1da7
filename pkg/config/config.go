// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Reference     ReferenceConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host               string
	Port               int
	RateLimitPerSecond int
	RateLimitBurst     int
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds the PostgreSQL connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// ReferenceConfig points at the master reference dataset
type ReferenceConfig struct {
	MasterFilePath string
}

// ObservabilityConfig toggles metrics exposure
type ObservabilityConfig struct {
	MetricsEnabled bool
}

// ProfilingConfig toggles the pprof server
type ProfilingConfig struct {
	Enabled bool
	Port    int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "0.0.0.0"),
			Port:               getEnvInt("SERVER_PORT", 8080),
			RateLimitPerSecond: getEnvInt("RATE_LIMIT_PER_SECOND", 50),
			RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 100),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "commissable"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Reference: ReferenceConfig{
			MasterFilePath: getEnv("REFERENCE_MASTER_FILE", "data/telarus_reference.csv"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		},
		Profiling: ProfilingConfig{
			Enabled: getEnvBool("PPROF_ENABLED", false),
			Port:    getEnvInt("PPROF_PORT", 6060),
		},
	}

	if cfg.Database.Name == "" {
		return nil, fmt.Errorf("DB_NAME must not be empty")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
