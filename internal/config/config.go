package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config ergoquipt-data (HTTP API) configuration, loaded from environment.
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  DatabaseConfig
	JWT       struct {
		Secret string
		TTL    time.Duration
	}
	Log struct {
		Level  string
		Format string
	}
	Seed SeedConfig
}

// DatabaseConfig PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN renders the lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// SeedConfig bootstrap credentials for the default super admin account.
type SeedConfig struct {
	AdminUsername string
	AdminPassword string
	AdminEmail    string
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Default to true for local dev: if DB is unavailable, ergoquipt-data falls back
	// to the in-memory repositories so mobile clients can still be exercised.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "ergoquipt")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.JWT.Secret = getEnv("JWT_SECRET", "ergoquipt-dev-secret-change-in-production")
	cfg.JWT.TTL = time.Duration(parseInt(getEnv("JWT_TTL_MINUTES", "1440"), 1440)) * time.Minute

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Seed.AdminUsername = getEnv("DEFAULT_ADMIN_USERNAME", "admin")
	cfg.Seed.AdminPassword = getEnv("DEFAULT_ADMIN_PASSWORD", "admin123")
	cfg.Seed.AdminEmail = getEnv("DEFAULT_ADMIN_EMAIL", "admin@ergoquipt.com")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
