package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_DefaultValues(t *testing.T) {
	os.Clearenv()

	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.True(t, cfg.DBEnabled)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "ergoquipt", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "admin", cfg.Seed.AdminUsername)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("DB_ENABLED", "false")
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_PORT", "5433")
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("JWT_TTL_MINUTES", "60")
	os.Setenv("LOG_LEVEL", "debug")
	defer os.Clearenv()

	cfg := Load()

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.False(t, cfg.DBEnabled)
	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "test-secret", cfg.JWT.Secret)
	assert.Equal(t, time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PORT", "not-a-number")
	defer os.Clearenv()

	cfg := Load()
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	c := DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "ergoquipt",
		Password: "secret",
		Database: "ergoquipt",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=db port=5432 user=ergoquipt password=secret dbname=ergoquipt sslmode=disable",
		c.GetDSN())
}
