package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8099", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 1500.0, cfg.Billing.DefaultRent)
	assert.Equal(t, time.Minute, cfg.Scheduler.Interval)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("PG_SERVER_PORT", ":9000")
	t.Setenv("PG_DATABASE_DSN", "file:test.db")
	t.Setenv("PG_BILLING_DEFAULT_RENT", "1800")
	t.Setenv("PG_SCHEDULER_ENABLED", "false")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Port)
	assert.Equal(t, "file:test.db", cfg.Database.DSN)
	assert.Equal(t, 1800.0, cfg.Billing.DefaultRent)
	assert.False(t, cfg.Scheduler.Enabled)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: ":7000"
billing:
  default_rent: 2500
  timezone: UTC
scheduler:
  interval: 5m
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Port)
	assert.Equal(t, 2500.0, cfg.Billing.DefaultRent)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, time.UTC, cfg.Location())

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"dsn", func(c *Config) { c.Database.DSN = "" }},
		{"jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"default rent", func(c *Config) { c.Billing.DefaultRent = 0 }},
		{"half payment keys", func(c *Config) { c.Payment.KeyID = "rzp_test" }},
		{"timezone", func(c *Config) { c.Billing.Timezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
