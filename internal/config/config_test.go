package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "APP_PORT", "POSTGRES_DSN", "REDIS_ADDR", "AUTH_JWT_SECRET", "AUTH_ACCESS_TOKEN_TTL_MINUTES", "AUTH_BCRYPT_COST", "CORS_ORIGIN", "CACHE_STATS_TTL_SECONDS", "LOG_FILE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "0.0.0.0:5000", cfg.App.Addr())
	assert.Equal(t, "http://localhost:5173", cfg.App.CORSOrigin)
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 1440, cfg.Auth.AccessTokenTTLMinutes)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, 30*time.Second, cfg.Cache.StatsTTL())
	assert.Equal(t, "logs/app.log", cfg.Logger.File)
	assert.True(t, cfg.App.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "Staging")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("AUTH_BCRYPT_COST", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Env)
	assert.Equal(t, "9090", cfg.App.Port)
	assert.Zero(t, cfg.App.RequestTimeout())
	assert.False(t, cfg.Postgres.RunMigrations)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.False(t, cfg.App.IsDevelopment())
}

func TestProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("AUTH_JWT_SECRET", "s3cr3t")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.App.IsProduction())
}

func TestInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "two")
	_, err := Load()
	assert.Error(t, err)
}

func TestBootstrapAdmin(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("ADMIN_BOOTSTRAP_USERNAME", "")
	t.Setenv("ADMIN_BOOTSTRAP_EMAIL", "")
	t.Setenv("ADMIN_BOOTSTRAP_PASSWORD", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Auth.BootstrapAdmin.Enabled())

	t.Setenv("ADMIN_BOOTSTRAP_USERNAME", "root")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("ADMIN_BOOTSTRAP_PASSWORD", "changeme")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.Auth.BootstrapAdmin.Enabled())
	assert.Equal(t, "root@helpdesk.local", cfg.Auth.BootstrapAdmin.Email)

	t.Setenv("ADMIN_BOOTSTRAP_EMAIL", "ops@example.com")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", cfg.Auth.BootstrapAdmin.Email)
}
