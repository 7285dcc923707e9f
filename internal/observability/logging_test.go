package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

func configFor(level string) config.LoggerConfig {
	return config.LoggerConfig{Level: level, Env: "development"}
}

func TestProductionLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(config.LoggerConfig{Level: "debug", Env: "production", File: path})
	require.NoError(t, err)

	logger.Info("hello file")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello file"`)
}

func TestDevelopmentLoggerSkipsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(config.LoggerConfig{Level: "info", Env: "development", File: path})
	require.NoError(t, err)
	logger.Info("stdout only")

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
