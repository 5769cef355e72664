package config_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/junioryono/beans/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets the beanctl variables for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"BEANS_ENV", "BEANS_LOG_LEVEL", "BEANS_LOG_FORMAT", "BEANS_ADDR"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := config.Load("testdata/empty.env")

	assert.Equal(t, "default", cfg.Env)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, ":8080", cfg.Addr)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)

	cfg := config.Load("testdata/custom.env")

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("BEANS_ADDR", ":7000")
	t.Setenv("BEANS_LOG_LEVEL", "loud")

	cfg := config.Load("testdata/custom.env")

	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel, "invalid level falls back")
}

func TestConfig_Logger(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := &config.Config{LogLevel: slog.LevelDebug, LogFormat: "json"}

		cfg.Logger(&buf).Debug("hello", "bean", "clock")

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "hello", record["msg"])
		assert.Equal(t, "clock", record["bean"])
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := &config.Config{LogLevel: slog.LevelWarn, LogFormat: "text"}

		cfg.Logger(&buf).Info("dropped")
		assert.Empty(t, buf.String())
	})
}
