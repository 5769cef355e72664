// Package config loads beanctl settings from the environment and .env files.
package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the typed configuration of the beanctl command.
type Config struct {
	// Env selects the context the demo registry prefers. "default" uses
	// the default context.
	Env string

	LogLevel  slog.Level
	LogFormat string // text | json

	// Addr is the listen address of the debug server.
	Addr string
}

// Load reads .env (if present) and populates a Config from environment variables.
// Variables already set in the environment win over the files.
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env is optional
	_ = godotenv.Load(files...)

	return &Config{
		Env:       env("BEANS_ENV", "default"),
		LogLevel:  envLevel("BEANS_LOG_LEVEL", slog.LevelInfo),
		LogFormat: strings.ToLower(env("BEANS_LOG_FORMAT", "text")),
		Addr:      env("BEANS_ADDR", ":8080"),
	}
}

// Logger builds the slog logger described by the config.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}

	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envLevel(key string, fallback slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return fallback
	}
	return level
}
