// Package config loads dkr CLI settings from the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/jason-riddle/dkr-go"
)

const appName = "dkr-go"

type Config struct {
	// API
	BaseURL string        `env:"DKR_API_BASE_URL" envDefault:"/api/v1"`
	Origin  string        `env:"DKR_API_ORIGIN" envDefault:"http://localhost:8000"`
	Timeout time.Duration `env:"DKR_API_TIMEOUT" envDefault:"60s"`

	// Credentials
	Token     string `env:"DKR_API_TOKEN"`
	TokenFile string `env:"DKR_TOKEN_FILE"`

	// Local state
	HistoryDB string `env:"DKR_HISTORY_DB"`

	// Logging
	LogLevel  string `env:"DKR_LOG_LEVEL" envDefault:"warn"`
	LogFormat string `env:"DKR_LOG_FORMAT" envDefault:"text"`
}

// Load reads .env from the working directory, if present, then the
// process environment. Variables already set win over .env entries.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.TokenFile == "" {
		path, err := dkr.DefaultTokenPath()
		if err != nil {
			return nil, err
		}
		cfg.TokenFile = path
	}
	if cfg.HistoryDB == "" {
		dir, err := DataDir()
		if err != nil {
			return nil, err
		}
		cfg.HistoryDB = filepath.Join(dir, "history.db")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("DKR_API_TIMEOUT must be positive, got %s", cfg.Timeout)
	}

	return cfg, nil
}

// Credentials prefers DKR_API_TOKEN and falls back to the token file.
func (c *Config) Credentials() dkr.CredentialProvider {
	return dkr.ChainCredentials(dkr.StaticToken(c.Token), dkr.TokenFile{Path: c.TokenFile})
}

// Logger builds the CLI logger writing to w.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid DKR_LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(c.LogFormat) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid DKR_LOG_FORMAT %q (want text or json)", c.LogFormat)
	}
}

// DataDir returns the data directory path, preferring XDG_DATA_HOME
func DataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}

	// Fall back to ~/.local/share
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	return filepath.Join(home, ".local", "share", appName), nil
}
