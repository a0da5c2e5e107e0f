// Package config reads process configuration for the formflow binaries from
// the environment, optionally seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment variable names.
const (
	EnvAddr         = "FORMFLOW_ADDR"
	EnvFormsDir     = "FORMFLOW_FORMS_DIR"
	EnvDBPath       = "FORMFLOW_DB_PATH"
	EnvAPIBase      = "FORMFLOW_API_BASE"
	EnvPublicURL    = "FORMFLOW_PUBLIC_URL"
	EnvDebug        = "FORMFLOW_DEBUG"
	EnvSessionTTL   = "FORMFLOW_SESSION_TTL"
	EnvTheme        = "FORMFLOW_THEME"
	EnvThemeVariant = "FORMFLOW_THEME_VARIANT"
	EnvWatch        = "FORMFLOW_WATCH"
	EnvTemplatesDir = "FORMFLOW_TEMPLATES_DIR"
)

// Config is the runtime configuration of `formflow serve` and friends.
type Config struct {
	Addr     string
	FormsDir string
	DBPath   string
	// APIBase points the embed server at a remote collaborator API. Empty
	// means the in-process reference backend serves forms and submissions.
	APIBase   string
	PublicURL string
	Debug     bool
	// SessionTTL is the idle lifetime of an embed session.
	SessionTTL   time.Duration
	Theme        string
	ThemeVariant string
	Watch        bool
	// TemplatesDir holds vanilla template overrides, e.g.
	// templates/notice.tpl. Empty renders the bundled templates only.
	TemplatesDir string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Addr:       ":8080",
		FormsDir:   "forms",
		DBPath:     "data/formflow.db",
		SessionTTL: 30 * time.Minute,
		Watch:      true,
	}
}

// Load reads files into the process environment (a missing file is not an
// error; with no files ".env" is tried) and returns the resulting Config.
// Variables already set in the environment win over file values.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load env files: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, typically os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	get := func(key string) (string, bool) {
		value, ok := lookup(key)
		value = strings.TrimSpace(value)
		return value, ok && value != ""
	}

	if v, ok := get(EnvAddr); ok {
		cfg.Addr = v
	}
	if v, ok := get(EnvFormsDir); ok {
		cfg.FormsDir = v
	}
	if v, ok := get(EnvDBPath); ok {
		cfg.DBPath = v
	}
	if v, ok := get(EnvAPIBase); ok {
		cfg.APIBase = strings.TrimRight(v, "/")
	}
	if v, ok := get(EnvPublicURL); ok {
		cfg.PublicURL = strings.TrimRight(v, "/")
	}
	if v, ok := get(EnvTheme); ok {
		cfg.Theme = v
	}
	if v, ok := get(EnvThemeVariant); ok {
		cfg.ThemeVariant = v
	}
	if v, ok := get(EnvTemplatesDir); ok {
		cfg.TemplatesDir = v
	}
	if v, ok := get(EnvDebug); ok {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", EnvDebug, err)
		}
		cfg.Debug = debug
	}
	if v, ok := get(EnvWatch); ok {
		watch, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", EnvWatch, err)
		}
		cfg.Watch = watch
	}
	if v, ok := get(EnvSessionTTL); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", EnvSessionTTL, err)
		}
		if ttl <= 0 {
			return Config{}, fmt.Errorf("config: %s must be positive, got %s", EnvSessionTTL, v)
		}
		cfg.SessionTTL = ttl
	}
	return cfg, nil
}

// Logger builds the process logger: zap's production config, lowered to
// debug level when Debug is set.
func (c Config) Logger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Debug {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("config: build logger: %w", err)
	}
	return logger, nil
}
