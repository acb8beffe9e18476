// Package config resolves runtime settings from the process environment
// and an optional .env file in the project directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvResultsDir  = "GUIDE_RESULTS_DIR"
	EnvLogLevel    = "GUIDE_LOG_LEVEL"
	EnvConcurrency = "GUIDE_CONCURRENCY"
	EnvSourceCache = "GUIDE_SOURCE_CACHE"
)

type Config struct {
	// ResultsDir is relative to the mission directory.
	ResultsDir  string
	LogLevel    slog.Level
	Concurrency int
	SourceCache int
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		ResultsDir:  "results",
		LogLevel:    slog.LevelInfo,
		Concurrency: 8,
		SourceCache: 256,
	}
}

// Load reads dir/.env when present, then the process environment, which
// takes precedence. Malformed values are errors rather than silently
// replaced by defaults.
func Load(dir string) (Config, error) {
	file, err := godotenv.Read(filepath.Join(dir, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("reading .env: %w", err)
	}
	get := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(file[key])
	}

	cfg := Default()
	if v := get(EnvResultsDir); v != "" {
		if filepath.IsAbs(v) {
			return Config{}, fmt.Errorf("%s must be relative to the mission directory, got %q", EnvResultsDir, v)
		}
		cfg.ResultsDir = v
	}
	if v := get(EnvLogLevel); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
	}
	if cfg.Concurrency, err = positiveInt(get, EnvConcurrency, cfg.Concurrency); err != nil {
		return Config{}, err
	}
	if cfg.SourceCache, err = positiveInt(get, EnvSourceCache, cfg.SourceCache); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func positiveInt(get func(string) string, key string, def int) (int, error) {
	v := get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}
