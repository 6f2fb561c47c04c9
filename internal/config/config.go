// Package config provides configuration loading for the memory server.
//
// Configuration is layered: defaults, then an optional YAML file, then
// CLAUDE_MEMORY_* environment variables. The storage and logging packages
// never read the environment themselves; they receive values from here.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/logging"
)

// Config holds the complete server configuration.
type Config struct {
	Storage    StorageConfig    `koanf:"storage"`
	Log        LogConfig        `koanf:"log"`
	Search     SearchConfig     `koanf:"search"`
	Validation ValidationConfig `koanf:"validation"`
	HTTP       HTTPConfig       `koanf:"http"`
}

// StorageConfig holds the storage root.
type StorageConfig struct {
	Path string `koanf:"path"` // Storage root, must resolve inside the home directory
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`   // Optional log file, appended to
	Stderr bool   `koanf:"stderr"` // Also log to stderr (default: true)
}

// SearchConfig holds search limits.
type SearchConfig struct {
	MaxLimit     int `koanf:"max_limit"`     // Largest accepted limit (default: 100)
	DefaultLimit int `koanf:"default_limit"` // Limit used when a caller omits it (default: 10)
}

// ValidationConfig holds input validation bounds.
type ValidationConfig struct {
	MinContentLength int `koanf:"min_content_length"` // Minimum content length in runes (default: 1)
	SlugMaxLength    int `koanf:"slug_max_length"`    // Maximum slug length in runes (default: 50)
}

// HTTPConfig holds the optional HTTP transport configuration.
type HTTPConfig struct {
	Enabled         bool     `koanf:"enabled"`
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	RateLimit       float64  `koanf:"rate_limit"` // API requests per second per client, 0 disables
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Path: "~/claude-memory",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Stderr: true,
		},
		Search: SearchConfig{
			MaxLimit:     100,
			DefaultLimit: 10,
		},
		Validation: ValidationConfig{
			MinContentLength: 1,
			SlugMaxLength:    50,
		},
		HTTP: HTTPConfig{
			Enabled:         false,
			Host:            "localhost",
			Port:            9191,
			ShutdownTimeout: Duration(10 * time.Second),
			RateLimit:       20,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage path is required")
	}

	if _, err := logging.LevelFromString(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got %q", c.Log.Format)
	}
	if !c.Log.Stderr && c.Log.File == "" {
		return errors.New("log output required: enable stderr or set a log file")
	}

	if c.Search.MaxLimit < 1 {
		return fmt.Errorf("search max limit must be positive, got %d", c.Search.MaxLimit)
	}
	if c.Search.DefaultLimit < 1 || c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search default limit must be between 1 and %d, got %d", c.Search.MaxLimit, c.Search.DefaultLimit)
	}

	if c.Validation.MinContentLength < 1 {
		return fmt.Errorf("min content length must be at least 1, got %d", c.Validation.MinContentLength)
	}
	if c.Validation.SlugMaxLength < 1 {
		return fmt.Errorf("slug max length must be at least 1, got %d", c.Validation.SlugMaxLength)
	}

	if c.HTTP.Enabled {
		if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
			return fmt.Errorf("invalid http port: %d (must be 1-65535)", c.HTTP.Port)
		}
		if c.HTTP.ShutdownTimeout.Duration() <= 0 {
			return errors.New("http shutdown timeout must be positive")
		}
		if c.HTTP.RateLimit < 0 {
			return fmt.Errorf("http rate limit cannot be negative, got %v", c.HTTP.RateLimit)
		}
	}

	return nil
}

// Logging converts the log section into a logging.Config.
func (c *Config) Logging() (*logging.Config, error) {
	level, err := logging.LevelFromString(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}

	lc := logging.NewDefaultConfig()
	lc.Level = level
	lc.Format = c.Log.Format
	lc.Output = logging.OutputConfig{Stderr: c.Log.Stderr, File: c.Log.File}
	if level <= zapcore.DebugLevel {
		lc.Stacktrace.Level = zapcore.WarnLevel
	}
	return lc, nil
}

// expandPaths resolves ~ and relative paths for the storage root and log file.
func (c *Config) expandPaths() error {
	var err error
	if c.Storage.Path, err = ExpandPath(c.Storage.Path); err != nil {
		return fmt.Errorf("storage path: %w", err)
	}
	if c.Log.File != "" {
		if c.Log.File, err = ExpandPath(c.Log.File); err != nil {
			return fmt.Errorf("log file: %w", err)
		}
	}
	return nil
}

// ExpandPath replaces a leading ~ with the home directory and makes the result
// absolute. It does not clean ".." segments away; pathguard rejects them.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = home + path[1:]
	}
	if path == "" || filepath.IsAbs(path) {
		return path, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return wd + string(filepath.Separator) + path, nil
}
