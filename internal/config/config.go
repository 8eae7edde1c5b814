// Package config loads scribe settings.
//
// Sources are applied in order, later ones winning: built-in defaults, an
// optional YAML file, then SCRIBE_* environment variables. Command-line flags
// are applied on top by the cli package.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/scribe/internal/store"
)

// Config is the full scribe configuration.
type Config struct {
	Database Database `yaml:"database"`
	History  History  `yaml:"history"`
	Seed     Seed     `yaml:"seed"`
	Log      Log      `yaml:"log"`
}

// Database selects and tunes the SQLite file.
type Database struct {
	Path          string `yaml:"path" env:"SCRIBE_DB_PATH"`
	Driver        string `yaml:"driver" env:"SCRIBE_DB_DRIVER"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms" env:"SCRIBE_DB_BUSY_TIMEOUT_MS"`
}

// History controls generated-text listings.
type History struct {
	RecentLimit int `yaml:"recent_limit" env:"SCRIBE_RECENT_LIMIT"`
}

// Seed controls installation of the built-in preset catalog.
type Seed struct {
	Enabled bool `yaml:"enabled" env:"SCRIBE_SEED"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level" env:"SCRIBE_LOG_LEVEL"`
	Format string `yaml:"format" env:"SCRIBE_LOG_FORMAT"`
}

// ValidLogFormats are the accepted Log.Format values.
var ValidLogFormats = []string{"text", "json"}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: Database{
			Path:          DefaultDBPath(),
			Driver:        store.DriverCGO,
			BusyTimeoutMS: store.DefaultBusyTimeoutMS,
		},
		History: History{RecentLimit: 10},
		Seed:    Seed{Enabled: true},
		Log:     Log{Level: "info", Format: "text"},
	}
}

// DefaultDBPath is $XDG_DATA_HOME/scribe/scribe.db, falling back to
// ~/.local/share/scribe/scribe.db, then ./scribe.db.
func DefaultDBPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "scribe", "scribe.db")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "scribe", "scribe.db")
	}
	return "scribe.db"
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), and the environment. A missing file is an error only when
// path was given explicitly.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("config file %s not found", path)
			}
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

// Validate rejects settings the store or logger cannot honour.
func (c Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path must not be empty")
	}
	switch c.Database.Driver {
	case store.DriverCGO, store.DriverPureGo:
	default:
		return fmt.Errorf("database.driver %q: must be %q or %q",
			c.Database.Driver, store.DriverCGO, store.DriverPureGo)
	}
	if c.Database.BusyTimeoutMS < 0 {
		return fmt.Errorf("database.busy_timeout_ms must not be negative, got %d", c.Database.BusyTimeoutMS)
	}
	if c.History.RecentLimit <= 0 {
		return fmt.Errorf("history.recent_limit must be positive, got %d", c.History.RecentLimit)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if !isValidLogFormat(c.Log.Format) {
		return fmt.Errorf("log.format %q: must be one of %v", c.Log.Format, ValidLogFormats)
	}
	return nil
}

// StoreOptions converts the database section into store options.
func (c Config) StoreOptions() []store.Option {
	return []store.Option{
		store.WithDriver(c.Database.Driver),
		store.WithBusyTimeout(c.Database.BusyTimeoutMS),
	}
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("log.level %q: must be debug, info, warn or error", s)
	}
	return l, nil
}

func isValidLogFormat(format string) bool {
	for _, f := range ValidLogFormats {
		if f == format {
			return true
		}
	}
	return false
}
