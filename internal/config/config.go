// Package config loads r2-go settings from a TOML file with environment
// and CLI overrides layered on top. Credentials live in a separate file
// (see internal/credfile); this package only resolves where that file is
// and what the tool's behavioral settings are.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk settings schema.
type Config struct {
	// LogLevel is the baseline log level: debug, info, warn, or error.
	// CLI flags (--verbose, --quiet) override it.
	LogLevel string `toml:"log_level"`

	// Concurrency is the number of parallel uploads used by push.
	Concurrency int `toml:"concurrency"`

	// History enables the local transfer ledger.
	History bool `toml:"history"`
}

// defaultConcurrency bounds parallel uploads; four keeps a home uplink
// responsive while still overlapping request latency.
const defaultConcurrency = 4

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:    "info",
		Concurrency: defaultConcurrency,
		History:     true,
	}
}

// Load reads and parses a TOML config file and validates it. Unknown keys
// are fatal — silently ignoring a typo in a config file leads to
// hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q in config file %s", undecoded[0].String(), path)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// all defaults. Supports the zero-config first-run experience.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Validate checks field values against their allowed ranges.
func Validate(cfg *Config) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error (got %q)", cfg.LogLevel)
	}

	if cfg.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1 (got %d)", cfg.Concurrency)
	}

	return nil
}
