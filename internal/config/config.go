// Package config loads process-level settings for the canopy binaries from the
// environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/pkg/domain"
)

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into Config.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrInvalidConfig is returned when parsed values are inconsistent.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config holds every CANOPY_* setting. Command-line flags take precedence.
type Config struct {
	LogLevel     string   `env:"CANOPY_LOG_LEVEL" envDefault:"info"`
	LogFormat    string   `env:"CANOPY_LOG_FORMAT" envDefault:"text"`
	Verify       bool     `env:"CANOPY_VERIFY" envDefault:"false"`
	TreeFiles    []string `env:"CANOPY_TREE_FILES" envSeparator:","`
	InitialState string   `env:"CANOPY_INITIAL_STATE" envDefault:"root"`
	MachineName  string   `env:"CANOPY_MACHINE_NAME" envDefault:"canopy"`

	HTTPAddr string `env:"CANOPY_HTTP_ADDR" envDefault:":8080"`

	RedisAddr    string `env:"CANOPY_REDIS_ADDR"`
	RedisChannel string `env:"CANOPY_REDIS_CHANNEL" envDefault:"canopy:transitions"`
}

// Load reads envFiles (default: .env) into the process environment, without
// overriding variables that are already set, then parses Config.
// Missing env files are ignored.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that env tags cannot express.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch c.LogFormat {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.InitialState == "" {
		return fmt.Errorf("%w: initial state must not be empty", ErrInvalidConfig)
	}
	return nil
}

// Level returns the parsed log level (info when invalid).
func (c Config) Level() slog.Level {
	level, _ := logging.ParseLevel(c.LogLevel)
	return level
}

// IsDefaultInitialState reports whether the machine starts at the root.
func (c Config) IsDefaultInitialState() bool {
	return c.InitialState == domain.RootStateID
}
