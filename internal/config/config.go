// Package config loads trackstore settings from TRACKSTORE_* environment
// variables, optionally read from a .env file, and validates them.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	// Loads .env into the process environment, if present, before Load runs.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/roach88/trackstore/internal/resource"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "TRACKSTORE_"

// DefaultVacuumThreshold is the number of cumulative deleted rows after
// which the database is compacted.
const DefaultVacuumThreshold = 10000

// Config is the root configuration object.
//
// Environment variables map to fields by lowercasing the name after the
// prefix: TRACKSTORE_DB_PATH sets db_path.
type Config struct {
	DBPath          string `koanf:"db_path" validate:"required"`
	PrefsPath       string `koanf:"prefs_path" validate:"required"`
	Authority       string `koanf:"authority" validate:"required,hostname_rfc1123"`
	VacuumThreshold int64  `koanf:"vacuum_threshold" validate:"gt=0"`
	LogLevel        string `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogFormat       string `koanf:"log_format" validate:"oneof=console json"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		DBPath:          "trackstore.db",
		PrefsPath:       "trackstore-prefs.yaml",
		Authority:       resource.DefaultAuthority,
		VacuumThreshold: DefaultVacuumThreshold,
		LogLevel:        "info",
		LogFormat:       "console",
	}
}

// Load reads the environment over the defaults and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags. CLI flag overrides are validated again
// through this method.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
