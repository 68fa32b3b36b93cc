// Package config handles manager configuration loading from a YAML file.
// Every setting has a default; the file is optional and most hosts never
// create one.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all presencectl settings.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Status  StatusConfig  `yaml:"status"`
	Env     EnvConfig     `yaml:"env"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// StatusConfig controls the status report.
type StatusConfig struct {
	// TailLines is how many trailing lines of each log file the report shows.
	TailLines int `yaml:"tail_lines"`
	// RequiredKeys are the credential keys that must be present and
	// non-empty in the project's .env file. Values are never read back out.
	RequiredKeys []string `yaml:"required_keys"`
}

// EnvConfig controls runtime-environment provisioning.
type EnvConfig struct {
	// Python is the interpreter used to create the virtual environment.
	Python string `yaml:"python"`
	// Requirements is the dependency manifest, relative to the project root.
	Requirements string `yaml:"requirements"`
	// Entrypoint is the supervised script, relative to the project root.
	Entrypoint string `yaml:"entrypoint"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Status: StatusConfig{
			TailLines: 50,
			RequiredKeys: []string{
				"TRAKT_CLIENT_ID",
				"TRAKT_CLIENT_SECRET",
				"TRAKT_APPLICATION_ID",
				"DISCORD_CLIENT_ID",
			},
		},
		Env: EnvConfig{
			Python:       "python3",
			Requirements: "requirements.txt",
			Entrypoint:   "main.py",
		},
	}
}

// Load reads the config file at path, falling back to defaults for any unset
// field. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks for values that would misbehave downstream.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level %q", c.Logging.Level)
	}
	if c.Status.TailLines < 1 {
		return fmt.Errorf("status.tail_lines must be positive, got %d", c.Status.TailLines)
	}
	if c.Env.Python == "" {
		return errors.New("env.python must not be empty")
	}
	if c.Env.Entrypoint == "" {
		return errors.New("env.entrypoint must not be empty")
	}
	return nil
}
