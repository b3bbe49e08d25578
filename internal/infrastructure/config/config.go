// Package config loads mlab settings from an optional YAML file and MLAB_*
// environment variables. Environment values override the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/emiliopalmerini/mlab/internal/adapters/otel"
	"github.com/emiliopalmerini/mlab/internal/util"
)

const (
	envPrefix       = "mlab"
	defaultFileName = "config.yaml"
)

// API holds the experiment backend settings.
type API struct {
	BaseURL      string        `envconfig:"URL" yaml:"base_url"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" yaml:"poll_interval"`
}

// Database holds the local state database settings. A URL without a scheme
// is a file path.
type Database struct {
	URL       string `envconfig:"URL" yaml:"url"`
	AuthToken string `envconfig:"AUTH_TOKEN" yaml:"auth_token"`
}

// Server holds web dashboard settings.
type Server struct {
	Port int `envconfig:"PORT" yaml:"port"`
}

// Log holds logger settings.
type Log struct {
	Level  string `envconfig:"LEVEL" yaml:"level"`
	Format string `envconfig:"FORMAT" yaml:"format"`
}

type Config struct {
	API      API         `envconfig:"API" yaml:"api"`
	Database Database    `envconfig:"DB" yaml:"database"`
	Server   Server      `envconfig:"SERVER" yaml:"server"`
	Log      Log         `envconfig:"LOG" yaml:"log"`
	OTEL     otel.Config `envconfig:"OTEL" yaml:"otel"`
}

// Default returns the built-in configuration.
func Default() (*Config, error) {
	dataDir, err := util.DataDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		API: API{
			BaseURL:      "http://localhost:8000",
			PollInterval: 2 * time.Second,
		},
		Database: Database{URL: filepath.Join(dataDir, "mlab.db")},
		Server:   Server{Port: 8080},
		Log:      Log{Level: "info", Format: "text"},
	}, nil
}

// DefaultPath is the config file looked up when no path is given.
func DefaultPath() (string, error) {
	dir, err := util.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultFileName), nil
}

// Load builds the configuration from defaults, the YAML file at path and the
// environment. An empty path uses DefaultPath and tolerates a missing file.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	explicit := path != ""
	if !explicit {
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	if err := cfg.mergeFile(path, explicit); err != nil {
		return nil, err
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.API.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.API.PollInterval)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required")
	}
	return nil
}
