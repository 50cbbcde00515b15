// Package config reads the board's settings from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime settings.
type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	APIBaseURL      string        `env:"API_BASE_URL" envDefault:"http://localhost:8000"`
	MessageTTL      time.Duration `env:"MESSAGE_TTL" envDefault:"5s"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT" envDefault:"0s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads envFiles (missing files are ignored) and then parses the
// environment. Variables already set win over file values.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.APIBaseURL == "" {
		return Config{}, errors.New("API_BASE_URL must not be empty")
	}
	return cfg, nil
}

// Addr is the listen address for the board server.
func (c Config) Addr() string {
	return ":" + c.Port
}
