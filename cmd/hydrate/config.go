package main

import (
	"fmt"
	"io"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// config holds the settings read from the environment.
type config struct {
	// DB is the sqlite data source backing the session.
	DB string `env:"HYDRATE_DB" envDefault:"file::memory:"`

	// Logging
	LogLevel string `env:"HYDRATE_LOG_LEVEL" envDefault:"warn"`
	LogJSON  bool   `env:"HYDRATE_LOG_JSON"  envDefault:"false"`

	MaxDepth int `env:"HYDRATE_MAX_DEPTH" envDefault:"10"`
}

// loadConfig parses environ into a config.
func loadConfig(environ map[string]string) (*config, error) {
	cfg := &config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.MaxDepth < 1 {
		return nil, fmt.Errorf("config: HYDRATE_MAX_DEPTH must be positive, got %d", cfg.MaxDepth)
	}
	return cfg, nil
}

func newLogger(cfg *config, w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(level)
	if cfg.LogJSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log, nil
}
