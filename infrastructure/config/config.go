package config

import (
	"errors"
	"fmt"
	"os"

	"selene/domain/entities"

	"github.com/joho/godotenv"
	"github.com/mstoykov/envconfig"
	"github.com/sirupsen/logrus"
)

// LookupFunc - resolves an environment variable
type LookupFunc func(key string) (string, bool)

// Load - reads an optional .env file and then builds the configuration from
// SELENE_* variables, falling back to defaults. A nil lookup uses os.LookupEnv.
func Load(lookup LookupFunc, envFiles ...string) (entities.Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return entities.Config{}, fmt.Errorf("failed to load env file: %w", err)
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var cfg entities.Config
	if err := envconfig.Process("", &cfg, lookup); err != nil {
		return entities.Config{}, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return entities.Config{}, err
	}
	return cfg, nil
}

// Validate - checks values envconfig cannot
func Validate(cfg entities.Config) error {
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", cfg.PollInterval)
	}
	if cfg.PollInterval > cfg.Timeout {
		return fmt.Errorf("poll interval %s exceeds timeout %s", cfg.PollInterval, cfg.Timeout)
	}
	switch cfg.Backend {
	case entities.BackendSelenium, entities.BackendPlaywright:
	default:
		return fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// NewLogger - builds the application logger at the configured level
func NewLogger(cfg entities.Config) *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}
