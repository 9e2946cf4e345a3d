package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Env            string `env:"APP_ENV" envDefault:"development"`
	ListenAddr     string `env:"LISTEN_ADDR" envDefault:":8080"`
	DatabaseURL    string `env:"DATABASE_URL"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DatabaseURL == "" {
		// Not fatal for early local runs; warn via error value so callers can decide.
		return cfg, fmt.Errorf("DATABASE_URL not set")
	}
	return cfg, nil
}
