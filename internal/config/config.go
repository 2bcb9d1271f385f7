// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration, parsed from environment
// variables.
type Config struct {
	Port      int    `env:"PORT" envDefault:"8080"`
	DBPath    string `env:"DB_PATH" envDefault:"prommis.db"`
	JWTSecret string `env:"JWT_SECRET,required"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	// SeedDemo fills an empty database with a handful of demo users,
	// a group and some step history. Development convenience only.
	SeedDemo bool `env:"SEED_DEMO" envDefault:"false"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}
