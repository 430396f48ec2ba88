// Package config loads process settings from the environment and optimization
// requests from run files.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Env struct {
	Store        string `env:"STATFORGE_STORE"         envDefault:"memory"`
	DBPath       string `env:"STATFORGE_DB_PATH"       envDefault:"statforge.db"`
	LogLevel     string `env:"STATFORGE_LOG_LEVEL"     envDefault:"info"`
	LogFormat    string `env:"STATFORGE_LOG_FORMAT"    envDefault:"console"`
	OTelEndpoint string `env:"STATFORGE_OTEL_ENDPOINT"`
	CatalogPath  string `env:"STATFORGE_CATALOG_PATH"`
	Workers      int    `env:"STATFORGE_WORKERS"       envDefault:"1"`
}

// LoadEnv reads dotenv files (".env" when none are given) into the process
// environment without overriding variables that are already set, then
// parses Env. Missing dotenv files are ignored.
func LoadEnv(dotenvPaths ...string) (Env, error) {
	if err := godotenv.Load(dotenvPaths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Env{}, fmt.Errorf("load dotenv: %w", err)
	}
	var cfg Env
	if err := env.Parse(&cfg); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return cfg, nil
}
