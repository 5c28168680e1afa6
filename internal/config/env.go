package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds process-level configuration sourced from the environment.
// Command-line flags in cmd/camwatch take precedence over these.
type Env struct {
	HTTPAddr    string `env:"CAMWATCH_HTTP_ADDR" envDefault:":8080"`
	DBPath      string `env:"CAMWATCH_DB_PATH" envDefault:"camwatch.db"`
	TuningPath  string `env:"CAMWATCH_TUNING" envDefault:""`
	Debug       bool   `env:"CAMWATCH_DEBUG" envDefault:"false"`
	AdminRoutes bool   `env:"CAMWATCH_ADMIN_ROUTES" envDefault:"true"`
}

// LoadEnv parses the CAMWATCH_* environment variables into an Env.
func LoadEnv() (*Env, error) {
	cfg := &Env{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment config: %w", err)
	}
	return cfg, nil
}
