package sqlaskctl

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type envConfig struct {
	BaseURL string        `env:"SQLASK_API_URL"     envDefault:"http://localhost:8080"`
	Timeout time.Duration `env:"SQLASK_CLI_TIMEOUT" envDefault:"60s"`
}

// OptionsFromEnv reads the client defaults from the environment.
func OptionsFromEnv() (Options, error) {
	return optionsFromEnv(env.Options{})
}

func optionsFromEnv(opts env.Options) (Options, error) {
	var cfg envConfig
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Options{}, fmt.Errorf("parse environment: %w", err)
	}
	return Options{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}, nil
}
