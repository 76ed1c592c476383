package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

func parseEnv(cfg *Config) {
	if err := env.Parse(cfg); err != nil {
		panic(fmt.Errorf("read env config: %w", err))
	}
}
