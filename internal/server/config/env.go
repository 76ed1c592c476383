package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// parseEnv overlays variables that are present in the environment. Unset
// variables leave the current value untouched.
func parseEnv(config *Config) {
	if err := env.Parse(config); err != nil {
		panic(fmt.Errorf("read env config: %w", err))
	}
}
