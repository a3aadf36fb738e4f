package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/automailpro/internal/flagx"
)

// EnvPrefix prefixes every environment variable read by parseEnv.
const EnvPrefix = "AUTOMAILPRO_"

// parseEnv loads an optional dotenv file (-env <path>, else ./.env if it
// exists) and overlays AUTOMAILPRO_* variables. Unset variables keep the
// current value. An explicit -env file that cannot be read panics, as do
// malformed values.
func parseEnv(cfg *Config) {
	if path := flagx.EnvFileFlag(); path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		panic(err)
	}
}
