package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces environment variables, e.g. GOPHCHAT_JWT_SECRET.
// The unprefixed names (JWT_SECRET, MAX_REQUEST, ...) are accepted as well.
const EnvPrefix = "GOPHCHAT"

// parseEnv overlays values from the process environment onto config.
// A .env file in the working directory is loaded first when present; it never
// overrides variables that are already set. Unset variables leave the
// corresponding field untouched. Malformed values panic, like the JSON and
// flag layers.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	if err := envconfig.Process(EnvPrefix, config); err != nil {
		panic(err)
	}
}
