package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/viant/mlvec/version"
)

// Config holds the settings shared by the mlvec commands. Command-line flags
// override these values.
type Config struct {
	// Store backend: sqlite, redis or memory
	Driver    string `env:"MLVEC_DRIVER" envDefault:"sqlite"`
	DSN       string `env:"MLVEC_DSN" envDefault:":memory:"`
	RedisAddr string `env:"MLVEC_REDIS_ADDR" envDefault:"localhost:6379"`

	// Scan target
	Namespace string `env:"MLVEC_NAMESPACE" envDefault:"test"`
	Set       string `env:"MLVEC_SET" envDefault:"demo"`
	Bin       string `env:"MLVEC_BIN" envDefault:"vector_bin"`
	Metric    string `env:"MLVEC_METRIC" envDefault:"l2"`

	MinServerVersion version.Version `env:"MLVEC_MIN_SERVER_VERSION" envDefault:"3.0.0"`
	Debug            bool            `env:"MLVEC_DEBUG" envDefault:"false"`
}

// Load reads Config from the environment.
func Load() (*Config, error) {
	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	return c, nil
}
