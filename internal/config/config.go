// Package config reads the moodle connection settings from the environment,
// optionally seeded from a dotenv file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/edutools/moodle"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultEnvFile is read when LoadOptions.EnvFile is empty.
const DefaultEnvFile = ".env"

type Config struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LoadOptions struct {
	EnvFile string
}

// MaskedToken shows the first ten characters of the token.
func (c *Config) MaskedToken() string {
	if len(c.Token) > 10 {
		return c.Token[:10] + "..."
	}
	return c.Token
}

// Load returns the settings from MOODLE_URL, MOODLE_TOKEN and
// MOODLE_TIMEOUT. Variables already set in the environment win over the
// dotenv file. loaded reports whether the dotenv file was read.
func Load(opts LoadOptions) (cfg *Config, loaded bool, err error) {
	path := opts.EnvFile
	if path == "" {
		path = DefaultEnvFile
	}
	if fileExists(path) {
		if err := godotenv.Load(path); err != nil {
			return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
		}
		loaded = true
	}

	v := viper.New()
	v.SetEnvPrefix("MOODLE")
	for _, key := range []string{"url", "token", "timeout"} {
		if err := v.BindEnv(key); err != nil {
			return nil, loaded, err
		}
	}
	v.SetDefault("timeout", moodle.DefaultTimeout)

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, loaded, fmt.Errorf("failed to parse config: %w", err)
	}
	if c.URL == "" || c.Token == "" {
		return nil, loaded, fmt.Errorf("MOODLE_URL and MOODLE_TOKEN must be set: %w", moodle.ErrMissingConfig)
	}
	if c.Timeout <= 0 {
		c.Timeout = moodle.DefaultTimeout
	}
	return &c, loaded, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
