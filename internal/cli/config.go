package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/octobees/opsboard/internal/config"
)

// DefaultConfigFile is read from the working directory when --config is not
// given. A missing default file is not an error.
const DefaultConfigFile = "opsctl.toml"

// Config is the opsctl.toml file. DatabaseURL and JWTSecret fall back to the
// DATABASE_URL and JWT_SECRET environment variables the API reads.
type Config struct {
	DatabaseURL string       `toml:"database_url"`
	JWTSecret   string       `toml:"jwt_secret"`
	TokenTTL    string       `toml:"token_ttl"`
	Dialect     string       `toml:"dialect"`
	Paging      PagingConfig `toml:"paging"`
}

// PagingConfig mirrors the API's per-endpoint page sizes.
type PagingConfig struct {
	Tasks       int `toml:"tasks"`
	Contractors int `toml:"contractors"`
	Warehouse   int `toml:"warehouse"`
	Max         int `toml:"max"`
}

func defaultConfig() *Config {
	return &Config{
		TokenTTL: "24h",
		Dialect:  "postgres",
		Paging:   PagingConfig{Tasks: 50, Contractors: 15, Warehouse: 50, Max: 100},
	}
}

// LoadConfig decodes path over the defaults. An empty path means
// DefaultConfigFile, which may be absent.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg.withEnv(), nil
		}
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg.withEnv(), nil
}

func (c *Config) withEnv() *Config {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.JWTSecret == "" {
		c.JWTSecret = os.Getenv("JWT_SECRET")
	}
	return c
}

// PagingDefaults converts the file section into the service configuration,
// keeping defaults for unset sizes.
func (c *Config) PagingDefaults() config.PagingConfig {
	def := defaultConfig().Paging
	pick := func(v, fallback int) int {
		if v > 0 {
			return v
		}
		return fallback
	}
	return config.PagingConfig{
		Tasks:       pick(c.Paging.Tasks, def.Tasks),
		Contractors: pick(c.Paging.Contractors, def.Contractors),
		Warehouse:   pick(c.Paging.Warehouse, def.Warehouse),
		Max:         pick(c.Paging.Max, def.Max),
	}
}

// TTL parses token_ttl.
func (c *Config) TTL() (time.Duration, error) {
	if c.TokenTTL == "" {
		return 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(c.TokenTTL)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid token_ttl %q", c.TokenTTL)
	}
	return d, nil
}
