// Package config loads the storefront service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"8082"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Backend        string        `env:"CATALOG_BACKEND" envDefault:"rest"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`
	Preload        bool          `env:"PRELOAD" envDefault:"true"`

	SupabaseURL       string        `env:"SUPABASE_URL"`
	SupabaseKey       string        `env:"SUPABASE_KEY"`
	SupabaseJWTSecret string        `env:"SUPABASE_JWT_SECRET"`
	SupabaseRole      string        `env:"SUPABASE_ROLE" envDefault:"anon"`
	TokenTTL          time.Duration `env:"SUPABASE_TOKEN_TTL" envDefault:"10m"`

	DatabaseURL string `env:"DATABASE_URL"`

	MetricsToken     string `env:"METRICS_TOKEN"`
	WriterTokenHash  string `env:"WRITER_TOKEN_HASH"`
	WriteLimitPerMin int    `env:"WRITE_LIMIT_PER_MIN" envDefault:"30"`
}

// Load reads an optional .env file, then the environment, and validates
// the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

func Parse() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendREST:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return errors.New("SUPABASE_URL and SUPABASE_KEY are required for the rest backend")
		}
		if c.SupabaseJWTSecret != "" && len(c.SupabaseJWTSecret) < 32 {
			return errors.New("SUPABASE_JWT_SECRET must be at least 32 chars")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown CATALOG_BACKEND %q", c.Backend)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	if c.WriteLimitPerMin <= 0 {
		return errors.New("WRITE_LIMIT_PER_MIN must be positive")
	}
	return nil
}

// RESTBaseURL is the REST root under the project URL.
func (c Config) RESTBaseURL() string {
	return strings.TrimRight(c.SupabaseURL, "/") + "/rest/v1"
}
