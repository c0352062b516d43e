// Package config loads process configuration from environment variables.
//
// WHY A CONFIG STRUCT INSTEAD OF os.Getenv SCATTERED AROUND?
// Every value is read exactly once at boot, validated, and then passed into
// component constructors as plain fields. Nothing else in the codebase touches
// the environment, so there is no ambient global state to reason about —
// the config is created once, read-only thereafter, and torn down with the
// process.
//
// The struct tags come from caarlos0/env: each field names its variable and
// an optional default. `env.Parse` fills the struct in one call.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the server needs to start.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8000"`
	DBPath string `env:"DB_PATH" envDefault:"data/langnotes.db"`

	// JWTSecret signs both access and refresh tokens. Generate with:
	//   JWT_SECRET=$(openssl rand -hex 32)
	JWTSecret  string        `env:"JWT_SECRET"`
	AccessTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	// Google OAuth credentials for the federated login flow.
	// Optional — when unset, the /auth/google routes are not registered
	// and /user/login/google still works for already-registered users.
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL"`
}

// Load parses the environment into a Config and applies derived defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET is required")
	}
	if cfg.GoogleCallbackURL == "" && cfg.GoogleClientID != "" {
		cfg.GoogleCallbackURL = fmt.Sprintf("http://localhost:%d/auth/google/callback", cfg.Port)
	}

	return cfg, nil
}

// GoogleEnabled reports whether the Google OAuth flow is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}
