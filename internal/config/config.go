// Package config loads and validates the process configuration.
//
// Everything configurable comes from environment variables, parsed once in
// main into a Config value that is passed down by injection. No package
// reads os.Getenv after startup — secrets and TTLs are loaded here, treated
// as immutable, and handed to the components that need them.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the full server configuration.
//
// The `env` struct tags drive parsing: caarlos0/env reads each field from
// the named variable, applies envDefault when unset, and converts types
// (PORT → int, JWT_ACCESS_TTL → time.Duration via time.ParseDuration).
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	DBPath string `env:"DB_PATH" envDefault:"data/studyplanner.db"`

	// Token signing. The two secrets MUST differ — a leaked short-lived
	// access token must never verify as a long-lived refresh token.
	JWTAccessSecret  string        `env:"JWT_SECRET"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET"`
	AccessTTL        time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL       time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"` // 7 days

	// Where the browser is sent after login succeeds or fails.
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	// Google OAuth app credentials.
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL"`
}

// Load parses the environment into a Config.
//
// Parsing and validation are separate steps: Parse only fails on malformed
// values (a PORT that isn't a number), while Validate enforces the startup
// invariants. main calls both and exits on either failure — a server with a
// missing signing secret must not come up.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the invariants that can't be expressed as struct tags.
func (c Config) Validate() error {
	if len(c.JWTAccessSecret) < 16 {
		return errors.New("config: JWT_SECRET must be set (at least 16 characters)")
	}
	if len(c.JWTRefreshSecret) < 16 {
		return errors.New("config: JWT_REFRESH_SECRET must be set (at least 16 characters)")
	}
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return errors.New("config: JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
		return errors.New("config: GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set")
	}
	return nil
}

// IsProduction reports whether the server runs with the production profile.
// Cookies are marked Secure only in production, since local development
// runs over plain HTTP.
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// CallbackURL returns the Google OAuth callback, defaulting to the local
// server address when GOOGLE_CALLBACK_URL is unset.
func (c Config) CallbackURL() string {
	if c.GoogleCallbackURL != "" {
		return c.GoogleCallbackURL
	}
	return fmt.Sprintf("http://localhost:%d/auth/google/callback", c.Port)
}
