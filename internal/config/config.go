// Package config loads server configuration from environment variables.
//
// Configuration is an explicit value constructed once in main and handed to
// whoever needs it. Provider credentials in particular are plain struct
// fields, not a process-wide registry — every constructor that needs them
// receives its own copy.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// OAuthProvider holds one provider's OAuth app credentials.
//
// CallbackURL may be empty: the callback handler then derives it from the
// inbound request's forwarded headers (see auth.ResolveCallbackURL). When
// set, it must match the callback URL registered with the provider exactly.
type OAuthProvider struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Enabled reports whether credentials for this provider were configured.
func (p OAuthProvider) Enabled() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

// Config is the full server configuration.
type Config struct {
	Port          int    `env:"PORT"           envDefault:"5000"`
	DBPath        string `env:"DB_PATH"        envDefault:"data/rewards.db"`
	SessionSecret string `env:"SESSION_SECRET"`
	// PublicURL, when set, is the externally visible base URL
	// (e.g. "https://rewards.example.com") used to build callback URLs for
	// providers without an explicit CallbackURL.
	PublicURL string `env:"PUBLIC_URL"`

	GitHub  OAuthProvider `envPrefix:"GITHUB_"`
	Discord OAuthProvider `envPrefix:"DISCORD_"`
}

// rawProvider maps the per-provider env vars inside an envPrefix group.
type rawProvider struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	CallbackURL  string `env:"CALLBACK_URL"`
}

type rawEnv struct {
	Port          int    `env:"PORT"           envDefault:"5000"`
	DBPath        string `env:"DB_PATH"        envDefault:"data/rewards.db"`
	SessionSecret string `env:"SESSION_SECRET"`
	PublicURL     string `env:"PUBLIC_URL"`

	GitHub  rawProvider `envPrefix:"GITHUB_"`
	Discord rawProvider `envPrefix:"DISCORD_"`
}

// Load parses configuration from the process environment.
//
// It fails fast on a malformed value (e.g. non-numeric PORT) or a missing
// SESSION_SECRET — starting without one would issue unverifiable sessions.
// Missing provider credentials are not an error: a provider can be disabled
// and its routes simply aren't registered.
func Load() (Config, error) {
	var raw rawEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}

	cfg := Config{
		Port:          raw.Port,
		DBPath:        raw.DBPath,
		SessionSecret: raw.SessionSecret,
		PublicURL:     raw.PublicURL,
		GitHub:        OAuthProvider(raw.GitHub),
		Discord:       OAuthProvider(raw.Discord),
	}

	if cfg.SessionSecret == "" {
		return Config{}, errors.New("config: SESSION_SECRET must be set")
	}
	if len(cfg.SessionSecret) < 16 {
		return Config{}, errors.New("config: SESSION_SECRET must be at least 16 characters")
	}

	return cfg, nil
}
