// Package config loads deployment configuration for the server side of a
// SASL negotiation: which mechanisms to advertise, where the user database
// lives and what an OAUTHBEARER failure challenge should point clients at.
//
// Configuration is read from a YAML file and overridden by SASL_* environment
// variables (SASL_USERS_FILE, SASL_ALLOW_ANONYMOUS, ...).
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	sasl "github.com/maxpert/sasl-go"
)

const envPrefix = "SASL_"

// OAuthConfig carries the discovery hints embedded in OAUTHBEARER failure
// challenges.
type OAuthConfig struct {
	// Scope is advertised to rejected clients so they know what to request
	// from their token issuer.
	Scope string `koanf:"scope"`
}

// Config is the server-side deployment configuration.
type Config struct {
	// Mechanisms lists the mechanism names to advertise, e.g. ["PLAIN",
	// "LOGIN"]. Advertisement order is always the library's priority order
	// regardless of the order given here.
	Mechanisms []string `koanf:"mechanisms"`

	// UsersFile is the path of the YAML user database consumed by the
	// authfile package. Required when PLAIN or LOGIN is enabled.
	UsersFile string `koanf:"users_file"`

	// AllowAnonymous permits the ANONYMOUS mechanism. Off by default.
	AllowAnonymous bool `koanf:"allow_anonymous"`

	OAuth OAuthConfig `koanf:"oauth"`
}

// DefaultConfig returns the configuration used when no file is given:
// PLAIN only, no anonymous access.
func DefaultConfig() *Config {
	return &Config{
		Mechanisms: []string{sasl.Plain},
	}
}

// Load reads path (YAML), applies SASL_* environment overrides and
// validates the result. An empty path skips the file and starts from
// defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			return strings.ReplaceAll(key, "__", "."), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks mechanism names and cross-field requirements.
func (c *Config) Validate() error {
	if len(c.Mechanisms) == 0 {
		return fmt.Errorf("no mechanisms enabled")
	}
	for _, name := range c.Mechanisms {
		if !knownMechanism(name) {
			return fmt.Errorf("unknown mechanism %q", name)
		}
	}
	if c.Enabled(sasl.Anonymous) && !c.AllowAnonymous {
		return fmt.Errorf("ANONYMOUS is listed but allow_anonymous is false")
	}
	if (c.Enabled(sasl.Plain) || c.Enabled(sasl.Login)) && c.UsersFile == "" {
		return fmt.Errorf("users_file is required when PLAIN or LOGIN is enabled")
	}
	return nil
}

// Enabled reports whether the named mechanism is configured.
func (c *Config) Enabled(name string) bool {
	for _, m := range c.Mechanisms {
		if m == name {
			return true
		}
	}
	return false
}

func knownMechanism(name string) bool {
	for _, m := range sasl.Priority {
		if m == name {
			return true
		}
	}
	return false
}
