package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sasl "github.com/maxpert/sasl-go"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, []string{sasl.Plain}, cfg.Mechanisms)
	assert.False(t, cfg.AllowAnonymous)
	assert.True(t, cfg.Enabled(sasl.Plain))
	assert.False(t, cfg.Enabled(sasl.Login))
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid config",
			modify: func(c *Config) { c.UsersFile = "users.yaml" },
		},
		{
			name:    "no mechanisms",
			modify:  func(c *Config) { c.Mechanisms = nil },
			wantErr: true,
		},
		{
			name: "unknown mechanism",
			modify: func(c *Config) {
				c.UsersFile = "users.yaml"
				c.Mechanisms = append(c.Mechanisms, "SCRAM-SHA-256")
			},
			wantErr: true,
		},
		{
			name:    "plain without users file",
			modify:  func(c *Config) {},
			wantErr: true,
		},
		{
			name: "anonymous without the explicit switch",
			modify: func(c *Config) {
				c.Mechanisms = []string{sasl.Anonymous}
			},
			wantErr: true,
		},
		{
			name: "anonymous allowed",
			modify: func(c *Config) {
				c.Mechanisms = []string{sasl.Anonymous}
				c.AllowAnonymous = true
			},
		},
		{
			name: "external needs no users file",
			modify: func(c *Config) {
				c.Mechanisms = []string{sasl.External}
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sasl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mechanisms:
  - PLAIN
  - LOGIN
users_file: /etc/sasl/users.yaml
oauth:
  scope: imap
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{sasl.Plain, sasl.Login}, cfg.Mechanisms)
	assert.Equal(t, "/etc/sasl/users.yaml", cfg.UsersFile)
	assert.Equal(t, "imap", cfg.OAuth.Scope)
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sasl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mechanisms: [PLAIN]
users_file: /etc/sasl/users.yaml
`), 0o600))

	t.Setenv("SASL_USERS_FILE", "/run/secrets/users.yaml")
	t.Setenv("SASL_OAUTH__SCOPE", "smtp")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/run/secrets/users.yaml", cfg.UsersFile)
	assert.Equal(t, "smtp", cfg.OAuth.Scope)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("SASL_USERS_FILE", "/etc/sasl/users.yaml")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{sasl.Plain}, cfg.Mechanisms)
	assert.Equal(t, "/etc/sasl/users.yaml", cfg.UsersFile)
}

func TestLoadInvalidConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sasl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mechanisms: [PLAIN]
`), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "users_file")
}
