package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, int64(3000), cfg.Threshold)
	assert.Equal(t, 100, cfg.PageSize)
	assert.Equal(t, Duration(2*time.Second), cfg.BlockDelay)
	assert.Equal(t, "blocked_users_log.csv", cfg.LogPath)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skywall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
identifier: alice.bsky.social
app_password: abcd-efgh-ijkl-mnop
seed_actor: seed.bsky.social
threshold: 5000
max_followers: 2000
block_delay: 1s
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "alice.bsky.social", cfg.Identifier)
	assert.Equal(t, int64(5000), cfg.Threshold)
	assert.Equal(t, 2000, cfg.MaxFollowers)
	assert.Equal(t, Duration(time.Second), cfg.BlockDelay)
	assert.Equal(t, 100, cfg.PageSize, "unset fields keep their defaults")
}

func TestLoad_EnvCredentials(t *testing.T) {
	t.Setenv("SKYWALL_IDENTIFIER", "env.bsky.social")
	t.Setenv("SKYWALL_APP_PASSWORD", "env-pass")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env.bsky.social", cfg.Identifier)
	assert.Equal(t, "env-pass", cfg.AppPassword)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Identifier = "alice.bsky.social"
	valid.AppPassword = "pw"

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing identifier", func(c *Config) { c.Identifier = "" }, "identifier"},
		{"missing password", func(c *Config) { c.AppPassword = "" }, "app_password"},
		{"zero threshold", func(c *Config) { c.Threshold = 0 }, "threshold"},
		{"oversized page", func(c *Config) { c.PageSize = 250 }, "page_size"},
		{"negative max followers", func(c *Config) { c.MaxFollowers = -1 }, "max_followers"},
		{"empty log path", func(c *Config) { c.LogPath = "" }, "log_path"},
	}

	require.NoError(t, valid.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			var ce *ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}
