// Package config loads and validates run configuration from an optional
// YAML file, with flags and environment variables layered on top by the
// command layer.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts "2s"-style values in YAML, which yaml.v3 does not do
// for time.Duration itself.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converts back to the standard type.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ConfigError is a fatal pre-flight failure: the run never starts.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// Config is everything one run needs. Credentials may come from the
// SKYWALL_IDENTIFIER / SKYWALL_APP_PASSWORD environment variables or an
// interactive prompt instead of the file.
type Config struct {
	// Identifier is the account handle or email used to log in.
	Identifier string `yaml:"identifier"`
	// AppPassword is a Bluesky app password, never the account password.
	AppPassword string `yaml:"app_password"`
	// ServiceURL overrides the PDS entrypoint, mainly for tests.
	ServiceURL string `yaml:"service_url"`

	// SeedActor is the account whose followers are analyzed. Defaults to
	// the logged-in account.
	SeedActor string `yaml:"seed_actor"`
	// Threshold is the minimum follows count for blocking eligibility.
	Threshold int64 `yaml:"threshold"`
	// MaxFollowers bounds the scan; 0 means all followers.
	MaxFollowers int `yaml:"max_followers"`
	// PageSize is the pagination limit per request, capped at 100.
	PageSize int `yaml:"page_size"`
	// HydrateCounts re-fetches profiles whose listing omitted the follows
	// count.
	HydrateCounts bool `yaml:"hydrate_counts"`
	// BlockDelay is the pause between block calls.
	BlockDelay Duration `yaml:"block_delay"`
	// LogPath is the audit CSV location.
	LogPath string `yaml:"log_path"`
	// Listen is the serve-mode bind address.
	Listen string `yaml:"listen"`
}

// Default returns the baseline configuration before any file, env or flag
// overrides.
func Default() Config {
	return Config{
		Threshold:  3000,
		PageSize:   100,
		BlockDelay: Duration(2 * time.Second),
		LogPath:    "blocked_users_log.csv",
		Listen:     ":8090",
	}
}

// Load reads path over the defaults. A missing file is not an error when
// path is empty; env variables fill in credentials either way.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := os.Getenv("SKYWALL_IDENTIFIER"); v != "" && cfg.Identifier == "" {
		cfg.Identifier = v
	}
	if v := os.Getenv("SKYWALL_APP_PASSWORD"); v != "" && cfg.AppPassword == "" {
		cfg.AppPassword = v
	}

	return cfg, nil
}

// Validate checks the configuration before any network call is made.
func (c *Config) Validate() error {
	if c.Identifier == "" {
		return &ConfigError{Field: "identifier", Reason: "is required"}
	}
	if c.AppPassword == "" {
		return &ConfigError{Field: "app_password", Reason: "is required"}
	}
	if c.Threshold < 1 {
		return &ConfigError{Field: "threshold", Reason: "must be at least 1"}
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return &ConfigError{Field: "page_size", Reason: "must be within [1, 100]"}
	}
	if c.MaxFollowers < 0 {
		return &ConfigError{Field: "max_followers", Reason: "must not be negative"}
	}
	if c.BlockDelay < 0 {
		return &ConfigError{Field: "block_delay", Reason: "must not be negative"}
	}
	if c.LogPath == "" {
		return &ConfigError{Field: "log_path", Reason: "is required"}
	}
	return nil
}
