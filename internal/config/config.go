package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StoreConfig selects and parameterizes the native store adapter.
type StoreConfig struct {
	// Kind is the adapter family: "provider" (row store) or "eventkind"
	// (object store).
	Kind string `yaml:"kind" json:"kind"`

	// DBPath is the sqlite file backing the provider family. ":memory:"
	// gives an ephemeral store.
	DBPath string `yaml:"db_path" json:"db_path"`

	// Granted simulates the provider family's two-state permission.
	Granted bool `yaml:"granted" json:"granted"`

	// Restricted simulates parental-control restriction on the
	// eventkind family.
	Restricted bool `yaml:"restricted" json:"restricted"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the boundary API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone re-attached to instants on the
	// caller-facing side (e.g. "Europe/Berlin").
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug/info/warn/error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Store StoreConfig `yaml:"store" json:"store"`

	// RemindCron is a cron-style schedule (e.g. "*/5 * * * *") driving
	// the reminder sweep. Empty disables the sweeper.
	RemindCron string `yaml:"remind_cron" json:"remind_cron"`

	// RemindHorizonMinutes is how far ahead each sweep looks.
	RemindHorizonMinutes int `yaml:"remind_horizon_minutes" json:"remind_horizon_minutes"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   "127.0.0.1:8080",
		Timezone: "UTC",
		LogLevel: "info",
		Store: StoreConfig{
			Kind:    "provider",
			DBPath:  "calbridge.db",
			Granted: true,
		},
		RemindCron:           "*/5 * * * *",
		RemindHorizonMinutes: 60,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	switch c.Store.Kind {
	case "provider", "eventkind":
		// ok
	default:
		c.Store.Kind = "provider"
	}
	if c.Store.Kind == "provider" && c.Store.DBPath == "" {
		c.Store.DBPath = "calbridge.db"
	}
	if c.RemindHorizonMinutes <= 0 {
		c.RemindHorizonMinutes = 60
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - If the file exists, it is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with
// 0600 permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calbridge-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
