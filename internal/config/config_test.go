package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "calbridge.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("first-run config mismatch (-want +got):\n%s", diff)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 0600", perm)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "calbridge.yaml")
	in := &Config{
		Listen:   "0.0.0.0:9999",
		Timezone: "Europe/Berlin",
		LogLevel: "debug",
		Store: StoreConfig{
			Kind:   "eventkind",
			DBPath: "unused.db",
		},
		RemindCron:           "0 * * * *",
		RemindHorizonMinutes: 120,
		BasicAuth:            &BasicAuthConfig{Username: "u", Password: "p"},
	}
	if err := Save(path, in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	cfg := &Config{Store: StoreConfig{Kind: "cloud"}}
	cfg.Normalize()

	if cfg.Listen == "" || cfg.Timezone == "" || cfg.LogLevel == "" {
		t.Errorf("defaults not filled: %+v", cfg)
	}
	if cfg.Store.Kind != "provider" {
		t.Errorf("Store.Kind = %q, want fallback to provider", cfg.Store.Kind)
	}
	if cfg.Store.DBPath == "" {
		t.Error("provider store left without a database path")
	}
	if cfg.RemindHorizonMinutes <= 0 {
		t.Errorf("RemindHorizonMinutes = %d", cfg.RemindHorizonMinutes)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "calbridge.yaml")
	if err := os.WriteFile(path, []byte("listen: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load succeeded on malformed yaml")
	}
}
