package core

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, "port: 9000\n")

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if config.Port != 9000 {
		t.Errorf("expected port 9000, got %d", config.Port)
	}
	if config.MaxImages != 50 {
		t.Errorf("expected default maxImages 50, got %d", config.MaxImages)
	}
	if config.Playback.DefaultIntervalMs != 100 {
		t.Errorf("expected default interval 100ms, got %d", config.Playback.DefaultIntervalMs)
	}
	if config.Playback.FrameThresholdMs != 32 {
		t.Errorf("expected default frame threshold 32ms, got %d", config.Playback.FrameThresholdMs)
	}
	if config.Session.DebounceMs != 400 {
		t.Errorf("expected default debounce 400ms, got %d", config.Session.DebounceMs)
	}
	if config.Session.Key == "" {
		t.Errorf("expected default session key")
	}
}

func TestLoadConfig_FullConfig(t *testing.T) {
	path := writeConfigFile(t, `
port: 8081
maxImages: 10
toggleKey: "p"
store:
  type: sqlite
  connectionString: /tmp/goslide.db
playback:
  defaultIntervalMs: 250
  frameThresholdMs: 20
session:
  debounceMs: 150
  key: custom:session
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if config.MaxImages != 10 {
		t.Errorf("expected maxImages 10, got %d", config.MaxImages)
	}
	if config.Store.Type != "sqlite" {
		t.Errorf("expected sqlite store, got %q", config.Store.Type)
	}
	if config.Playback.DefaultIntervalMs != 250 {
		t.Errorf("expected interval 250, got %d", config.Playback.DefaultIntervalMs)
	}
	if config.Session.Key != "custom:session" {
		t.Errorf("expected custom session key, got %q", config.Session.Key)
	}
	if config.ToggleKey != "p" {
		t.Errorf("expected toggle key p, got %q", config.ToggleKey)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "port: [not a number\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for invalid YAML")
	}
}

func TestLoadConfig_RejectsStoreWithoutConnectionString(t *testing.T) {
	path := writeConfigFile(t, "store:\n  type: redis\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for store without connection string")
	}
}

func TestLoadConfig_RejectsNegativeMaxImages(t *testing.T) {
	path := writeConfigFile(t, "maxImages: -1\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for negative maxImages")
	}
}
