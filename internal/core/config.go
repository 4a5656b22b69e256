package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type StoreConfig struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

type PlaybackConfig struct {
	DefaultIntervalMs int `yaml:"defaultIntervalMs"`
	FrameThresholdMs  int `yaml:"frameThresholdMs"`
}

type SessionConfig struct {
	DebounceMs int    `yaml:"debounceMs"`
	Key        string `yaml:"key"`
}

type ServiceConfig struct {
	Port      int            `yaml:"port"`
	MaxImages int            `yaml:"maxImages"`
	ToggleKey string         `yaml:"toggleKey"`
	Store     StoreConfig    `yaml:"store"`
	Playback  PlaybackConfig `yaml:"playback"`
	Session   SessionConfig  `yaml:"session"`

	// Render size for SVG uploads lacking an explicit size
	SVGFallbackWidth  int `yaml:"svgFallbackWidth"`
	SVGFallbackHeight int `yaml:"svgFallbackHeight"`
}

// LoadConfig loads configuration from the specified YAML file and fills in
// defaults for anything left unset.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var config ServiceConfig
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a configuration with all defaults applied and no
// persistent store configured.
func DefaultConfig() *ServiceConfig {
	config := &ServiceConfig{}
	applyDefaults(config)
	return config
}

func applyDefaults(config *ServiceConfig) {
	if config.Port == 0 {
		config.Port = 8080
	}
	if config.MaxImages == 0 {
		config.MaxImages = 50
	}
	if config.Playback.DefaultIntervalMs == 0 {
		config.Playback.DefaultIntervalMs = 100
	}
	if config.Playback.FrameThresholdMs == 0 {
		config.Playback.FrameThresholdMs = 32
	}
	if config.Session.DebounceMs == 0 {
		config.Session.DebounceMs = 400
	}
	if config.Session.Key == "" {
		config.Session.Key = "goslide:session"
	}
	if config.SVGFallbackWidth == 0 {
		config.SVGFallbackWidth = 512
	}
	if config.SVGFallbackHeight == 0 {
		config.SVGFallbackHeight = 512
	}
}

func validateConfig(config *ServiceConfig) error {
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d out of range", config.Port)
	}
	if config.MaxImages < 1 {
		return fmt.Errorf("maxImages must be at least 1, got %d", config.MaxImages)
	}
	if config.Store.Type != "" && config.Store.ConnectionString == "" {
		return fmt.Errorf("store type %q configured without a connection string", config.Store.Type)
	}
	return nil
}
