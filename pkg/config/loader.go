package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stephencookdev/zj-status-sidebar/pkg/paths"
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a config with every field at its default value. Used when
// no config file exists, which is the common case.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// LoadOrDefault loads the config from the standard path, falling back to
// defaults if the file is missing or malformed. A broken config file must
// never prevent the bar from starting.
func LoadOrDefault() *Config {
	cfg, err := LoadConfig(paths.ConfigPath())
	if err != nil {
		return Default()
	}
	return cfg
}

// SaveConfig writes the config to the specified path
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Alerts.ExpiryTicks <= 0 {
		cfg.Alerts.ExpiryTicks = 5
	}
	if cfg.Alerts.SuccessColor == "" {
		cfg.Alerts.SuccessColor = "#27ae60"
	}
	if cfg.Alerts.FailureColor == "" {
		cfg.Alerts.FailureColor = "#e74c3c"
	}
	if cfg.Alerts.PendingColor == "" {
		cfg.Alerts.PendingColor = "#f39c12"
	}
	if cfg.Bar.Separator == "" {
		cfg.Bar.Separator = " "
	}
	if cfg.Bar.TruncationIndicator == "" {
		cfg.Bar.TruncationIndicator = "…"
	}
	if cfg.Bar.CollapseGlyph == "" {
		cfg.Bar.CollapseGlyph = "▐"
	}
	if cfg.Layouts.Expanded == "" {
		cfg.Layouts.Expanded = "zj-status-expanded"
	}
	if cfg.Layouts.Collapsed == "" {
		cfg.Layouts.Collapsed = "zj-status-collapsed"
	}
	if cfg.Theme.Fg == "" {
		cfg.Theme.Fg = "#ffffff"
	}
	if cfg.Theme.Bg == "" {
		cfg.Theme.Bg = "#333333"
	}
	if cfg.Theme.ActiveFg == "" {
		cfg.Theme.ActiveFg = "#000000"
	}
	if cfg.Theme.ActiveBg == "" {
		cfg.Theme.ActiveBg = "#ffffff"
	}
	if cfg.Theme.NormalMode == "" {
		cfg.Theme.NormalMode = "#27ae60"
	}
	if cfg.Theme.LockedMode == "" {
		cfg.Theme.LockedMode = "#9b59b6"
	}
	if cfg.Theme.OtherMode == "" {
		cfg.Theme.OtherMode = "#f39c12"
	}
}
