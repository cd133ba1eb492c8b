// Package config loads the daemon-level configuration for the COM runtime:
// tick period, CAN interface name, log level, and which I-PDU groups to
// autostart. This is deliberately distinct from signal/PDU configuration,
// which stays the integrator's responsibility and never flows through here.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon's own configuration, loaded from an optional YAML
// file and then overridden by CLI flags, flags taking highest priority.
type Config struct {
	TickInterval    time.Duration `yaml:"tick_interval"`
	CANInterface    string        `yaml:"can_interface"`
	LogLevel        string        `yaml:"log_level"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	AutostartGroups []int         `yaml:"autostart_groups"`
}

// Default returns the baseline configuration used when no file is given or
// the file doesn't exist.
func Default() *Config {
	return &Config{
		TickInterval: 10 * time.Millisecond,
		CANInterface: "can0",
		LogLevel:     "info",
		MetricsAddr:  ":9110",
	}
}

// Load reads cfg from a YAML file at path, layered over Default(). A
// missing file is not an error: Load simply falls back to defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}
