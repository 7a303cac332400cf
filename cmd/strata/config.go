package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the strata configuration file
// (~/.config/strata/config.yaml). Pointer fields distinguish "not set"
// from zero values so CLI flags keep precedence.
type Config struct {
	Workers   *int   `yaml:"workers"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Quantization defaults
	Criterion string `yaml:"criterion"`
	RulesPath string `yaml:"rules_path"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "strata", "config.yaml")
}

func loadConfig() Config {
	var cfg Config
	path := configPath()
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	// A malformed config file falls back to defaults rather than
	// blocking the run.
	_ = yaml.Unmarshal(data, &cfg)
	return cfg
}
