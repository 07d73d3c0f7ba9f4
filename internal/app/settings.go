package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Settings is the optional settings file. Zero values mean "not set".
type Settings struct {
	Strategy    string `json:"strategy" yaml:"strategy" toml:"strategy"`
	PointerSize int64  `json:"pointer_size" yaml:"pointer_size" toml:"pointer_size"`
	Workers     int    `json:"workers" yaml:"workers" toml:"workers"`
	Output      string `json:"output" yaml:"output" toml:"output"`
	LogFormat   string `json:"log_format" yaml:"log_format" toml:"log_format"`
	LogLevel    string `json:"log_level" yaml:"log_level" toml:"log_level"`
	MetricsOut  string `json:"metrics_out" yaml:"metrics_out" toml:"metrics_out"`
}

// LoadSettings reads a settings file; the extension selects the format.
func LoadSettings(path string) (Settings, error) {
	var s Settings
	b, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read settings %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &s)
	case ".json":
		err = json.Unmarshal(b, &s)
	case ".toml":
		err = toml.Unmarshal(b, &s)
	default:
		return s, fmt.Errorf("unsupported settings format: %s", filepath.Ext(path))
	}
	if err != nil {
		return s, fmt.Errorf("failed to decode settings %s: %w", path, err)
	}
	return s, nil
}

// Merge fills every unset field of cfg from s.
func (s Settings) Merge(cfg *Config) {
	if cfg.Strategy == "" {
		cfg.Strategy = s.Strategy
	}
	if cfg.PointerSize == 0 {
		cfg.PointerSize = s.PointerSize
	}
	if cfg.Workers == 0 {
		cfg.Workers = s.Workers
	}
	if cfg.Output == "" {
		cfg.Output = s.Output
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = s.LogFormat
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = s.LogLevel
	}
	if cfg.MetricsOut == "" {
		cfg.MetricsOut = s.MetricsOut
	}
}
