package app

import (
	"errors"
	"fmt"

	"github.com/vk/memsched/internal/scheduler"
)

// Report formats.
const (
	OutputText = "text"
	OutputYAML = "yaml"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Path        string // program file or directory
	Strategy    string
	PointerSize int64
	Workers     int
	Output      string

	LogFormat  string
	LogLevel   string
	MetricsOut string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Path == "" {
		return nil, errors.New("Path is a required configuration field and cannot be empty")
	}
	if cfg.Strategy == "" {
		cfg.Strategy = scheduler.DefaultStrategy
	}
	if _, err := scheduler.Lookup(cfg.Strategy); err != nil {
		return nil, err
	}
	if cfg.PointerSize == 0 {
		cfg.PointerSize = 8
	}
	if cfg.PointerSize < 0 {
		return nil, fmt.Errorf("pointer size must be positive, got %d", cfg.PointerSize)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	switch cfg.Output {
	case "":
		cfg.Output = OutputText
	case OutputText, OutputYAML:
	default:
		return nil, fmt.Errorf("invalid output '%s': must be '%s' or '%s'", cfg.Output, OutputText, OutputYAML)
	}
	return &cfg, nil
}
