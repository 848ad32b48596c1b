package app

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all the necessary configuration for an App instance to run.
// Environment variables provide defaults; CLI flags override them.
type Config struct {
	ManifestPath string `env:"SCROLLSTORY_MANIFEST"`

	LogFormat string `env:"SCROLLSTORY_LOG_FORMAT" envDefault:"text"`
	LogLevel  string `env:"SCROLLSTORY_LOG_LEVEL" envDefault:"info"`

	ReducedMotion bool `env:"SCROLLSTORY_REDUCED_MOTION" envDefault:"false"`

	// Simulated layout for the headless sweep.
	SectionHeight  float64 `env:"SCROLLSTORY_SECTION_HEIGHT" envDefault:"1000"`
	ViewportHeight float64 `env:"SCROLLSTORY_VIEWPORT_HEIGHT" envDefault:"800"`
	ScrollStep     float64 `env:"SCROLLSTORY_SCROLL_STEP" envDefault:"40"`
}

// ConfigFromEnv builds a Config populated from environment variables, falling
// back to the declared defaults.
func ConfigFromEnv() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

// NewConfig validates a fully assembled Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ManifestPath == "" {
		return nil, errors.New("ManifestPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
