package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/lumen/pkg/lumen/internalerr"
	"github.com/cognicore/lumen/pkg/lumen/surrogate"
)

// Config is the YAML configuration surface of the explainer and its
// companion tools.
type Config struct {
	KernelWidth      float64  `yaml:"kernel_width"`
	FeatureSelection string   `yaml:"feature_selection"`
	Positional       bool     `yaml:"positional"`
	ClassNames       []string `yaml:"class_names"`
	NumSamples       int      `yaml:"num_samples"`
	NumFeatures      int      `yaml:"num_features"`
	Verbose          bool     `yaml:"verbose"`

	// RandomSeed, when set, makes neighborhood sampling reproducible.
	RandomSeed *int64 `yaml:"random_seed"`

	// Classifier is the remote probability endpoint used by cmd tools.
	Classifier ClassifierConfig `yaml:"classifier"`

	// StorePath is the SQLite file for persisted explanations; empty
	// disables persistence.
	StorePath string `yaml:"store_path"`
}

// ClassifierConfig points at an HTTP classifier.
type ClassifierConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		KernelWidth:      25,
		FeatureSelection: string(surrogate.SelectionAuto),
		NumSamples:       5000,
		NumFeatures:      10,
	}
}

// Load reads a YAML config file, filling unset fields with defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if c.KernelWidth <= 0 {
		return fmt.Errorf("%w: kernel_width must be positive, got %v",
			internalerr.ErrInvalidConfig, c.KernelWidth)
	}
	if c.NumSamples < 1 {
		return fmt.Errorf("%w: num_samples must be at least 1, got %d",
			internalerr.ErrInvalidConfig, c.NumSamples)
	}
	if c.NumFeatures < 1 {
		return fmt.Errorf("%w: num_features must be at least 1, got %d",
			internalerr.ErrInvalidConfig, c.NumFeatures)
	}
	switch surrogate.SelectionMode(c.FeatureSelection) {
	case surrogate.SelectionAuto, surrogate.SelectionForward, surrogate.SelectionLassoPath,
		surrogate.SelectionHighestWeights, surrogate.SelectionNone:
	default:
		return fmt.Errorf("%w: unknown feature_selection %q",
			internalerr.ErrInvalidConfig, c.FeatureSelection)
	}
	return nil
}
