// Package config loads the YAML configuration of the chatdet command. Flags
// given on the command line override the values loaded here.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/shabbyrobe/chatdet"
	"gopkg.in/yaml.v3"
)

const (
	DefaultOrder         = 5
	DefaultSmoothing     = 1.0
	DefaultAlphabet      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	DefaultApproxA       = 8
	DefaultApproxB       = 64
	DefaultScalingFactor = 2
	DefaultTextColumn    = "text"
	DefaultLabelColumn   = "label"
)

// Config represents the command configuration, loaded from a YAML file.
type Config struct {
	// Order is the number of preceding symbols used as context.
	Order int `yaml:"order"`

	// Smoothing is the additive smoothing factor.
	Smoothing float32 `yaml:"smoothing"`

	// Alphabet lists every accepted symbol. With IgnoreCase it is upper-cased
	// on load.
	Alphabet string `yaml:"alphabet"`

	IgnoreCase bool `yaml:"ignore-case"`

	Approximate Approximate `yaml:"approximate"`

	Columns Columns `yaml:"columns"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug"`

	// LogFile sends logs to a rotating file instead of stderr.
	LogFile string `yaml:"log-file"`
}

// Approximate configures approximate counting.
type Approximate struct {
	Enabled       bool   `yaml:"enabled"`
	A             uint32 `yaml:"a"`
	B             uint32 `yaml:"b"`
	ScalingFactor uint8  `yaml:"scaling-factor"`

	// Seed fixes the random source; zero seeds from the clock.
	Seed int64 `yaml:"seed"`
}

// Columns names the fields read from tabular input.
type Columns struct {
	Text  string `yaml:"text"`
	Label string `yaml:"label"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Order:     DefaultOrder,
		Smoothing: DefaultSmoothing,
		Alphabet:  DefaultAlphabet,
		Approximate: Approximate{
			A:             DefaultApproxA,
			B:             DefaultApproxB,
			ScalingFactor: DefaultScalingFactor,
		},
		Columns: Columns{
			Text:  DefaultTextColumn,
			Label: DefaultLabelColumn,
		},
	}
}

// LoadConfig reads path on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	return LoadConfigOptional(path, false)
}

// LoadConfigOptional is LoadConfig, except that a missing file yields the
// defaults when optional is set.
func LoadConfigOptional(path string, optional bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			cfg.Sanitize()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Sanitize normalizes string fields and folds the alphabet when case is
// ignored. Zero values fall back to defaults.
func (cfg *Config) Sanitize() {
	if cfg == nil {
		return
	}
	cfg.Columns.Text = strings.TrimSpace(cfg.Columns.Text)
	cfg.Columns.Label = strings.TrimSpace(cfg.Columns.Label)
	if cfg.Columns.Text == "" {
		cfg.Columns.Text = DefaultTextColumn
	}
	if cfg.Columns.Label == "" {
		cfg.Columns.Label = DefaultLabelColumn
	}
	if cfg.IgnoreCase {
		alpha := chatdet.NewAlphabet(cfg.Alphabet)
		cfg.Alphabet = alpha.Fold().String()
	}
	cfg.LogFile = strings.TrimSpace(cfg.LogFile)
}

// Validate reports the first setting that cannot build a model.
func (cfg *Config) Validate() error {
	if cfg.Order < 1 {
		return &chatdet.ConfigError{Field: "order", Reason: "must be at least 1"}
	}
	if cfg.Smoothing < 0 || math.IsNaN(float64(cfg.Smoothing)) {
		return &chatdet.ConfigError{Field: "smoothing", Reason: "must be a non-negative number"}
	}
	if cfg.Alphabet == "" {
		return &chatdet.ConfigError{Field: "alphabet", Reason: "must not be empty"}
	}
	if cfg.Approximate.Enabled {
		if cfg.Approximate.A < 1 {
			return &chatdet.ConfigError{Field: "a", Reason: "must be at least 1"}
		}
		if cfg.Approximate.ScalingFactor < 1 {
			return &chatdet.ConfigError{Field: "scaling factor", Reason: "must be at least 1"}
		}
	}
	return nil
}

// ModelConfig converts the settings into a model configuration.
func (cfg *Config) ModelConfig() chatdet.ModelConfig {
	return chatdet.ModelConfig{
		Order:      cfg.Order,
		Smoothing:  cfg.Smoothing,
		Alphabet:   chatdet.NewAlphabet(cfg.Alphabet),
		IgnoreCase: cfg.IgnoreCase,
	}
}
