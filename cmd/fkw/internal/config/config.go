// Package config loads the fkw command line configuration file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/RyanBlaney/fkw-sonar/detection"
	"github.com/RyanBlaney/fkw-sonar/logging"
	spcfg "github.com/RyanBlaney/fkw-sonar/spectrogram/config"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given
const DefaultPath = "fkw.yaml"

type Config struct {
	Spectrogram spcfg.Config            `yaml:"spectrogram"`
	Detector    detection.CommandConfig `yaml:"detector"`
	Pipeline    PipelineConfig          `yaml:"pipeline"`
	Logging     LoggingConfig           `yaml:"logging"`
}

type PipelineConfig struct {
	Workers     int  `yaml:"workers"`
	SaveReports bool `yaml:"save_reports"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Color bool   `yaml:"color"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Spectrogram: spcfg.DefaultConfig(),
		Detector:    *detection.DefaultCommandConfig(),
		Pipeline: PipelineConfig{
			Workers:     1,
			SaveReports: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// LoadIfExists is Load, except that a missing file yields the defaults
func LoadIfExists(path string) (*Config, error) {
	config, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

func (c *Config) Validate() error {
	if err := c.Spectrogram.Validate(); err != nil {
		return fmt.Errorf("spectrogram config: %w", err)
	}

	if err := c.Detector.Validate(); err != nil {
		return fmt.Errorf("detector config: %w", err)
	}

	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func (p *PipelineConfig) Validate() error {
	if p.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", p.Workers)
	}
	return nil
}

func (l *LoggingConfig) Validate() error {
	if _, err := logging.ParseLevel(l.Level); err != nil {
		return err
	}
	return nil
}

// Logger builds the logger described by l. Everything goes to stderr so
// stdout carries command output only.
func (l *LoggingConfig) Logger() logging.Logger {
	level, err := logging.ParseLevel(l.Level)
	if err != nil {
		level = logging.InfoLevel
	}
	return logging.NewLogger(os.Stderr, os.Stderr, level)
}
