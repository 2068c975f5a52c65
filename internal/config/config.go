// Package config loads handpose settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ayusman/handpose/internal/capture"
	"github.com/ayusman/handpose/internal/detector"
	"github.com/ayusman/handpose/internal/handpose"
	"gopkg.in/yaml.v3"
)

// Config is the complete application configuration.
type Config struct {
	LogLevel    string `yaml:"log_level"`
	Development bool   `yaml:"development"`

	Detector detector.Config         `yaml:"detector"`
	Service  detector.ServiceOptions `yaml:"service"`
	Analyzer handpose.Config         `yaml:"analyzer"`
	Camera   capture.Config          `yaml:"camera"`
	Pipeline Pipeline                `yaml:"pipeline"`
	Server   Server                  `yaml:"server"`
	Store    Store                   `yaml:"store"`
}

// Pipeline tunes the per-frame loop.
type Pipeline struct {
	// HandIndex selects which detected hand is analyzed.
	HandIndex int `yaml:"hand_index"`
	// Annotate draws detections onto frames.
	Annotate bool `yaml:"annotate"`
	// MotionThreshold is the percentage of changed pixels needed to run
	// detection; 0 runs detection on every frame.
	MotionThreshold float64 `yaml:"motion_threshold"`
	// Measure is the landmark pair whose distance is reported each frame.
	Measure [2]int `yaml:"measure"`
}

// Server configures the HTTP server.
type Server struct {
	Addr string `yaml:"addr"`
}

// Store configures the SQLite database.
type Store struct {
	Path string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Detector: detector.DefaultConfig(),
		Service:  detector.ServiceOptions{IdleTimeout: detector.DefaultIdleTimeout},
		Analyzer: handpose.DefaultConfig(),
		Camera:   capture.DefaultConfig(),
		Pipeline: Pipeline{
			Annotate: true,
			Measure:  [2]int{detector.ThumbTip, detector.IndexTip},
		},
		Server: Server{Addr: ":8080"},
		Store:  Store{Path: defaultStorePath()},
	}
}

// Load reads path over the defaults and validates the result. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks every section.
func (c Config) Validate() error {
	var errs []error
	if err := c.Detector.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Pipeline.HandIndex < 0 || c.Pipeline.HandIndex >= c.Detector.MaxHands {
		errs = append(errs, fmt.Errorf("pipeline.hand_index %d outside [0,%d)", c.Pipeline.HandIndex, c.Detector.MaxHands))
	}
	for _, id := range c.Pipeline.Measure {
		if id < 0 || id >= detector.NumLandmarks {
			errs = append(errs, fmt.Errorf("pipeline.measure landmark %d outside [0,%d)", id, detector.NumLandmarks))
		}
	}
	if c.Pipeline.MotionThreshold < 0 || c.Pipeline.MotionThreshold > 100 {
		errs = append(errs, fmt.Errorf("pipeline.motion_threshold %g outside [0,100]", c.Pipeline.MotionThreshold))
	}
	if c.Analyzer.BoxMargin < 0 {
		errs = append(errs, fmt.Errorf("analyzer.box_margin must not be negative"))
	}
	return errors.Join(errs...)
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "handpose.db"
	}
	return filepath.Join(home, ".handpose", "handpose.db")
}
