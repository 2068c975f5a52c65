package detector

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid detector config")

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a BGR video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// StaticImageMode treats every frame as an unrelated image and disables tracking.
	StaticImageMode bool `yaml:"static_image_mode"`

	// MaxHands is the maximum number of hands to detect.
	MaxHands int `yaml:"max_hands"`

	// MinDetectionConf is the minimum detection confidence threshold (0.0-1.0).
	MinDetectionConf float64 `yaml:"min_detection_confidence"`

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64 `yaml:"min_tracking_confidence"`
}

// DefaultConfig returns a Config with the default thresholds.
func DefaultConfig() Config {
	return Config{
		StaticImageMode:  false,
		MaxHands:         2,
		MinDetectionConf: 0.3,
		MinTrackingConf:  0.5,
	}
}

// Validate checks that the configuration is usable by a detector.
func (c Config) Validate() error {
	if c.MaxHands < 1 {
		return fmt.Errorf("%w: max hands must be at least 1, got %d", ErrInvalidConfig, c.MaxHands)
	}
	if c.MinDetectionConf < 0 || c.MinDetectionConf > 1 {
		return fmt.Errorf("%w: detection confidence must be in [0,1], got %g", ErrInvalidConfig, c.MinDetectionConf)
	}
	if c.MinTrackingConf < 0 || c.MinTrackingConf > 1 {
		return fmt.Errorf("%w: tracking confidence must be in [0,1], got %g", ErrInvalidConfig, c.MinTrackingConf)
	}
	return nil
}
