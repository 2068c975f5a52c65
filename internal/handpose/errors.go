package handpose

import "errors"

var (
	// ErrEmptyFrame is returned for a nil or empty frame.
	ErrEmptyFrame = errors.New("empty frame")

	// ErrHandIndex is returned when a hand index is outside the last detection.
	ErrHandIndex = errors.New("hand index out of range")

	// ErrNoLandmarks is returned when finger or distance queries run before
	// landmarks were extracted for the current frame.
	ErrNoLandmarks = errors.New("no landmarks extracted")

	// ErrLandmarkID is returned for a landmark ID outside 0-20.
	ErrLandmarkID = errors.New("landmark id out of range")
)
