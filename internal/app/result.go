package app

import (
	"time"

	"github.com/ayusman/handpose/internal/handpose"
	"github.com/ayusman/handpose/internal/store"
)

// Result is the analysis of one frame.
type Result struct {
	Frame      int                   `json:"frame"`
	Time       time.Time             `json:"time"`
	Hands      int                   `json:"hands"`
	Labels     []string              `json:"labels,omitempty"` // handedness of every detected hand
	Handedness string                `json:"handedness,omitempty"`
	Landmarks  handpose.LandmarkSet  `json:"landmarks,omitempty"`
	Box        handpose.BoundingBox  `json:"box"`
	Fingers    handpose.FingerState  `json:"fingers"`
	Raised     int                   `json:"raised"`
	Distance   *handpose.Measurement `json:"distance,omitempty"`
}

// HasHand reports whether a hand was extracted from the frame.
func (r Result) HasHand() bool {
	return len(r.Landmarks) > 0
}

// Observation converts r into a store row for session sessionID.
func (r Result) Observation(sessionID string) store.Observation {
	o := store.Observation{
		SessionID:  sessionID,
		FrameIndex: r.Frame,
		CapturedAt: r.Time,
		Hands:      r.Hands,
		Handedness: r.Handedness,
		Fingers:    r.Fingers,
		Box:        r.Box,
		Landmarks:  r.Landmarks,
	}
	if r.Distance != nil {
		d := r.Distance.Length
		o.Distance = &d
	}
	return o
}
