package handpose

import (
	"fmt"

	"github.com/ayusman/handpose/internal/detector"
	"github.com/ayusman/handpose/internal/overlay"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Annotation sizes in pixels.
const (
	DefaultBoxMargin = 20
	TipMarkerRadius  = 10
	DistanceRadius   = 15
	DistanceLine     = 3
	BoxThickness     = 2
)

// Config holds analyzer options.
type Config struct {
	// ThumbRule selects the thumb classification heuristic.
	ThumbRule ThumbRule `yaml:"thumb_rule"`
	// BoxMargin grows the drawn bounding box on every side.
	BoxMargin int `yaml:"box_margin"`
}

// DefaultConfig returns the analyzer defaults.
func DefaultConfig() Config {
	return Config{
		ThumbRule: ThumbRuleFixed,
		BoxMargin: DefaultBoxMargin,
	}
}

// Analyzer runs hand detection on frames and answers landmark queries about
// the most recent frame.
//
// Calls form a per-frame sequence: Detect, then ExtractLandmarks, then any
// number of FingersUp and FindDistance. Detect discards the previous frame's
// hand. An Analyzer is not safe for concurrent use.
type Analyzer struct {
	detector  detector.Detector
	annotator overlay.Annotator
	config    Config
	log       *zap.Logger

	hands   []detector.HandLandmarks
	current Hand
}

// New creates an Analyzer. A nil annotator disables drawing regardless of
// the annotate arguments.
func New(det detector.Detector, ann overlay.Annotator, cfg Config, log *zap.Logger) *Analyzer {
	if cfg.BoxMargin < 0 {
		cfg.BoxMargin = 0
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{
		detector:  det,
		annotator: ann,
		config:    cfg,
		log:       log.Named("analyzer"),
	}
}

// Detect runs the hand detector on frame and keeps its output for
// ExtractLandmarks. When annotate is set the skeleton of every hand is drawn
// on frame. It returns the number of hands found; zero hands is not an error.
func (a *Analyzer) Detect(frame *gocv.Mat, annotate bool) (int, error) {
	a.hands = nil
	a.current = Hand{}

	if frame == nil || frame.Empty() {
		return 0, ErrEmptyFrame
	}

	hands, err := a.detector.Detect(frame)
	if err != nil {
		return 0, fmt.Errorf("detect hands: %w", err)
	}
	a.hands = hands

	if annotate && a.annotator != nil {
		for _, h := range hands {
			a.annotator.DrawLandmarks(frame, h)
		}
	}

	a.log.Debug("detected hands", zap.Int("count", len(hands)))
	return len(hands), nil
}

// ExtractLandmarks converts hand handIndex of the last detection to pixel
// coordinates of frame and computes its bounding box. The result becomes the
// current hand for FingersUp and FindDistance.
//
// With no hands detected it returns an empty set and the zero box. An index
// outside the detection yields ErrHandIndex.
func (a *Analyzer) ExtractLandmarks(frame *gocv.Mat, handIndex int, annotate bool) (LandmarkSet, BoundingBox, error) {
	a.current = Hand{}

	if frame == nil || frame.Empty() {
		return nil, BoundingBox{}, ErrEmptyFrame
	}
	if len(a.hands) == 0 {
		return nil, BoundingBox{}, nil
	}
	if handIndex < 0 || handIndex >= len(a.hands) {
		return nil, BoundingBox{}, fmt.Errorf("%w: %d, detected %d", ErrHandIndex, handIndex, len(a.hands))
	}

	hand := a.hands[handIndex]
	set := ToPixels(hand, frame.Cols(), frame.Rows())
	box, _ := Bounds(set)

	if annotate && a.annotator != nil {
		tip := set[detector.IndexTip].Point()
		a.annotator.DrawCircle(frame, tip, TipMarkerRadius, overlay.Magenta, true)
		a.annotator.DrawRect(frame, box.Rect(a.config.BoxMargin), overlay.Green, BoxThickness)
	}

	a.current = Hand{
		Landmarks:  set,
		Box:        box,
		Handedness: hand.Handedness,
		Score:      hand.Score,
	}
	return set.Clone(), box, nil
}

// FingersUp classifies the fingers of the current hand.
// It returns ErrNoLandmarks when ExtractLandmarks produced no hand.
func (a *Analyzer) FingersUp() (FingerState, error) {
	return FingersUp(a.current.Landmarks, a.config.ThumbRule, a.current.Handedness)
}

// FindDistance measures the distance between two landmarks of the current
// hand. When annotate is set and frame is non-nil, the segment, its ends and
// its midpoint are drawn.
func (a *Analyzer) FindDistance(frame *gocv.Mat, id1, id2 int, annotate bool) (Measurement, error) {
	m, err := Distance(a.current.Landmarks, id1, id2)
	if err != nil {
		return Measurement{}, err
	}

	if annotate && a.annotator != nil && frame != nil && !frame.Empty() {
		a.annotator.DrawLine(frame, m.P1, m.P2, overlay.Magenta, DistanceLine)
		a.annotator.DrawCircle(frame, m.P1, DistanceRadius, overlay.Magenta, true)
		a.annotator.DrawCircle(frame, m.P2, DistanceRadius, overlay.Magenta, true)
		a.annotator.DrawCircle(frame, m.Mid, DistanceRadius, overlay.Red, true)
	}
	return m, nil
}

// Hands returns a copy of the last detection.
func (a *Analyzer) Hands() []detector.HandLandmarks {
	if a.hands == nil {
		return nil
	}
	out := make([]detector.HandLandmarks, len(a.hands))
	copy(out, a.hands)
	return out
}

// Current returns a copy of the current hand. Its Landmarks are nil when no
// hand was extracted.
func (a *Analyzer) Current() Hand {
	h := a.current
	h.Landmarks = h.Landmarks.Clone()
	return h
}

// Close releases the detector.
func (a *Analyzer) Close() error {
	return a.detector.Close()
}
