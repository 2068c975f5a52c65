package handpose

import (
	"fmt"
	"image"
	"math"

	"github.com/ayusman/handpose/internal/detector"
	"gopkg.in/yaml.v3"
)

// ThumbRule selects how the thumb is classified as extended.
type ThumbRule int

const (
	// ThumbRuleFixed flags the thumb when its tip lies right of the MCP
	// joint. It assumes an upright, unmirrored right hand and misreads the
	// opposite hand or rotated poses.
	ThumbRuleFixed ThumbRule = iota

	// ThumbRuleHandedness flips the comparison for hands labeled "Left".
	ThumbRuleHandedness
)

// ParseThumbRule converts "fixed" or "handedness" to a ThumbRule.
func ParseThumbRule(s string) (ThumbRule, error) {
	switch s {
	case "", "fixed":
		return ThumbRuleFixed, nil
	case "handedness":
		return ThumbRuleHandedness, nil
	}
	return ThumbRuleFixed, fmt.Errorf("unknown thumb rule %q", s)
}

func (r ThumbRule) String() string {
	if r == ThumbRuleHandedness {
		return "handedness"
	}
	return "fixed"
}

// UnmarshalYAML accepts the names understood by ParseThumbRule.
func (r *ThumbRule) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	rule, err := ParseThumbRule(name)
	if err != nil {
		return err
	}
	*r = rule
	return nil
}

// MarshalYAML writes the rule by name.
func (r ThumbRule) MarshalYAML() (interface{}, error) {
	return r.String(), nil
}

// ToPixels converts normalized landmarks to pixel coordinates of a
// width x height frame, truncating toward zero.
func ToPixels(hand detector.HandLandmarks, width, height int) LandmarkSet {
	set := make(LandmarkSet, detector.NumLandmarks)
	for id, p := range hand.Points {
		set[id] = Landmark{
			ID: id,
			X:  int(p.X * float64(width)),
			Y:  int(p.Y * float64(height)),
		}
	}
	return set
}

// Bounds returns the min/max box over all landmarks, or the zero box and
// false for an empty set.
func Bounds(set LandmarkSet) (BoundingBox, bool) {
	if len(set) == 0 {
		return BoundingBox{}, false
	}

	box := BoundingBox{XMin: set[0].X, YMin: set[0].Y, XMax: set[0].X, YMax: set[0].Y}
	for _, l := range set[1:] {
		box.XMin = min(box.XMin, l.X)
		box.YMin = min(box.YMin, l.Y)
		box.XMax = max(box.XMax, l.X)
		box.YMax = max(box.YMax, l.Y)
	}
	return box, true
}

// FingersUp classifies each finger of set as extended or not.
//
// A finger other than the thumb is extended when its tip is above (smaller
// y) the joint two landmarks below it. The thumb compares x instead; see
// ThumbRule. handedness is only consulted by ThumbRuleHandedness.
func FingersUp(set LandmarkSet, rule ThumbRule, handedness string) (FingerState, error) {
	var state FingerState
	if len(set) == 0 {
		return state, ErrNoLandmarks
	}
	if len(set) != detector.NumLandmarks {
		return state, fmt.Errorf("%w: set has %d landmarks", ErrLandmarkID, len(set))
	}

	thumbTip := set[detector.TipIDs[Thumb]]
	thumbRef := set[detector.TipIDs[Thumb]-2]
	if rule == ThumbRuleHandedness && detector.IsLeft(handedness) {
		state[Thumb] = thumbTip.X < thumbRef.X
	} else {
		state[Thumb] = thumbTip.X > thumbRef.X
	}

	for finger := Index; finger <= Pinky; finger++ {
		tip := detector.TipIDs[finger]
		state[finger] = set[tip].Y < set[tip-2].Y
	}
	return state, nil
}

// Distance measures the Euclidean distance between landmarks id1 and id2.
// The midpoint is the floored average of the two positions.
func Distance(set LandmarkSet, id1, id2 int) (Measurement, error) {
	if len(set) == 0 {
		return Measurement{}, ErrNoLandmarks
	}
	for _, id := range []int{id1, id2} {
		if id < 0 || id >= len(set) {
			return Measurement{}, fmt.Errorf("%w: %d not in [0,%d)", ErrLandmarkID, id, len(set))
		}
	}

	p1, p2 := set[id1].Point(), set[id2].Point()
	return Measurement{
		Length: math.Hypot(float64(p2.X-p1.X), float64(p2.Y-p1.Y)),
		P1:     p1,
		P2:     p2,
		Mid:    image.Pt(floorDiv(p1.X+p2.X, 2), floorDiv(p1.Y+p2.Y, 2)),
	}, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
