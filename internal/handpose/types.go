// Package handpose turns detected hand landmarks into pixel positions,
// bounding boxes, raised-finger flags and landmark distances.
package handpose

import (
	"image"
	"strings"
)

// Landmark is one hand keypoint in pixel coordinates.
type Landmark struct {
	ID int `json:"id"`
	X  int `json:"x"`
	Y  int `json:"y"`
}

// Point returns the landmark position as an image.Point.
func (l Landmark) Point() image.Point {
	return image.Pt(l.X, l.Y)
}

// LandmarkSet holds the landmarks of one hand indexed by landmark ID.
// A non-empty set always has exactly 21 entries.
type LandmarkSet []Landmark

// Clone returns a copy that shares no memory with s.
func (s LandmarkSet) Clone() LandmarkSet {
	if s == nil {
		return nil
	}
	out := make(LandmarkSet, len(s))
	copy(out, s)
	return out
}

// BoundingBox is the smallest axis-aligned rectangle around a hand, in pixels.
// The zero value means no hand.
type BoundingBox struct {
	XMin int `json:"x_min"`
	YMin int `json:"y_min"`
	XMax int `json:"x_max"`
	YMax int `json:"y_max"`
}

// Empty reports whether the box is the zero value.
func (b BoundingBox) Empty() bool {
	return b == BoundingBox{}
}

// Rect returns the box grown by margin pixels on every side.
func (b BoundingBox) Rect(margin int) image.Rectangle {
	return image.Rect(b.XMin-margin, b.YMin-margin, b.XMax+margin, b.YMax+margin)
}

// Finger positions within a FingerState.
const (
	Thumb = iota
	Index
	Middle
	Ring
	Pinky
)

// FingerState flags which fingers are extended, thumb first.
type FingerState [5]bool

// Count returns the number of extended fingers.
func (f FingerState) Count() int {
	n := 0
	for _, up := range f {
		if up {
			n++
		}
	}
	return n
}

// Mask packs the flags into bits, thumb in bit 0.
func (f FingerState) Mask() uint8 {
	var m uint8
	for i, up := range f {
		if up {
			m |= 1 << i
		}
	}
	return m
}

// FingerStateFromMask is the inverse of Mask.
func FingerStateFromMask(m uint8) FingerState {
	var f FingerState
	for i := range f {
		f[i] = m&(1<<i) != 0
	}
	return f
}

// String renders the flags as five 0/1 digits, e.g. "01100".
func (f FingerState) String() string {
	var b strings.Builder
	for _, up := range f {
		if up {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Measurement is the distance between two landmarks.
type Measurement struct {
	Length float64     `json:"length"`
	P1     image.Point `json:"p1"`
	P2     image.Point `json:"p2"`
	Mid    image.Point `json:"mid"`
}

// Hand is the analyzed hand kept between calls on the same frame.
type Hand struct {
	Landmarks  LandmarkSet `json:"landmarks"`
	Box        BoundingBox `json:"box"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}
