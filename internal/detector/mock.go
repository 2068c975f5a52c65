package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It returns fixed synthetic hands without running inference.
type MockDetector struct {
	hands  []HandLandmarks
	err    error
	calls  int
	closed bool
}

// NewMockDetector creates a new MockDetector returning the given hands.
func NewMockDetector(hands ...HandLandmarks) *MockDetector {
	return &MockDetector{hands: hands}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands ...HandLandmarks) {
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	return m.closed
}

// Close marks the mock as closed.
func (m *MockDetector) Close() error {
	m.closed = true
	return nil
}

// OpenPalmLandmarks returns an upright right hand with all five fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	h := HandLandmarks{Handedness: HandRight, Score: 0.95}

	h.Points[Wrist] = Point3D{X: 0.5, Y: 0.8}

	// Thumb out to the side
	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	h.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	h.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	h.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	h.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68}
	h.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55}
	h.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45}
	h.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35}

	h.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66}
	h.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52}
	h.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40}
	h.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28}

	h.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68}
	h.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55}
	h.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45}
	h.Points[RingTip] = Point3D{X: 0.42, Y: 0.35}

	h.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70}
	h.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60}
	h.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50}
	h.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42}

	return h
}

// FistLandmarks returns an upright right hand with every finger curled and
// the thumb folded across the palm.
func FistLandmarks() HandLandmarks {
	h := HandLandmarks{Handedness: HandRight, Score: 0.93}

	h.Points[Wrist] = Point3D{X: 0.5, Y: 0.8}

	h.Points[ThumbCMC] = Point3D{X: 0.56, Y: 0.76, Z: -0.01}
	h.Points[ThumbMCP] = Point3D{X: 0.60, Y: 0.71, Z: -0.02}
	h.Points[ThumbIP] = Point3D{X: 0.57, Y: 0.67, Z: -0.04}
	h.Points[ThumbTip] = Point3D{X: 0.53, Y: 0.66, Z: -0.05}

	h.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.62, Z: -0.02}
	h.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.58, Z: -0.05}
	h.Points[IndexDIP] = Point3D{X: 0.54, Y: 0.63, Z: -0.06}
	h.Points[IndexTip] = Point3D{X: 0.53, Y: 0.66, Z: -0.05}

	h.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.61, Z: -0.02}
	h.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.57, Z: -0.05}
	h.Points[MiddleDIP] = Point3D{X: 0.49, Y: 0.62, Z: -0.06}
	h.Points[MiddleTip] = Point3D{X: 0.49, Y: 0.65, Z: -0.05}

	h.Points[RingMCP] = Point3D{X: 0.45, Y: 0.62, Z: -0.02}
	h.Points[RingPIP] = Point3D{X: 0.45, Y: 0.58, Z: -0.05}
	h.Points[RingDIP] = Point3D{X: 0.45, Y: 0.63, Z: -0.06}
	h.Points[RingTip] = Point3D{X: 0.45, Y: 0.66, Z: -0.05}

	h.Points[PinkyMCP] = Point3D{X: 0.41, Y: 0.65, Z: -0.02}
	h.Points[PinkyPIP] = Point3D{X: 0.41, Y: 0.62, Z: -0.04}
	h.Points[PinkyDIP] = Point3D{X: 0.41, Y: 0.66, Z: -0.05}
	h.Points[PinkyTip] = Point3D{X: 0.41, Y: 0.68, Z: -0.04}

	return h
}

// PointingLandmarks returns an upright right hand with only the index finger extended.
func PointingLandmarks() HandLandmarks {
	h := FistLandmarks()
	h.Score = 0.91

	h.Points[IndexPIP] = Point3D{X: 0.56, Y: 0.50}
	h.Points[IndexDIP] = Point3D{X: 0.56, Y: 0.42}
	h.Points[IndexTip] = Point3D{X: 0.57, Y: 0.34}

	return h
}

// Mirror returns the hand reflected horizontally, as seen by an unmirrored
// camera for the opposite hand. The handedness label is swapped.
func Mirror(h HandLandmarks) HandLandmarks {
	out := h
	for i := range out.Points {
		out.Points[i].X = 1 - out.Points[i].X
	}
	switch h.Handedness {
	case HandLeft:
		out.Handedness = HandRight
	case HandRight:
		out.Handedness = HandLeft
	}
	return out
}
