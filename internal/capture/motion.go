package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Frame differencing parameters.
const (
	blurKernel    = 21
	diffThreshold = 25
)

// MotionGate decides whether a frame changed enough from the previous one
// to be worth running hand detection on.
//
// Frames are converted to gray, blurred, and compared against the previous
// frame; the share of pixels whose difference exceeds diffThreshold is
// compared with the gate threshold (a percentage). A threshold of 0 opens
// the gate for every frame.
type MotionGate struct {
	threshold   float64
	prev        gocv.Mat
	initialized bool
	mu          sync.Mutex
}

// NewMotionGate creates a gate with the given percentage threshold.
func NewMotionGate(threshold float64) *MotionGate {
	if threshold < 0 {
		threshold = 0
	}
	return &MotionGate{threshold: threshold, prev: gocv.NewMat()}
}

// Enabled reports whether the gate filters frames at all.
func (m *MotionGate) Enabled() bool {
	return m.threshold > 0
}

// Open reports whether frame should be analyzed, and the percentage of
// changed pixels. The first frame after construction or Reset always opens
// the gate so a hand already in view is picked up.
func (m *MotionGate) Open(frame *gocv.Mat) (bool, float64) {
	if !m.Enabled() {
		return true, 0
	}
	if frame == nil || frame.Empty() {
		return false, 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}
	gocv.GaussianBlur(gray, &gray, image.Pt(blurKernel, blurKernel), 0, 0, gocv.BorderDefault)

	if !m.initialized || m.prev.Rows() != gray.Rows() || m.prev.Cols() != gray.Cols() {
		gray.CopyTo(&m.prev)
		m.initialized = true
		return true, 100
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(gray, m.prev, &diff)
	gocv.Threshold(diff, &diff, diffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100
	gray.CopyTo(&m.prev)

	return changed > m.threshold, changed
}

// Reset forgets the previous frame.
func (m *MotionGate) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = false
}

// Close releases the stored frame.
func (m *MotionGate) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prev.Close()
	m.prev = gocv.NewMat()
	m.initialized = false
}
