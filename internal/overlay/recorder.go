package overlay

import (
	"image"
	"image/color"

	"github.com/ayusman/handpose/internal/detector"
	"gocv.io/x/gocv"
)

// Shape identifies a recorded draw call.
type Shape string

const (
	ShapeLandmarks Shape = "landmarks"
	ShapeRect      Shape = "rect"
	ShapeCircle    Shape = "circle"
	ShapeLine      Shape = "line"
)

// Op is one recorded draw call.
type Op struct {
	Shape     Shape
	Points    []image.Point
	Rect      image.Rectangle
	Radius    int
	Color     color.RGBA
	Thickness int
	Filled    bool
	Hand      *detector.HandLandmarks
}

// Recorder is an Annotator that records calls and leaves frames untouched.
type Recorder struct {
	Ops []Op
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) DrawLandmarks(frame *gocv.Mat, hand detector.HandLandmarks) {
	r.Ops = append(r.Ops, Op{Shape: ShapeLandmarks, Hand: &hand})
}

func (r *Recorder) DrawRect(frame *gocv.Mat, rect image.Rectangle, c color.RGBA, thickness int) {
	r.Ops = append(r.Ops, Op{Shape: ShapeRect, Rect: rect, Color: c, Thickness: thickness})
}

func (r *Recorder) DrawCircle(frame *gocv.Mat, center image.Point, radius int, c color.RGBA, fill bool) {
	r.Ops = append(r.Ops, Op{Shape: ShapeCircle, Points: []image.Point{center}, Radius: radius, Color: c, Filled: fill})
}

func (r *Recorder) DrawLine(frame *gocv.Mat, p1, p2 image.Point, c color.RGBA, thickness int) {
	r.Ops = append(r.Ops, Op{Shape: ShapeLine, Points: []image.Point{p1, p2}, Color: c, Thickness: thickness})
}

// Count returns the number of recorded calls of the given shape.
func (r *Recorder) Count(shape Shape) int {
	n := 0
	for _, op := range r.Ops {
		if op.Shape == shape {
			n++
		}
	}
	return n
}

// Reset discards recorded calls.
func (r *Recorder) Reset() {
	r.Ops = r.Ops[:0]
}
