// Package overlay draws hand annotations onto frames.
package overlay

import (
	"image"
	"image/color"

	"github.com/ayusman/handpose/internal/detector"
	"gocv.io/x/gocv"
)

// Colors used for annotations.
var (
	Magenta = color.RGBA{R: 255, G: 0, B: 255, A: 0}
	Green   = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	Red     = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	White   = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// filled is the OpenCV thickness value that fills a shape.
const filled = -1

// Annotator stamps shapes onto a frame in place.
type Annotator interface {
	// DrawLandmarks renders the landmark points and skeleton of a hand.
	DrawLandmarks(frame *gocv.Mat, hand detector.HandLandmarks)
	DrawRect(frame *gocv.Mat, r image.Rectangle, c color.RGBA, thickness int)
	DrawCircle(frame *gocv.Mat, center image.Point, radius int, c color.RGBA, fill bool)
	DrawLine(frame *gocv.Mat, p1, p2 image.Point, c color.RGBA, thickness int)
}

// GocvAnnotator implements Annotator with OpenCV drawing primitives.
type GocvAnnotator struct {
	PointRadius   int
	PointColor    color.RGBA
	LineColor     color.RGBA
	LineThickness int
}

// NewGocvAnnotator returns an annotator with red points and white connections.
func NewGocvAnnotator() *GocvAnnotator {
	return &GocvAnnotator{
		PointRadius:   4,
		PointColor:    Red,
		LineColor:     White,
		LineThickness: 2,
	}
}

// DrawLandmarks draws every connection then every landmark, scaled to the frame.
func (a *GocvAnnotator) DrawLandmarks(frame *gocv.Mat, hand detector.HandLandmarks) {
	if frame == nil || frame.Empty() {
		return
	}
	w, h := frame.Cols(), frame.Rows()

	var pts [detector.NumLandmarks]image.Point
	for i, p := range hand.Points {
		pts[i] = image.Pt(int(p.X*float64(w)), int(p.Y*float64(h)))
	}

	for _, c := range detector.Connections {
		gocv.Line(frame, pts[c[0]], pts[c[1]], a.LineColor, a.LineThickness)
	}
	for _, p := range pts {
		gocv.Circle(frame, p, a.PointRadius, a.PointColor, filled)
	}
}

func (a *GocvAnnotator) DrawRect(frame *gocv.Mat, r image.Rectangle, c color.RGBA, thickness int) {
	gocv.Rectangle(frame, r, c, thickness)
}

func (a *GocvAnnotator) DrawCircle(frame *gocv.Mat, center image.Point, radius int, c color.RGBA, fill bool) {
	thickness := 2
	if fill {
		thickness = filled
	}
	gocv.Circle(frame, center, radius, c, thickness)
}

func (a *GocvAnnotator) DrawLine(frame *gocv.Mat, p1, p2 image.Point, c color.RGBA, thickness int) {
	gocv.Line(frame, p1, p2, c, thickness)
}

// Status writes lines of text in the top-left corner of frame.
func Status(frame *gocv.Mat, lines ...string) {
	if frame == nil || frame.Empty() {
		return
	}
	for i, line := range lines {
		origin := image.Pt(10, 30+i*30)
		gocv.PutText(frame, line, origin, gocv.FontHersheyPlain, 2, Magenta, 2)
	}
}
