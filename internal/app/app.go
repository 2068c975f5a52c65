// Package app runs the per-frame hand analysis loop over a camera.
package app

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ayusman/handpose/internal/capture"
	"github.com/ayusman/handpose/internal/config"
	"github.com/ayusman/handpose/internal/handpose"
	"github.com/ayusman/handpose/internal/store"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// FlushEvery is the number of observations buffered before they are written
// to the store.
const FlushEvery = 30

// ErrRunning is returned by Run when the pipeline is already running.
var ErrRunning = errors.New("pipeline already running")

// FrameHook is called synchronously with every processed frame, after
// annotation. Returning false stops the pipeline.
type FrameHook func(frame *gocv.Mat, r Result) bool

// Options wires the pipeline's collaborators.
type Options struct {
	Camera   capture.Camera
	Analyzer *handpose.Analyzer
	Pipeline config.Pipeline
	// Feed receives results and encoded frames; nil disables publishing.
	Feed *Feed
	// Store persists observations while recording; nil disables recording.
	Store *store.Store
	// Source labels recorded sessions.
	Source string
	// OnFrame is an optional per-frame hook, e.g. a preview window.
	OnFrame FrameHook
	Logger  *zap.Logger
}

// App owns the capture loop: it reads frames, gates them on motion, runs the
// analyzer and fans the results out.
type App struct {
	camera   capture.Camera
	analyzer *handpose.Analyzer
	gate     *capture.MotionGate
	pipeline config.Pipeline
	feed     *Feed
	store    *store.Store
	source   string
	onFrame  FrameHook
	log      *zap.Logger

	enabled  atomic.Bool
	annotate atomic.Bool

	mu      sync.Mutex
	running bool
}

// New creates an App. Detection starts enabled and annotation follows the
// pipeline configuration.
func New(opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{
		camera:   opts.Camera,
		analyzer: opts.Analyzer,
		gate:     capture.NewMotionGate(opts.Pipeline.MotionThreshold),
		pipeline: opts.Pipeline,
		feed:     opts.Feed,
		store:    opts.Store,
		source:   opts.Source,
		onFrame:  opts.OnFrame,
		log:      log.Named("app"),
	}
	a.enabled.Store(true)
	a.annotate.Store(opts.Pipeline.Annotate)
	return a
}

// SetEnabled enables or disables hand detection. Frames keep flowing to the
// feed while detection is disabled.
func (a *App) SetEnabled(enabled bool) {
	a.enabled.Store(enabled)
	a.log.Info("detection toggled", zap.Bool("enabled", enabled))
}

// IsEnabled returns whether hand detection is enabled.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// SetAnnotate turns frame annotation on or off.
func (a *App) SetAnnotate(annotate bool) {
	a.annotate.Store(annotate)
}

// Annotating reports whether frames are annotated.
func (a *App) Annotating() bool {
	return a.annotate.Load()
}

// Feed returns the feed results are published to, or nil.
func (a *App) Feed() *Feed {
	return a.feed
}

// Camera returns the capture source.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Close releases the motion gate and the analyzer's detector.
func (a *App) Close() error {
	a.gate.Close()
	if a.analyzer == nil {
		return nil
	}
	return a.analyzer.Close()
}
