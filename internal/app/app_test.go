package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/handpose/internal/capture"
	"github.com/ayusman/handpose/internal/config"
	"github.com/ayusman/handpose/internal/detector"
	"github.com/ayusman/handpose/internal/handpose"
	"github.com/ayusman/handpose/internal/overlay"
	"github.com/ayusman/handpose/internal/store"
	"gocv.io/x/gocv"
)

func newFrames(t *testing.T, n int) []*gocv.Mat {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
		frames[i] = &m
	}
	t.Cleanup(func() {
		for _, f := range frames {
			f.Close()
		}
	})
	return frames
}

func testPipeline() config.Pipeline {
	return config.Default().Pipeline
}

type testApp struct {
	app      *App
	detector *detector.MockDetector
	recorder *overlay.Recorder
	camera   *capture.MockCamera
}

func newTestApp(frames []*gocv.Mat, opts Options, hands ...detector.HandLandmarks) testApp {
	mock := detector.NewMockDetector(hands...)
	rec := overlay.NewRecorder()
	cam := capture.NewMockCamera(frames, false)
	cam.SetFPS(1000)

	opts.Camera = cam
	opts.Analyzer = handpose.New(mock, rec, handpose.DefaultConfig(), nil)
	return testApp{app: New(opts), detector: mock, recorder: rec, camera: cam}
}

func TestApp_Toggles(t *testing.T) {
	a := New(Options{Pipeline: config.Pipeline{Annotate: false}})

	if !a.IsEnabled() {
		t.Error("detection should start enabled")
	}
	if a.Annotating() {
		t.Error("annotation should follow the pipeline config")
	}

	a.SetEnabled(false)
	a.SetAnnotate(true)
	if a.IsEnabled() || !a.Annotating() {
		t.Error("toggles were not applied")
	}
}

func TestApp_Analyze(t *testing.T) {
	frames := newFrames(t, 1)
	ta := newTestApp(frames, Options{Pipeline: testPipeline()}, detector.OpenPalmLandmarks())

	res, err := ta.app.Analyze(frames[0], 7)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.Frame != 7 || res.Hands != 1 || !res.HasHand() {
		t.Errorf("Analyze() = %+v", res)
	}
	if res.Raised != 5 || res.Fingers.Count() != 5 {
		t.Errorf("open palm should raise 5 fingers, got %v", res.Fingers)
	}
	if res.Distance == nil || res.Distance.Length <= 0 {
		t.Errorf("expected thumb-index distance, got %v", res.Distance)
	}
	if res.Handedness != detector.HandRight {
		t.Errorf("Handedness = %q", res.Handedness)
	}
	if len(res.Labels) != 1 || res.Labels[0] != detector.HandRight {
		t.Errorf("Labels = %v", res.Labels)
	}
	if ta.recorder.Count(overlay.ShapeLandmarks) != 1 {
		t.Error("annotation should draw the detected hand")
	}
}

func TestApp_Analyze_NoHands(t *testing.T) {
	frames := newFrames(t, 1)
	ta := newTestApp(frames, Options{Pipeline: testPipeline()})

	res, err := ta.app.Analyze(frames[0], 0)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.HasHand() || res.Hands != 0 || res.Distance != nil || !res.Box.Empty() {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestApp_Analyze_MissingHandIndex(t *testing.T) {
	frames := newFrames(t, 1)
	p := testPipeline()
	p.HandIndex = 1
	ta := newTestApp(frames, Options{Pipeline: p}, detector.OpenPalmLandmarks())

	res, err := ta.app.Analyze(frames[0], 0)
	if err != nil {
		t.Fatalf("a missing second hand should not fail the frame: %v", err)
	}
	if res.Hands != 1 || res.HasHand() {
		t.Errorf("Analyze() = %+v", res)
	}
	if len(res.Labels) != 1 {
		t.Errorf("the detected hand should still be labeled, got %v", res.Labels)
	}
}

func TestApp_Run_PublishesAndRecords(t *testing.T) {
	frames := newFrames(t, 3)
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer st.Close()

	feed := NewFeed()
	results, cancel := feed.Subscribe(10)
	defer cancel()

	ta := newTestApp(frames, Options{
		Pipeline: testPipeline(),
		Feed:     feed,
		Store:    st,
		Source:   "test",
	}, detector.PointingLandmarks())

	if err := ta.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		select {
		case r := <-results:
			if r.Frame != i || r.Raised != 1 {
				t.Errorf("result %d = %+v", i, r)
			}
		default:
			t.Fatalf("expected 3 results, got %d", i)
		}
	}

	sessions, err := st.Sessions().List(10)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("List() = %v, %v", sessions, err)
	}
	if sessions[0].Frames != 3 || sessions[0].EndedAt == nil || sessions[0].Source != "test" {
		t.Errorf("session = %+v", sessions[0])
	}

	hist, err := st.Observations().FingerHistogram(sessions[0].ID)
	if err != nil {
		t.Fatalf("FingerHistogram() error = %v", err)
	}
	if hist[1] != 3 {
		t.Errorf("FingerHistogram() = %v, want 3 frames with one finger", hist)
	}
	if ta.camera.IsOpen() {
		t.Error("camera should be closed after Run")
	}
}

func TestApp_Run_Disabled(t *testing.T) {
	frames := newFrames(t, 2)
	seen := 0
	ta := newTestApp(frames, Options{
		Pipeline: testPipeline(),
		OnFrame: func(frame *gocv.Mat, r Result) bool {
			seen++
			return true
		},
	}, detector.OpenPalmLandmarks())
	ta.app.SetEnabled(false)

	if err := ta.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ta.detector.Calls() != 0 {
		t.Errorf("detector ran %d times while disabled", ta.detector.Calls())
	}
	if seen != 2 {
		t.Errorf("frame hook saw %d frames, want 2", seen)
	}
}

func TestApp_Run_HookStops(t *testing.T) {
	frames := newFrames(t, 5)
	ta := newTestApp(frames, Options{
		Pipeline: testPipeline(),
		OnFrame:  func(*gocv.Mat, Result) bool { return false },
	}, detector.OpenPalmLandmarks())

	if err := ta.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ta.detector.Calls() != 1 {
		t.Errorf("expected a single frame, detector ran %d times", ta.detector.Calls())
	}
}

func TestApp_Run_ContextCancel(t *testing.T) {
	frames := newFrames(t, 1)
	feed := NewFeed()
	results, unsubscribe := feed.Subscribe(1)
	defer unsubscribe()

	mock := detector.NewMockDetector(detector.FistLandmarks())
	cam := capture.NewMockCamera(frames, true)
	a := New(Options{
		Camera:   cam,
		Analyzer: handpose.New(mock, nil, handpose.DefaultConfig(), nil),
		Pipeline: testPipeline(),
		Feed:     feed,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case r := <-results:
		if r.Raised != 0 {
			t.Errorf("fist should raise no fingers, got %v", r.Fingers)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a result")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestResult_Observation(t *testing.T) {
	m := handpose.Measurement{Length: 12.5}
	r := Result{
		Frame:      4,
		Hands:      1,
		Handedness: detector.HandLeft,
		Fingers:    handpose.FingerState{false, true, true, false, false},
		Box:        handpose.BoundingBox{XMin: 1, YMin: 2, XMax: 3, YMax: 4},
		Distance:   &m,
	}

	o := r.Observation("sess")
	if o.SessionID != "sess" || o.FrameIndex != 4 || o.Fingers != r.Fingers || o.Box != r.Box {
		t.Errorf("Observation() = %+v", o)
	}
	if o.Distance == nil || *o.Distance != 12.5 {
		t.Errorf("Distance = %v", o.Distance)
	}

	if (Result{}).Observation("x").Distance != nil {
		t.Error("missing measurement should map to a nil distance")
	}
}
