package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/handpose/internal/capture"
	"github.com/ayusman/handpose/internal/handpose"
	"github.com/ayusman/handpose/internal/store"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Analyze runs the full analysis sequence on one frame: detect, extract the
// configured hand, classify fingers and measure the configured landmark pair.
// A frame without the configured hand yields a Result with HasHand false.
func (a *App) Analyze(frame *gocv.Mat, index int) (Result, error) {
	res := Result{Frame: index, Time: time.Now().UTC()}
	annotate := a.Annotating()

	if _, err := a.analyzer.Detect(frame, annotate); err != nil {
		return res, err
	}
	hands := a.analyzer.Hands()
	res.Hands = len(hands)
	for _, h := range hands {
		res.Labels = append(res.Labels, h.Handedness)
	}

	set, box, err := a.analyzer.ExtractLandmarks(frame, a.pipeline.HandIndex, annotate)
	if errors.Is(err, handpose.ErrHandIndex) {
		return res, nil
	}
	if err != nil {
		return res, err
	}
	if len(set) == 0 {
		return res, nil
	}
	res.Landmarks = set
	res.Box = box
	res.Handedness = a.analyzer.Current().Handedness

	fingers, err := a.analyzer.FingersUp()
	if err != nil {
		return res, err
	}
	res.Fingers = fingers
	res.Raised = fingers.Count()

	m, err := a.analyzer.FindDistance(frame, a.pipeline.Measure[0], a.pipeline.Measure[1], annotate)
	if err != nil {
		return res, err
	}
	res.Distance = &m

	return res, nil
}

// Run opens the camera and processes frames until ctx is cancelled, the
// source runs out of frames or the frame hook asks to stop.
//
// Pipeline per frame:
// 1. Read a frame, dropping it on read errors
// 2. Skip detection while disabled or when the motion gate stays closed
// 3. Analyze and publish the result to the feed
// 4. Buffer an observation when recording, flushing every FlushEvery frames
// 5. Encode the frame for stream viewers and call the frame hook
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrRunning
	}
	a.running = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer func() {
		if err := a.camera.Close(); err != nil {
			a.log.Warn("close camera", zap.Error(err))
		}
	}()
	a.gate.Reset()

	rec, err := a.startRecording()
	if err != nil {
		return err
	}
	defer rec.finish()

	interval := time.Second / time.Duration(max(a.camera.FPS(), 1))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.log.Info("pipeline started",
		zap.Int("fps", a.camera.FPS()),
		zap.Bool("recording", rec != nil),
		zap.Bool("motion_gate", a.gate.Enabled()),
	)
	defer func() {
		a.log.Info("pipeline stopped", zap.Int("recorded", rec.frames()))
	}()

	index := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		frame, err := a.camera.ReadFrame()
		if errors.Is(err, capture.ErrEndOfStream) {
			return nil
		}
		if err != nil {
			a.log.Warn("read frame", zap.Error(err))
			continue
		}

		cont := a.step(frame, index, rec)
		frame.Close()
		index++
		if !cont {
			return nil
		}
	}
}

// step processes one frame and reports whether the loop should continue.
func (a *App) step(frame *gocv.Mat, index int, rec *recording) bool {
	var res Result
	analyzed := false

	if a.IsEnabled() {
		if open, changed := a.gate.Open(frame); open {
			r, err := a.Analyze(frame, index)
			if err != nil {
				a.log.Warn("analyze frame", zap.Int("frame", index), zap.Error(err))
			} else {
				res, analyzed = r, true
			}
		} else {
			a.log.Debug("motion gate closed", zap.Int("frame", index), zap.Float64("changed", changed))
		}
	}

	if analyzed {
		if a.feed != nil {
			a.feed.Publish(res)
		}
		rec.add(res)
	}

	if a.feed != nil && a.feed.Watching() {
		if buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame); err == nil {
			data := make([]byte, buf.Len())
			copy(data, buf.GetBytes())
			buf.Close()
			a.feed.SetFrame(data)
		} else {
			a.log.Debug("encode frame", zap.Error(err))
		}
	}

	if a.onFrame != nil {
		return a.onFrame(frame, res)
	}
	return true
}

// recording buffers observations of one session. A nil recording ignores
// every call.
type recording struct {
	store   *store.Store
	session *store.Session
	buf     []store.Observation
	count   int
	log     *zap.Logger
}

func (a *App) startRecording() (*recording, error) {
	if a.store == nil {
		return nil, nil
	}
	sess, err := a.store.Sessions().Create(a.source)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	a.log.Info("recording session", zap.String("session", sess.ID), zap.String("source", a.source))
	return &recording{
		store:   a.store,
		session: sess,
		buf:     make([]store.Observation, 0, FlushEvery),
		log:     a.log,
	}, nil
}

func (r *recording) add(res Result) {
	if r == nil {
		return
	}
	r.buf = append(r.buf, res.Observation(r.session.ID))
	r.count++
	if len(r.buf) >= FlushEvery {
		r.flush()
	}
}

func (r *recording) flush() {
	if r == nil || len(r.buf) == 0 {
		return
	}
	if err := r.store.Observations().AddBatch(r.buf); err != nil {
		r.log.Error("store observations", zap.Int("count", len(r.buf)), zap.Error(err))
	}
	r.buf = r.buf[:0]
}

func (r *recording) frames() int {
	if r == nil {
		return 0
	}
	return r.count
}

func (r *recording) finish() {
	if r == nil {
		return
	}
	r.flush()
	if err := r.store.Sessions().Finish(r.session.ID, r.count); err != nil {
		r.log.Error("finish session", zap.String("session", r.session.ID), zap.Error(err))
	}
}
