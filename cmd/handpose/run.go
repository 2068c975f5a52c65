package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/ayusman/handpose/internal/app"
	"github.com/ayusman/handpose/internal/capture"
	"github.com/ayusman/handpose/internal/overlay"
	"github.com/ayusman/handpose/internal/server"
	"github.com/ayusman/handpose/internal/store"
	"github.com/ayusman/handpose/internal/tray"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

type runOptions struct {
	Device    string
	HandIndex int
	Motion    float64
	NoDraw    bool
	Mirror    bool
	Headless  bool
	Record    bool
	Serve     bool
	Addr      string
	StaticDir string
	Tray      bool
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Analyze a live camera or video stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyRunFlags(cmd, runOpts)
		return runLive(cmd.Context(), runOpts)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runOpts.Device, "device", "d", "", "camera index or video path (overrides camera.device)")
	f.IntVar(&runOpts.HandIndex, "hand", 0, "index of the detected hand to analyze")
	f.Float64Var(&runOpts.Motion, "motion", 0, "percent of changed pixels needed to run detection (0 = every frame)")
	f.BoolVar(&runOpts.NoDraw, "no-annotate", false, "do not draw landmarks on frames")
	f.BoolVar(&runOpts.Mirror, "mirror", false, "flip frames horizontally")
	f.BoolVar(&runOpts.Headless, "headless", false, "do not open a preview window")
	f.BoolVar(&runOpts.Record, "record", false, "record observations to the store")
	f.BoolVar(&runOpts.Serve, "serve", false, "serve the live stream and API over HTTP")
	f.StringVar(&runOpts.Addr, "addr", "", "HTTP listen address (overrides server.addr)")
	f.StringVar(&runOpts.StaticDir, "static", "", "directory of static files to serve at /")
	f.BoolVar(&runOpts.Tray, "tray", false, "show a system tray menu (implies --headless)")

	rootCmd.AddCommand(runCmd)
}

// applyRunFlags copies explicitly set flags over the loaded config.
func applyRunFlags(cmd *cobra.Command, o runOptions) {
	f := cmd.Flags()
	if f.Changed("device") {
		cfg.Camera.Device = o.Device
	}
	if f.Changed("hand") {
		cfg.Pipeline.HandIndex = o.HandIndex
	}
	if f.Changed("motion") {
		cfg.Pipeline.MotionThreshold = o.Motion
	}
	if o.NoDraw {
		cfg.Pipeline.Annotate = false
	}
	if o.Mirror {
		cfg.Camera.Mirror = true
	}
	if o.Addr != "" {
		cfg.Server.Addr = o.Addr
	}
}

func runLive(ctx context.Context, o runOptions) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	analyzer, err := newAnalyzer(cfg.Detector)
	if err != nil {
		return err
	}

	var st *store.Store
	if o.Record || o.Serve {
		if st, err = openStore(); err != nil {
			analyzer.Close()
			return err
		}
		defer st.Close()
	}

	feed := app.NewFeed()
	opts := app.Options{
		Camera:   capture.NewCamera(cfg.Camera),
		Analyzer: analyzer,
		Pipeline: cfg.Pipeline,
		Feed:     feed,
		Source:   "camera:" + cfg.Camera.Device,
		Logger:   zlog,
	}
	if o.Record {
		opts.Store = st
	}

	var window *gocv.Window
	if !o.Headless && !o.Tray {
		window = gocv.NewWindow("handpose")
		defer window.Close()
		opts.OnFrame = previewHook(window)
	}

	a := app.New(opts)
	defer func() {
		if err := a.Close(); err != nil {
			zlog.Warn("close pipeline", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srvErr := make(chan error, 1)
	if o.Serve {
		srv := server.New(server.Config{StaticDir: o.StaticDir, Store: st, Feed: feed, Logger: zlog})
		go func() {
			srvErr <- srv.Run(ctx, cfg.Server.Addr)
		}()
	}

	if !o.Tray {
		err := a.Run(ctx)
		cancel()
		return errors.Join(err, serverResult(o.Serve, srvErr))
	}

	t := tray.New(a.Annotating())
	t.OnToggle(a.SetEnabled)
	t.OnAnnotate(a.SetAnnotate)
	t.OnQuit(cancel)
	if o.Serve {
		t.OnOpen(func() { openBrowser(viewerURL(cfg.Server.Addr)) })
	}
	go t.Follow(feed, ctx.Done())

	runErr := make(chan error, 1)
	go func() {
		runErr <- a.Run(ctx)
		t.Quit()
	}()

	// The tray owns the main thread until Quit.
	t.Run()
	cancel()
	return errors.Join(<-runErr, serverResult(o.Serve, srvErr))
}

func serverResult(serving bool, ch <-chan error) error {
	if !serving {
		return nil
	}
	err := <-ch
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// previewHook shows annotated frames with the finger count and frame rate.
// Pressing q or Esc stops the pipeline.
func previewHook(window *gocv.Window) app.FrameHook {
	var last time.Time
	var fps float64
	return func(frame *gocv.Mat, r app.Result) bool {
		now := time.Now()
		if !last.IsZero() {
			inst := 1 / now.Sub(last).Seconds()
			fps = 0.9*fps + 0.1*inst
		}
		last = now

		fingers := "Fingers: -"
		if r.HasHand() {
			fingers = fmt.Sprintf("Fingers: %d %s", r.Raised, r.Fingers)
		}
		overlay.Status(frame, fmt.Sprintf("FPS: %.0f", fps), fingers)

		window.IMShow(*frame)
		key := window.WaitKey(1)
		return key != 'q' && key != 27
	}
}

// viewerURL turns a listen address into a browsable URL.
func viewerURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		zlog.Warn("open browser", zap.String("url", url), zap.Error(err))
	}
}
