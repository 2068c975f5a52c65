package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ayusman/handpose/internal/app"
	"github.com/ayusman/handpose/internal/capture"
	"github.com/ayusman/handpose/internal/store"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

type analyzeOptions struct {
	OutDir    string
	HandIndex int
	Record    bool
	Quiet     bool
}

var analyzeOpts analyzeOptions

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>...",
	Short: "Analyze still images and print one JSON line per image",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("hand") {
			cfg.Pipeline.HandIndex = analyzeOpts.HandIndex
		}
		return runAnalyze(cmd, args, analyzeOpts)
	},
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeOpts.OutDir, "out", "o", "", "write annotated copies of the images to this directory")
	f.IntVar(&analyzeOpts.HandIndex, "hand", 0, "index of the detected hand to analyze")
	f.BoolVar(&analyzeOpts.Record, "record", false, "record the results as one session in the store")
	f.BoolVarP(&analyzeOpts.Quiet, "quiet", "q", false, "hide the progress bar")

	rootCmd.AddCommand(analyzeCmd)
}

// imageReport is the JSON line printed for each image.
type imageReport struct {
	Image  string      `json:"image"`
	Result *app.Result `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func runAnalyze(cmd *cobra.Command, paths []string, o analyzeOptions) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if o.OutDir != "" {
		if err := os.MkdirAll(o.OutDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	// Still images have no temporal continuity to track across.
	dc := cfg.Detector
	dc.StaticImageMode = true
	analyzer, err := newAnalyzer(dc)
	if err != nil {
		return err
	}

	pipeline := cfg.Pipeline
	pipeline.Annotate = o.OutDir != ""
	a := app.New(app.Options{Analyzer: analyzer, Pipeline: pipeline, Logger: zlog})
	defer a.Close()

	var st *store.Store
	var sess *store.Session
	if o.Record {
		if st, err = openStore(); err != nil {
			return err
		}
		defer st.Close()
		if sess, err = st.Sessions().Create("images"); err != nil {
			return fmt.Errorf("create session: %w", err)
		}
	}

	var bar *progressbar.ProgressBar
	if len(paths) > 1 && !o.Quiet {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetDescription("Analyzing"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	var observations []store.Observation
	failed := 0

	for i, path := range paths {
		if err := cmd.Context().Err(); err != nil {
			break
		}

		report := imageReport{Image: path}
		res, err := analyzeImage(a, path, i, o.OutDir)
		if err != nil {
			failed++
			report.Error = err.Error()
			zlog.Warn("analyze image", zap.String("image", path), zap.Error(err))
		} else {
			report.Result = &res
			if sess != nil {
				observations = append(observations, res.Observation(sess.ID))
			}
		}

		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if sess != nil {
		if err := st.Observations().AddBatch(observations); err != nil {
			return fmt.Errorf("store observations: %w", err)
		}
		if err := st.Sessions().Finish(sess.ID, len(observations)); err != nil {
			return fmt.Errorf("finish session: %w", err)
		}
		zlog.Info("recorded session", zap.String("session", sess.ID), zap.Int("images", len(observations)))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(paths))
	}
	return nil
}

// analyzeImage loads one image, analyzes it and optionally writes the
// annotated frame to outDir under the same base name.
func analyzeImage(a *app.App, path string, index int, outDir string) (app.Result, error) {
	frame, err := capture.LoadImage(path)
	if err != nil {
		return app.Result{}, err
	}
	defer frame.Close()

	res, err := a.Analyze(&frame, index)
	if err != nil {
		return res, err
	}

	if outDir != "" {
		out := filepath.Join(outDir, filepath.Base(path))
		if !gocv.IMWrite(out, frame) {
			return res, fmt.Errorf("write annotated image %s", out)
		}
	}
	return res, nil
}
