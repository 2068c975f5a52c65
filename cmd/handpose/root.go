package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ayusman/handpose/internal/config"
	"github.com/ayusman/handpose/internal/detector"
	"github.com/ayusman/handpose/internal/handpose"
	"github.com/ayusman/handpose/internal/logger"
	"github.com/ayusman/handpose/internal/overlay"
	"github.com/ayusman/handpose/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is the application version.
const Version = "0.1.0"

var (
	// cfg and zlog are loaded once by the root command before any subcommand runs.
	cfg  config.Config
	zlog = zap.NewNop()

	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "handpose",
	Short:         "Hand landmark analysis for camera streams and still images",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			c.LogLevel = logLevel
		}

		l, err := logger.New(c.LogLevel, c.Development)
		if err != nil {
			return err
		}
		cfg, zlog = c, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zlog.Sync()
	},
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "YAML config file (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}

// newAnalyzer starts the MediaPipe detector and wraps it in an analyzer that
// draws with OpenCV.
func newAnalyzer(dc detector.Config) (*handpose.Analyzer, error) {
	det, err := detector.NewMediaPipeDetector(dc, cfg.Service, zlog)
	if err != nil {
		return nil, fmt.Errorf("hand detector unavailable: %w", err)
	}
	return handpose.New(det, overlay.NewGocvAnnotator(), cfg.Analyzer, zlog), nil
}

// openStore opens the configured SQLite database.
func openStore() (*store.Store, error) {
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Store.Path, err)
	}
	zlog.Debug("store opened", zap.String("path", st.Path()))
	return st, nil
}
