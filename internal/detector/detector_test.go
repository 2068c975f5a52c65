package detector

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gocv.io/x/gocv"
)

const epsilon = 1e-9

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "static image mode", mutate: func(c *Config) { c.StaticImageMode = true }},
		{name: "zero hands", mutate: func(c *Config) { c.MaxHands = 0 }, wantErr: true},
		{name: "detection above one", mutate: func(c *Config) { c.MinDetectionConf = 1.5 }, wantErr: true},
		{name: "negative tracking", mutate: func(c *Config) { c.MinTrackingConf = -0.1 }, wantErr: true},
		{name: "bounds inclusive", mutate: func(c *Config) { c.MinDetectionConf = 0; c.MinTrackingConf = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.StaticImageMode {
		t.Error("static image mode should be off by default")
	}
	if cfg.MaxHands != 2 {
		t.Errorf("MaxHands = %d, want 2", cfg.MaxHands)
	}
	if math.Abs(cfg.MinDetectionConf-0.3) > epsilon {
		t.Errorf("MinDetectionConf = %f, want 0.3", cfg.MinDetectionConf)
	}
	if math.Abs(cfg.MinTrackingConf-0.5) > epsilon {
		t.Errorf("MinTrackingConf = %f, want 0.5", cfg.MinTrackingConf)
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 0 {
			t.Errorf("expected no hands, got %d", len(hands))
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands(OpenPalmLandmarks(), FistLandmarks())

		hands, err := mock.Detect(nil)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Errorf("expected 2 hands, got %d", len(hands))
		}
		if mock.Calls() != 1 {
			t.Errorf("Calls() = %d, want 1", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector(OpenPalmLandmarks())

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)
		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("Close marks closed", func(t *testing.T) {
		mock := NewMockDetector()

		if err := mock.Close(); err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}
		if !mock.Closed() {
			t.Error("expected mock to be closed")
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestFixtures_Normalized(t *testing.T) {
	fixtures := map[string]HandLandmarks{
		"open palm": OpenPalmLandmarks(),
		"fist":      FistLandmarks(),
		"pointing":  PointingLandmarks(),
	}

	for name, hand := range fixtures {
		t.Run(name, func(t *testing.T) {
			for i, p := range hand.Points {
				if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
					t.Errorf("landmark %d out of normalized range: %+v", i, p)
				}
			}
			if hand.Handedness != HandRight {
				t.Errorf("expected handedness Right, got %s", hand.Handedness)
			}
		})
	}
}

func TestMirror(t *testing.T) {
	palm := OpenPalmLandmarks()
	mirrored := Mirror(palm)

	if !IsLeft(mirrored.Handedness) {
		t.Errorf("mirrored hand should be labeled Left, got %s", mirrored.Handedness)
	}
	for i := range palm.Points {
		if math.Abs(mirrored.Points[i].X-(1-palm.Points[i].X)) > epsilon {
			t.Errorf("landmark %d: X = %f, want %f", i, mirrored.Points[i].X, 1-palm.Points[i].X)
		}
		if mirrored.Points[i].Y != palm.Points[i].Y {
			t.Errorf("landmark %d: Y changed by mirroring", i)
		}
	}

	back := Mirror(mirrored)
	if back.Handedness != HandRight {
		t.Errorf("double mirror should restore Right, got %s", back.Handedness)
	}
}

func TestParseResponse(t *testing.T) {
	points := make([]string, NumLandmarks)
	for i := range points {
		points[i] = `{"x":0.5,"y":0.25,"z":0}`
	}
	hand := `{"points":[` + strings.Join(points, ",") + `],"handedness":"Left","score":0.8}`

	t.Run("single hand", func(t *testing.T) {
		hands, err := parseResponse([]byte(`{"hands":[` + hand + `]}` + "\n"))
		if err != nil {
			t.Fatalf("parseResponse() error = %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected 1 hand, got %d", len(hands))
		}
		if !IsLeft(hands[0].Handedness) {
			t.Errorf("expected Left hand, got %s", hands[0].Handedness)
		}
		if hands[0].Points[PinkyTip].Y != 0.25 {
			t.Errorf("PinkyTip.Y = %f, want 0.25", hands[0].Points[PinkyTip].Y)
		}
	})

	t.Run("no hands", func(t *testing.T) {
		hands, err := parseResponse([]byte(`{"hands":[]}`))
		if err != nil {
			t.Fatalf("parseResponse() error = %v", err)
		}
		if len(hands) != 0 {
			t.Errorf("expected no hands, got %d", len(hands))
		}
	})

	t.Run("service error", func(t *testing.T) {
		_, err := parseResponse([]byte(`{"hands":[],"error":"bad frame"}`))
		if err == nil || !strings.Contains(err.Error(), "bad frame") {
			t.Errorf("expected service error, got %v", err)
		}
	})

	t.Run("short hand rejected", func(t *testing.T) {
		_, err := parseResponse([]byte(`{"hands":[{"points":[{"x":0,"y":0,"z":0}]}]}`))
		if err == nil {
			t.Error("expected error for hand with too few landmarks")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		if _, err := parseResponse([]byte(`{"hands":`)); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestServiceArgs(t *testing.T) {
	cfg := DefaultConfig()
	args := strings.Join(serviceArgs(cfg), " ")

	want := "--max-hands 2 --min-detection-confidence 0.3 --min-tracking-confidence 0.5"
	if args != want {
		t.Errorf("serviceArgs() = %q, want %q", args, want)
	}

	cfg.StaticImageMode = true
	args = strings.Join(serviceArgs(cfg), " ")
	if !strings.HasSuffix(args, "--static-image-mode") {
		t.Errorf("expected --static-image-mode flag, got %q", args)
	}
}

func TestFrameHeader(t *testing.T) {
	header := frameHeader(640, 480, 640*480*3)

	if len(header) != 12 {
		t.Fatalf("header length = %d, want 12", len(header))
	}
	want := []byte{0, 0, 2, 128, 0, 0, 1, 224, 0, 14, 16, 0}
	for i := range want {
		if header[i] != want[i] {
			t.Fatalf("header = %v, want %v", header, want)
		}
	}
}

func TestNewMediaPipeDetector_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxHands = 0

	_, err := NewMediaPipeDetector(cfg, ServiceOptions{Script: "unused.py"}, nil)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewMediaPipeDetector_ExplicitScript(t *testing.T) {
	d, err := NewMediaPipeDetector(DefaultConfig(), ServiceOptions{Script: "svc.py", Python: "python3"}, nil)
	if err != nil {
		t.Fatalf("NewMediaPipeDetector() error = %v", err)
	}
	if d.opts.IdleTimeout != DefaultIdleTimeout {
		t.Errorf("IdleTimeout = %v, want %v", d.opts.IdleTimeout, DefaultIdleTimeout)
	}
	// Process is started lazily, so Close before first use is a no-op.
	if err := d.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

// oneShotService writes a shell script that consumes a single 2x2 RGB frame
// (12-byte header + 12-byte payload), answers it and exits.
func oneShotService(t *testing.T) ServiceOptions {
	t.Helper()
	script := filepath.Join(t.TempDir(), "svc.sh")
	body := "head -c 24 > /dev/null\necho '{\"hands\":[]}'\n"
	if err := os.WriteFile(script, []byte(body), 0o644); err != nil {
		t.Fatalf("write service script: %v", err)
	}
	return ServiceOptions{Python: "/bin/sh", Script: script}
}

func TestMediaPipeDetector_RestartsAfterServiceExit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh available")
	}

	d, err := NewMediaPipeDetector(DefaultConfig(), oneShotService(t), nil)
	if err != nil {
		t.Fatalf("NewMediaPipeDetector() error = %v", err)
	}
	defer d.Close()

	frame := gocv.NewMatWithSize(2, 2, gocv.MatTypeCV8UC3)
	defer frame.Close()

	hands, err := d.Detect(&frame)
	if err != nil {
		t.Fatalf("first Detect() error = %v", err)
	}
	if len(hands) != 0 {
		t.Errorf("expected no hands, got %d", len(hands))
	}

	// The service exited after answering, so this exchange breaks.
	if _, err := d.Detect(&frame); err == nil {
		t.Fatal("expected an error once the service has exited")
	}

	hands, err = d.Detect(&frame)
	if err != nil {
		t.Fatalf("Detect() after restart error = %v", err)
	}
	if len(hands) != 0 {
		t.Errorf("expected no hands after restart, got %d", len(hands))
	}
}

func TestMediaPipeDetector_UnsupportedFrame(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	d, err := NewMediaPipeDetector(DefaultConfig(), ServiceOptions{Python: "/nonexistent/python", Script: "svc.py"}, nil)
	if err != nil {
		t.Fatalf("NewMediaPipeDetector() error = %v", err)
	}
	defer d.Close()

	gray := gocv.NewMatWithSize(2, 2, gocv.MatTypeCV8UC1)
	defer gray.Close()

	if _, err := d.Detect(&gray); !errors.Is(err, ErrUnsupportedFrame) {
		t.Errorf("expected ErrUnsupportedFrame, got %v", err)
	}
	if d.started {
		t.Error("service should not start for a rejected frame")
	}
}
