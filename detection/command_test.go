package detection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/RyanBlaney/fkw-sonar/logging"
)

func TestMain(m *testing.M) {
	logging.SetGlobalLogger(&logging.NoOpLogger{})
	os.Exit(m.Run())
}

// TestHelperProcess stands in for the inference script. It is only active
// when started by helperDetector.
func TestHelperProcess(t *testing.T) {
	mode := os.Getenv("FKW_HELPER_MODE")
	if mode == "" {
		return
	}
	defer os.Exit(0)

	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 5 || args[1] != "--model" || args[3] != "--conf" {
		fmt.Fprintf(os.Stderr, "bad arguments %q\n", args)
		os.Exit(2)
	}
	images := args[5:]

	switch mode {
	case "garbage":
		fmt.Print("Ultralytics YOLOv8 loading...")
		return
	case "fail":
		fmt.Fprint(os.Stderr, "CUDA out of memory")
		os.Exit(3)
	case "sleep":
		time.Sleep(10 * time.Second)
		return
	}

	type det = Detection
	var out commandOutput
	for i, img := range images {
		dets := []det{
			{Confidence: 0.91, ClassID: 0, ClassName: "fkw_whistle", BBox: [4]float64{10, 20, 110, 60}},
			{Confidence: 0.10, ClassID: 0, ClassName: "fkw_whistle", BBox: [4]float64{0, 0, 5, 5}},
		}
		if mode == "badconf" {
			dets[0].Confidence = 1.7
		}
		if mode == "sparse" && i > 0 {
			continue
		}
		out.Files = append(out.Files, struct {
			FilePath   string      `json:"file_path"`
			Detections []Detection `json:"detections"`
		}{img, dets})
	}
	if mode == "stranger" {
		out.Files[0].FilePath = "/elsewhere/other.jpg"
	}
	json.NewEncoder(os.Stdout).Encode(out)
}

func helperDetector(t *testing.T, mode string) (*CommandDetector, []string) {
	t.Helper()
	dir := t.TempDir()

	model := filepath.Join(dir, "model.pt")
	images := []string{filepath.Join(dir, "rec-0001.jpg"), filepath.Join(dir, "rec-0011.jpg")}
	for _, p := range append([]string{model}, images...) {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := DefaultCommandConfig()
	cfg.Command = []string{os.Args[0], "-test.run=^TestHelperProcess$", "--"}
	cfg.ModelPath = model
	cfg.Timeout = 30 * time.Second
	cfg.Env = []string{"FKW_HELPER_MODE=" + mode}

	d, err := NewCommandDetector(cfg)
	if err != nil {
		t.Fatalf("NewCommandDetector: %v", err)
	}
	d.now = func() time.Time { return time.Date(2017, 7, 9, 3, 44, 42, 0, time.UTC) }
	return d, images
}

func TestCommandDetectorDetect(t *testing.T) {
	d, images := helperDetector(t, "ok")

	report, err := d.Detect(context.Background(), images)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if len(report.Files) != 2 {
		t.Fatalf("files = %d, want 2", len(report.Files))
	}
	for i, f := range report.Files {
		if f.FilePath != images[i] {
			t.Errorf("files[%d] = %s, want %s", i, f.FilePath, images[i])
		}
		// The 0.10 box is under the 0.25 threshold
		if f.DetectionCount != 1 || len(f.Detections) != 1 {
			t.Errorf("%s: %d detections, want 1", f.FilePath, f.DetectionCount)
		}
	}
	if report.TotalDetections != 2 {
		t.Errorf("total = %d, want 2", report.TotalDetections)
	}
	if report.RunID == "" || report.Confidence != 0.25 {
		t.Errorf("run id %q confidence %v", report.RunID, report.Confidence)
	}
	if !report.Timestamp.Equal(time.Date(2017, 7, 9, 3, 44, 42, 0, time.UTC)) {
		t.Errorf("timestamp = %v", report.Timestamp)
	}
	if got := report.File(images[1]); got == nil || got.Detections[0].ClassName != "fkw_whistle" {
		t.Errorf("File(%s) = %+v", images[1], got)
	}
}

func TestCommandDetectorSparseOutput(t *testing.T) {
	d, images := helperDetector(t, "sparse")

	report, err := d.Detect(context.Background(), images)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if report.Files[1].DetectionCount != 0 || report.Files[1].Detections == nil {
		t.Errorf("unmentioned image should have an empty result, got %+v", report.Files[1])
	}
}

func TestCommandDetectorFailures(t *testing.T) {
	tests := []struct {
		mode    string
		wantErr error
		detail  string
	}{
		{"garbage", ErrBadOutput, ""},
		{"badconf", ErrBadOutput, "outside [0, 1]"},
		{"stranger", ErrBadOutput, "unrequested"},
		{"fail", nil, "CUDA out of memory"},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			d, images := helperDetector(t, tt.mode)
			_, err := d.Detect(context.Background(), images)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("error %q lacks %q", err, tt.detail)
			}
		})
	}
}

func TestCommandDetectorTimeout(t *testing.T) {
	d, images := helperDetector(t, "sleep")
	d.config.Timeout = 200 * time.Millisecond

	start := time.Now()
	if _, err := d.Detect(context.Background(), images); err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestCommandDetectorPreconditions(t *testing.T) {
	d, images := helperDetector(t, "ok")

	if _, err := d.Detect(context.Background(), nil); !errors.Is(err, ErrNoInputs) {
		t.Errorf("no inputs: error = %v", err)
	}

	missing := append(images, filepath.Join(t.TempDir(), "gone.jpg"))
	if _, err := d.Detect(context.Background(), missing); !errors.Is(err, ErrInputMissing) {
		t.Errorf("missing image: error = %v", err)
	}

	d.config.ModelPath = filepath.Join(t.TempDir(), "absent.pt")
	if _, err := d.Detect(context.Background(), images); !errors.Is(err, ErrModelMissing) {
		t.Errorf("missing model: error = %v", err)
	}
}

func TestCommandConfigValidate(t *testing.T) {
	if err := DefaultCommandConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg := DefaultCommandConfig()
	cfg.Command = nil
	cfg.Confidence = 1.5
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, want := range []string{"command", "confidence"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}

	if _, err := NewCommandDetector(cfg); err == nil {
		t.Error("NewCommandDetector accepted an invalid config")
	}
}

func TestDetectionValidate(t *testing.T) {
	tests := []struct {
		name string
		det  Detection
		ok   bool
	}{
		{"valid", Detection{Confidence: 0.5, BBox: [4]float64{1, 2, 3, 4}}, true},
		{"degenerate box", Detection{Confidence: 1, BBox: [4]float64{3, 3, 3, 3}}, true},
		{"negative confidence", Detection{Confidence: -0.1}, false},
		{"inverted x", Detection{Confidence: 0.5, BBox: [4]float64{5, 0, 1, 1}}, false},
		{"inverted y", Detection{Confidence: 0.5, BBox: [4]float64{0, 5, 1, 1}}, false},
	}
	for _, tt := range tests {
		if err := tt.det.Validate(); (err == nil) != tt.ok {
			t.Errorf("%s: Validate() = %v", tt.name, err)
		}
	}
}
