// Package detection defines the contract between composite spectrogram
// images and the external whistle detector: image paths in, detection
// records out.
//
// CommandDetector runs the model as a separate process, by default the
// predict.py script shipped next to this file:
//
//	python3 detection/predict.py --model <model.pt> --conf <threshold> <image>...
//
// The process must exit 0 and print exactly one JSON document on stdout,
// with anything else (progress, warnings) going to stderr:
//
//	{"files": [{"file_path": "images/rec-0001.jpg",
//	            "detections": [{"confidence": 0.91, "class_id": 0,
//	                            "class_name": "fkw_whistle",
//	                            "bbox": [412.0, 96.5, 618.2, 140.0]}]}]}
//
// file_path echoes the argument as given. bbox is x1, y1, x2, y2 in image
// pixels. Images without detections may be omitted. A non-zero exit fails
// the run and its stderr is included in the error.
package detection

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

var (
	ErrNoInputs     = errors.New("no input images")
	ErrInputMissing = errors.New("input image not found")
	ErrModelMissing = errors.New("model file not found")
	ErrBadOutput    = errors.New("malformed detector output")
)

// Detection is one bounding box reported by the model
type Detection struct {
	Confidence float64    `json:"confidence"`
	ClassID    int        `json:"class_id"`
	ClassName  string     `json:"class_name"`
	BBox       [4]float64 `json:"bbox"` // x1, y1, x2, y2 in pixels
}

// Validate checks the confidence range and box orientation
func (d Detection) Validate() error {
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0, 1]", d.Confidence)
	}
	if d.BBox[2] < d.BBox[0] || d.BBox[3] < d.BBox[1] {
		return fmt.Errorf("inverted bounding box %v", d.BBox)
	}
	return nil
}

// FileResult groups the detections of one image
type FileResult struct {
	FilePath       string      `json:"file_path"`
	Detections     []Detection `json:"detections"`
	DetectionCount int         `json:"detection_count"`
}

// Report is the outcome of one detector run over a set of images
type Report struct {
	RunID           string       `json:"run_id"`
	Timestamp       time.Time    `json:"timestamp"`
	Model           string       `json:"model"`
	Confidence      float64      `json:"confidence"`
	Files           []FileResult `json:"files"`
	TotalDetections int          `json:"total_detections"`
}

// File returns the result for path, or nil
func (r *Report) File(path string) *FileResult {
	for i := range r.Files {
		if r.Files[i].FilePath == path {
			return &r.Files[i]
		}
	}
	return nil
}

// Detector runs whistle detection over composite images
type Detector interface {
	Detect(ctx context.Context, imagePaths []string) (*Report, error)
}

// Validate checks that paths is non-empty and every image exists
func Validate(paths []string) error {
	if len(paths) == 0 {
		return ErrNoInputs
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			return fmt.Errorf("%w: %s", ErrInputMissing, p)
		}
	}
	return nil
}
