// Package pipeline chains the spectrogram transform and whistle detection
// for single recordings and for CSV worklists of recordings.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/fkw-sonar/detection"
	"github.com/RyanBlaney/fkw-sonar/logging"
	"github.com/RyanBlaney/fkw-sonar/spectrogram"
)

// Transformer renders a recording into composite images
type Transformer interface {
	Transform(ctx context.Context, wavPath, outputDir string, channel int) (*spectrogram.Result, error)
}

var _ Transformer = (*spectrogram.Transformer)(nil)

// Outcome of one recording. Transform is nil when the transform failed and
// Report is nil when detection did not run or failed.
type Outcome struct {
	Source     string              `json:"source"`
	Transform  *spectrogram.Result `json:"transform,omitempty"`
	Report     *detection.Report   `json:"report,omitempty"`
	ReportPath string              `json:"report_path,omitempty"`
}

// Detections returns the total detection count, 0 without a report
func (o *Outcome) Detections() int {
	if o == nil || o.Report == nil {
		return 0
	}
	return o.Report.TotalDetections
}

// Runner transforms recordings and forwards the images to a detector
type Runner struct {
	transformer Transformer
	detector    detection.Detector
	channel     int
	workers     int
	saveReports bool
	logger      logging.Logger
}

// RunnerOption customizes a Runner
type RunnerOption func(*Runner)

// WithChannel selects the hydrophone channel (default 5)
func WithChannel(channel int) RunnerOption {
	return func(r *Runner) {
		r.channel = channel
	}
}

// WithWorkers sets how many manifest entries are processed at once
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithReports saves each detection report as {base}.json next to the images
func WithReports(save bool) RunnerOption {
	return func(r *Runner) {
		r.saveReports = save
	}
}

// NewRunner builds a Runner
func NewRunner(transformer Transformer, detector detection.Detector, opts ...RunnerOption) *Runner {
	r := &Runner{
		transformer: transformer,
		detector:    detector,
		channel:     5,
		workers:     1,
		logger: logging.WithFields(logging.Fields{
			"component": "pipeline_runner",
		}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run transforms wavPath into outputDir and runs detection on the images.
// The detector is never called when the transform fails.
func (r *Runner) Run(ctx context.Context, wavPath, outputDir string) (*Outcome, error) {
	outcome := &Outcome{Source: wavPath}

	res, err := r.transformer.Transform(ctx, wavPath, outputDir, r.channel)
	if err != nil {
		return outcome, fmt.Errorf("transform %s: %w", filepath.Base(wavPath), err)
	}
	outcome.Transform = res

	report, err := r.detector.Detect(ctx, res.Paths)
	if err != nil {
		return outcome, fmt.Errorf("detect %s: %w", filepath.Base(wavPath), err)
	}
	outcome.Report = report

	if r.saveReports {
		base := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))
		path := filepath.Join(outputDir, base+".json")
		if err := detection.SaveReport(report, path); err != nil {
			return outcome, err
		}
		outcome.ReportPath = path
	}

	r.logger.Info("Recording processed", logging.Fields{
		"source":     filepath.Base(wavPath),
		"images":     len(res.Paths),
		"detections": report.TotalDetections,
	})
	return outcome, nil
}
