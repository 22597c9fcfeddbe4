package detection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/RyanBlaney/fkw-sonar/logging"
	"github.com/google/uuid"
)

var _ Detector = (*CommandDetector)(nil)

// CommandConfig describes the external inference command
type CommandConfig struct {
	// Program and leading arguments, e.g. python3 detection/predict.py
	Command []string `yaml:"command" json:"command"`

	ModelPath  string        `yaml:"model_path" json:"model_path"`
	Confidence float64       `yaml:"confidence" json:"confidence"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`

	// Extra environment entries appended to the current environment
	Env []string `yaml:"env,omitempty" json:"env,omitempty"`
}

// DefaultCommandConfig returns the settings of the deployed classifier
func DefaultCommandConfig() *CommandConfig {
	return &CommandConfig{
		Command:    []string{"python3", "detection/predict.py"},
		ModelPath:  "models/fkw_whistle_classifier_2.0.pt",
		Confidence: 0.25,
		Timeout:    5 * time.Minute,
	}
}

// Validate checks the command settings
func (c *CommandConfig) Validate() error {
	var errs []error
	if len(c.Command) == 0 || c.Command[0] == "" {
		errs = append(errs, errors.New("command must not be empty"))
	}
	if c.ModelPath == "" {
		errs = append(errs, errors.New("model_path must not be empty"))
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		errs = append(errs, fmt.Errorf("confidence %v outside [0, 1]", c.Confidence))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout %v must not be negative", c.Timeout))
	}
	return errors.Join(errs...)
}

// CommandDetector runs an external model process per call. The process gets
// --model, --conf and the image paths and prints
//
//	{"files": [{"file_path": "...", "detections": [{"confidence": 0.9, ...}]}]}
//
// on stdout.
type CommandDetector struct {
	config *CommandConfig
	logger logging.Logger
	now    func() time.Time
}

// NewCommandDetector validates config and builds a detector
func NewCommandDetector(config *CommandConfig) (*CommandDetector, error) {
	if config == nil {
		config = DefaultCommandConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("detector config: %w", err)
	}

	return &CommandDetector{
		config: config,
		logger: logging.WithFields(logging.Fields{
			"component": "command_detector",
		}),
		now: time.Now,
	}, nil
}

type commandOutput struct {
	Files []struct {
		FilePath   string      `json:"file_path"`
		Detections []Detection `json:"detections"`
	} `json:"files"`
}

// Detect runs the model over imagePaths. Detections below the configured
// confidence are dropped; out-of-range values fail the whole run.
func (d *CommandDetector) Detect(ctx context.Context, imagePaths []string) (*Report, error) {
	logger := d.logger.WithFields(logging.Fields{
		"function": "Detect",
		"images":   len(imagePaths),
	})

	if err := Validate(imagePaths); err != nil {
		return nil, err
	}
	if _, err := os.Stat(d.config.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelMissing, d.config.ModelPath)
	}

	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	args := append([]string(nil), d.config.Command[1:]...)
	args = append(args,
		"--model", d.config.ModelPath,
		"--conf", strconv.FormatFloat(d.config.Confidence, 'g', -1, 64),
	)
	args = append(args, imagePaths...)

	cmd := exec.CommandContext(ctx, d.config.Command[0], args...)
	if len(d.config.Env) > 0 {
		cmd.Env = append(os.Environ(), d.config.Env...)
	}

	logger.Debug("Running detector", logging.Fields{
		"program": d.config.Command[0],
		"model":   d.config.ModelPath,
	})

	output, err := cmd.Output()
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			logger.Error(err, "Detector process failed", logging.Fields{
				"stderr": string(exitError.Stderr),
			})
			return nil, fmt.Errorf("detector failed: %w, stderr: %s", err, string(exitError.Stderr))
		}
		return nil, fmt.Errorf("detector failed: %w", err)
	}

	report, err := d.parse(output, imagePaths)
	if err != nil {
		return nil, err
	}

	logger.Info("Detection finished", logging.Fields{
		"run_id":     report.RunID,
		"detections": report.TotalDetections,
	})
	return report, nil
}

// parse converts process output into a report ordered like imagePaths.
// Images the model did not mention get an empty result.
func (d *CommandDetector) parse(output []byte, imagePaths []string) (*Report, error) {
	var out commandOutput
	if err := json.Unmarshal(output, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadOutput, err)
	}

	byPath := make(map[string][]Detection, len(out.Files))
	for _, f := range out.Files {
		byPath[f.FilePath] = append(byPath[f.FilePath], f.Detections...)
	}

	report := &Report{
		RunID:      uuid.NewString(),
		Timestamp:  d.now().UTC(),
		Model:      d.config.ModelPath,
		Confidence: d.config.Confidence,
		Files:      make([]FileResult, 0, len(imagePaths)),
	}

	known := make(map[string]bool, len(imagePaths))
	for _, path := range imagePaths {
		known[path] = true

		result := FileResult{FilePath: path, Detections: []Detection{}}
		for _, det := range byPath[path] {
			if err := det.Validate(); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrBadOutput, path, err)
			}
			if det.Confidence < d.config.Confidence {
				continue
			}
			result.Detections = append(result.Detections, det)
		}
		result.DetectionCount = len(result.Detections)
		report.TotalDetections += result.DetectionCount
		report.Files = append(report.Files, result)
	}

	for path := range byPath {
		if !known[path] {
			return nil, fmt.Errorf("%w: result for unrequested image %s", ErrBadOutput, path)
		}
	}

	return report, nil
}
