// Package spectrogram turns one-minute hydrophone recordings into the
// composite spectrogram images consumed by the whistle detector.
//
// A recording is decoded, validated (channel and duration), cut into 3 s
// chunks and drawn as two images of ten panels each:
//
//	rec.wav -> rec-0001.jpg (chunks 0-9), rec-0011.jpg (chunks 10-19)
//
// Every failure is returned as an *Error whose Kind tells data problems
// (bad format, channel, duration, too few chunks) apart from rendering
// problems.
package spectrogram

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/fkw-sonar/algorithms/common"
	"github.com/RyanBlaney/fkw-sonar/logging"
	"github.com/RyanBlaney/fkw-sonar/spectrogram/config"
	"github.com/RyanBlaney/fkw-sonar/transcode"
)

// Result describes a successful transform
type Result struct {
	Source     string   `json:"source"`
	Paths      []string `json:"paths"` // image order
	SampleRate int      `json:"sample_rate"`
	Channel    int      `json:"channel"`
	Duration   float64  `json:"duration"` // seconds
	ChunkCount int      `json:"chunk_count"`

	// Whole chunks past the last image that were not rendered
	ExtraChunksIgnored int `json:"extra_chunks_ignored"`

	// Panel slots left black because the recording was short
	PaddedPanels int `json:"padded_panels"`
}

// Transformer converts WAV files into composite spectrogram images.
// It holds no per-call state and is safe for concurrent use as long as
// calls write to distinct output paths.
type Transformer struct {
	cfg      config.Config
	decoder  *transcode.Decoder
	renderer *renderer
	logger   logging.Logger
}

// Option customizes a Transformer
type Option func(*Transformer)

// WithDecoder replaces the default WAV decoder
func WithDecoder(d *transcode.Decoder) Option {
	return func(t *Transformer) {
		t.decoder = d
	}
}

// WithLogger replaces the package logger
func WithLogger(l logging.Logger) Option {
	return func(t *Transformer) {
		t.logger = l
	}
}

// New validates cfg and builds a Transformer around a copy of it
func New(cfg config.Config, opts ...Option) (*Transformer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("spectrogram config: %w", err)
	}

	analyzer, err := newPanelAnalyzer(cfg)
	if err != nil {
		return nil, err
	}

	t := &Transformer{
		cfg:     cfg,
		decoder: transcode.NewDecoder(nil),
		logger: logging.WithFields(logging.Fields{
			"component": "spectrogram_transformer",
		}),
	}
	for _, opt := range opts {
		opt(t)
	}

	t.renderer = &renderer{cfg: cfg, analyzer: analyzer, logger: t.logger}
	return t, nil
}

// Config returns the transformer's configuration
func (t *Transformer) Config() config.Config {
	return t.cfg
}

// TransformDefault runs Transform on the configured default channel
func (t *Transformer) TransformDefault(ctx context.Context, wavPath, outputDir string) (*Result, error) {
	return t.Transform(ctx, wavPath, outputDir, t.cfg.DefaultChannel)
}

// Transform decodes wavPath, validates it and writes ImagesPerFile composite
// images into outputDir (created if missing).
//
// Nothing is written when decoding, validation or chunking fails. If a later
// image fails to render, earlier images stay on disk and are listed in the
// returned error's Written field.
func (t *Transformer) Transform(ctx context.Context, wavPath, outputDir string, channel int) (res *Result, err error) {
	logger := t.logger.WithFields(logging.Fields{
		"function": "Transform",
		"source":   filepath.Base(wavPath),
		"channel":  channel,
	})

	// Images already on disk, reported in Error.Written on failure
	var paths []string

	defer func() {
		if r := recover(); r != nil {
			res = nil
			e := newError(RenderFailure, nil, "unexpected failure processing %s: %v", wavPath, r)
			e.Written = append([]string(nil), paths...)
			err = e
		}
		if err != nil {
			logger.Error(err, "Transform failed")
		}
	}()

	baseName := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))

	audio, err := t.decoder.DecodeFile(wavPath, channel)
	if err != nil {
		var chErr *transcode.ChannelError
		if errors.As(err, &chErr) {
			return nil, &Error{Kind: ChannelOutOfRange, Msg: chErr.Error(), Channels: chErr.Available}
		}
		return nil, &Error{Kind: InvalidFormat, Msg: "Invalid input file type. Supported file type(s): .wav", Err: err}
	}

	duration := audio.Seconds()
	if !(duration > t.cfg.MinDurationSeconds && duration < t.cfg.MaxDurationSeconds) {
		rounded := roundTenth(duration)
		return nil, &Error{
			Kind:     DurationOutOfRange,
			Msg:      fmt.Sprintf("Length not ~60 second (%.1fs), undefined behavior", duration),
			Duration: rounded,
		}
	}

	samplesPerChunk := SamplesPerChunk(audio.SampleRate, t.cfg.ChunkSeconds)
	if samplesPerChunk < t.cfg.WindowSize {
		return nil, newError(RenderFailure, nil,
			"chunks of %d samples are shorter than the %d-sample analysis window", samplesPerChunk, t.cfg.WindowSize)
	}

	chunks := SplitChunks(audio.PCM, samplesPerChunk)
	required := t.cfg.ChunksRequired()
	padded, extra := 0, 0
	switch {
	case len(chunks) > required:
		extra = len(chunks) - required
		logger.Warn("Chunks beyond the last image are ignored", logging.Fields{
			"chunks":  len(chunks),
			"ignored": extra,
		})
	case len(chunks) < required:
		// Every image needs at least one chunk even when padding
		lastImageStart := (t.cfg.ImagesPerFile - 1) * t.cfg.PanelsPerImage
		if t.cfg.ShortFilePolicy == config.ShortFileFail || len(chunks) <= lastImageStart {
			return nil, &Error{
				Kind:   InsufficientChunks,
				Msg:    fmt.Sprintf("%d whole chunks available, %d required", len(chunks), required),
				Chunks: len(chunks),
			}
		}
		padded = required - len(chunks)
		logger.Warn("Too few chunks, padding missing panels", logging.Fields{
			"chunks": len(chunks),
			"padded": padded,
		})
	}

	logger.Debug("Waveform validated", logging.Fields{
		"sample_rate":       audio.SampleRate,
		"duration":          duration,
		"samples_per_chunk": samplesPerChunk,
		"chunks":            len(chunks),
		"rms":               common.RMS(audio.PCM),
	})

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, newError(RenderFailure, err, "cannot create output directory %s", outputDir)
	}

	paths = make([]string, 0, t.cfg.ImagesPerFile)
	for index := range t.cfg.ImagesPerFile {
		path, err := t.RenderImage(ctx, chunks, audio.SampleRate, baseName, index, outputDir)
		if err != nil {
			var e *Error
			if errors.As(err, &e) {
				e.Written = append([]string(nil), paths...)
			}
			return nil, err
		}
		paths = append(paths, path)
	}

	logger.Info("Spectrogram images written", logging.Fields{
		"images":  len(paths),
		"chunks":  len(chunks),
		"ignored": extra,
		"padded":  padded,
	})

	return &Result{
		Source:             wavPath,
		Paths:              paths,
		SampleRate:         audio.SampleRate,
		Channel:            audio.Channel,
		Duration:           duration,
		ChunkCount:         len(chunks),
		ExtraChunksIgnored: extra,
		PaddedPanels:       padded,
	}, nil
}

// RenderImage draws image index from chunks[index*P : index*P+P], where P is
// PanelsPerImage, and returns its path. Under the pad policy a trailing image
// may hold fewer than P chunks; its empty slots stay black.
func (t *Transformer) RenderImage(ctx context.Context, chunks []Chunk, sampleRate int, baseName string, index int, outputDir string) (string, error) {
	panels := t.cfg.PanelsPerImage
	start := index * panels
	end := min(start+panels, len(chunks))

	short := end-start < panels
	if index < 0 || start >= len(chunks) || (short && t.cfg.ShortFilePolicy == config.ShortFileFail) {
		return "", &Error{
			Kind:   InsufficientChunks,
			Msg:    fmt.Sprintf("image %d needs chunks %d-%d, have %d", index, start, start+panels-1, len(chunks)),
			Chunks: len(chunks),
		}
	}

	path, err := t.renderer.render(ctx, chunks[start:end], sampleRate, baseName, index, outputDir)
	if err != nil {
		return "", newError(RenderFailure, err, "rendering image %d of %s", index, baseName)
	}
	return path, nil
}

// Panels computes the spectrogram data of chunks without drawing them
func (t *Transformer) Panels(chunks []Chunk, sampleRate int) ([]*Panel, error) {
	panels := make([]*Panel, 0, len(chunks))
	for _, chunk := range chunks {
		p, err := t.renderer.analyzer.analyze(chunk, sampleRate)
		if err != nil {
			return nil, newError(RenderFailure, err, "analysing chunk %d", chunk.Index)
		}
		panels = append(panels, p)
	}
	return panels, nil
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
