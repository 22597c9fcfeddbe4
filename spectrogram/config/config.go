package config

import (
	"errors"
	"fmt"
)

// Short-file policies: what to do when a recording yields fewer whole chunks
// than PanelsPerImage*ImagesPerFile.
const (
	// ShortFilePad leaves missing panel slots black
	ShortFilePad = "pad"
	// ShortFileFail rejects the recording with InsufficientChunks
	ShortFileFail = "fail"
)

// Config holds the constants of the spectrogram transform. Values are
// validated once by the transformer and never mutated afterwards.
type Config struct {
	// Chunking
	ChunkSeconds   float64 `yaml:"chunk_seconds" json:"chunk_seconds"`
	PanelsPerImage int     `yaml:"panels_per_image" json:"panels_per_image"`
	ImagesPerFile  int     `yaml:"images_per_file" json:"images_per_file"`
	DefaultChannel int     `yaml:"default_channel" json:"default_channel"`

	// ShortFilePolicy is ShortFilePad or ShortFileFail
	ShortFilePolicy string `yaml:"short_file_policy" json:"short_file_policy"`

	// Accepted duration, exclusive on both ends
	MinDurationSeconds float64 `yaml:"min_duration_seconds" json:"min_duration_seconds"`
	MaxDurationSeconds float64 `yaml:"max_duration_seconds" json:"max_duration_seconds"`

	// Spectral analysis
	WindowSize int     `yaml:"window_size" json:"window_size"`
	HopSize    int     `yaml:"hop_size" json:"hop_size"`
	FreqMin    float64 `yaml:"freq_min" json:"freq_min"` // analysed band, Hz
	FreqMax    float64 `yaml:"freq_max" json:"freq_max"`
	PlotMin    float64 `yaml:"plot_min" json:"plot_min"` // displayed band, Hz
	PlotMax    float64 `yaml:"plot_max" json:"plot_max"`
	Epsilon    float64 `yaml:"epsilon" json:"epsilon"`

	// Layout
	Render RenderConfig `yaml:"render" json:"render"`
}

// RenderConfig describes the composite image raster
type RenderConfig struct {
	Width       int `yaml:"width" json:"width"`               // pixels
	PanelHeight int `yaml:"panel_height" json:"panel_height"` // pixels per panel
	PanelGap    int `yaml:"panel_gap" json:"panel_gap"`       // black rows between panels; negative overlaps
	JPEGQuality int `yaml:"jpeg_quality" json:"jpeg_quality"`
}

// DefaultConfig returns the settings used for one-minute FKW recordings:
// 3 s chunks, 10 panels per image, two images, channel 5, Hann 1024/512,
// 3500-9500 Hz analysed and 4000-9000 Hz displayed.
func DefaultConfig() Config {
	return Config{
		ChunkSeconds:       3,
		PanelsPerImage:     10,
		ImagesPerFile:      2,
		DefaultChannel:     5,
		ShortFilePolicy:    ShortFilePad,
		MinDurationSeconds: 58,
		MaxDurationSeconds: 62,
		WindowSize:         1024,
		HopSize:            512,
		FreqMin:            3500,
		FreqMax:            9500,
		PlotMin:            4000,
		PlotMax:            9000,
		Epsilon:            1e-10,
		Render:             DefaultRenderConfig(),
	}
}

// DefaultRenderConfig sizes the image as 8 inches at 300 DPI: 2400 px wide
// and 10*236 + 9*4 = 2396 px tall.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Width:       2400,
		PanelHeight: 236,
		PanelGap:    4,
		JPEGQuality: 95,
	}
}

// ChunksRequired is the number of chunks one file must yield
func (c Config) ChunksRequired() int {
	return c.PanelsPerImage * c.ImagesPerFile
}

// Validate checks ranges and the ordering
// 0 < FreqMin <= PlotMin < PlotMax <= FreqMax.
func (c Config) Validate() error {
	var errs []error

	if c.ChunkSeconds <= 0 {
		errs = append(errs, fmt.Errorf("chunk_seconds must be positive, got %v", c.ChunkSeconds))
	}
	if c.PanelsPerImage < 1 {
		errs = append(errs, fmt.Errorf("panels_per_image must be at least 1, got %d", c.PanelsPerImage))
	}
	if c.ImagesPerFile < 1 {
		errs = append(errs, fmt.Errorf("images_per_file must be at least 1, got %d", c.ImagesPerFile))
	}
	if c.DefaultChannel < 0 {
		errs = append(errs, fmt.Errorf("default_channel must not be negative, got %d", c.DefaultChannel))
	}
	if c.ShortFilePolicy != ShortFilePad && c.ShortFilePolicy != ShortFileFail {
		errs = append(errs, fmt.Errorf("short_file_policy must be %q or %q, got %q",
			ShortFilePad, ShortFileFail, c.ShortFilePolicy))
	}
	if c.MinDurationSeconds < 0 || c.MinDurationSeconds >= c.MaxDurationSeconds {
		errs = append(errs, fmt.Errorf("duration bounds must satisfy 0 <= min < max, got (%v, %v)",
			c.MinDurationSeconds, c.MaxDurationSeconds))
	}
	if c.WindowSize < 2 {
		errs = append(errs, fmt.Errorf("window_size must be at least 2, got %d", c.WindowSize))
	}
	if c.HopSize < 1 || c.HopSize > c.WindowSize {
		errs = append(errs, fmt.Errorf("hop_size must be in [1, window_size], got %d", c.HopSize))
	}
	if !(c.FreqMin > 0 && c.FreqMin <= c.PlotMin && c.PlotMin < c.PlotMax && c.PlotMax <= c.FreqMax) {
		errs = append(errs, fmt.Errorf("frequency bounds must satisfy 0 < freq_min <= plot_min < plot_max <= freq_max, got %v/%v/%v/%v",
			c.FreqMin, c.PlotMin, c.PlotMax, c.FreqMax))
	}
	if c.Epsilon <= 0 {
		errs = append(errs, fmt.Errorf("epsilon must be positive, got %v", c.Epsilon))
	}
	if err := c.Render.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("render config: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks the raster settings
func (r RenderConfig) Validate() error {
	var errs []error

	if r.Width < 1 {
		errs = append(errs, fmt.Errorf("width must be positive, got %d", r.Width))
	}
	if r.PanelHeight < 1 {
		errs = append(errs, fmt.Errorf("panel_height must be positive, got %d", r.PanelHeight))
	}
	if r.PanelGap <= -r.PanelHeight {
		errs = append(errs, fmt.Errorf("panel_gap %d would hide whole panels", r.PanelGap))
	}
	if r.JPEGQuality < 1 || r.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg_quality must be in [1, 100], got %d", r.JPEGQuality))
	}

	return errors.Join(errs...)
}

// ImageHeight is the pixel height of a composite holding panels panels
func (r RenderConfig) ImageHeight(panels int) int {
	if panels < 1 {
		return 0
	}
	return panels*r.PanelHeight + (panels-1)*r.PanelGap
}

// PanelTop is the first pixel row of panel i
func (r RenderConfig) PanelTop(i int) int {
	return i * (r.PanelHeight + r.PanelGap)
}
