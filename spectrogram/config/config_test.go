package config

import (
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := cfg.ChunksRequired(); got != 20 {
		t.Errorf("ChunksRequired = %d, want 20", got)
	}

	// Near-square composite
	h := cfg.Render.ImageHeight(cfg.PanelsPerImage)
	if ratio := float64(cfg.Render.Width) / float64(h); ratio < 0.95 || ratio > 1.05 {
		t.Errorf("aspect ratio %.3f (%dx%d) not near square", ratio, cfg.Render.Width, h)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"plot_min below freq_min", func(c *Config) { c.PlotMin = 3000 }},
		{"plot_max above freq_max", func(c *Config) { c.PlotMax = 10000 }},
		{"plot range inverted", func(c *Config) { c.PlotMin, c.PlotMax = 9000, 4000 }},
		{"zero chunk", func(c *Config) { c.ChunkSeconds = 0 }},
		{"no panels", func(c *Config) { c.PanelsPerImage = 0 }},
		{"negative channel", func(c *Config) { c.DefaultChannel = -1 }},
		{"duration inverted", func(c *Config) { c.MinDurationSeconds = 70 }},
		{"hop larger than window", func(c *Config) { c.HopSize = 2048 }},
		{"unknown short policy", func(c *Config) { c.ShortFilePolicy = "truncate" }},
		{"zero epsilon", func(c *Config) { c.Epsilon = 0 }},
		{"bad quality", func(c *Config) { c.Render.JPEGQuality = 101 }},
		{"gap hides panels", func(c *Config) { c.Render.PanelGap = -c.Render.PanelHeight }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestPanelGeometry(t *testing.T) {
	r := RenderConfig{Width: 100, PanelHeight: 10, PanelGap: 2, JPEGQuality: 90}

	if got := r.ImageHeight(3); got != 34 {
		t.Errorf("ImageHeight(3) = %d, want 34", got)
	}
	if got := r.PanelTop(2); got != 24 {
		t.Errorf("PanelTop(2) = %d, want 24", got)
	}

	r.PanelGap = -3
	if got := r.PanelTop(1); got != 7 {
		t.Errorf("overlapping PanelTop(1) = %d, want 7", got)
	}
}
