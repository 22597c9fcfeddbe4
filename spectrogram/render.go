package spectrogram

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"github.com/RyanBlaney/fkw-sonar/algorithms/common"
	"github.com/RyanBlaney/fkw-sonar/logging"
	"github.com/RyanBlaney/fkw-sonar/spectrogram/config"
)

// renderer lays panels out into composite JPEGs
type renderer struct {
	cfg      config.Config
	analyzer *panelAnalyzer
	logger   logging.Logger
}

// ImageName returns "{base}-{index*panels+1:04d}.jpg"
func ImageName(baseName string, index, panelsPerImage int) string {
	return fmt.Sprintf("%s-%04d.jpg", baseName, index*panelsPerImage+1)
}

// render draws up to PanelsPerImage chunks as image index and returns the
// written path. Panel i is always drawn at vertical slot i; slots without a
// chunk stay black, so the image size never depends on the chunk count.
func (r *renderer) render(ctx context.Context, chunks []Chunk, sampleRate int, baseName string, index int, outputDir string) (string, error) {
	if len(chunks) == 0 || len(chunks) > r.cfg.PanelsPerImage {
		return "", fmt.Errorf("image %d takes 1-%d chunks, got %d", index, r.cfg.PanelsPerImage, len(chunks))
	}

	rc := r.cfg.Render
	canvas := image.NewRGBA(image.Rect(0, 0, rc.Width, rc.ImageHeight(r.cfg.PanelsPerImage)))
	draw.Draw(canvas, canvas.Bounds(), image.Black, image.Point{}, draw.Src)

	for slot, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		panel, err := r.analyzer.analyze(chunk, sampleRate)
		if err != nil {
			return "", err
		}
		r.drawPanel(canvas, panel, rc.PanelTop(slot))
	}

	path := filepath.Join(outputDir, ImageName(baseName, index, r.cfg.PanelsPerImage))
	if err := writeJPEG(path, canvas, rc.JPEGQuality); err != nil {
		return "", err
	}

	r.logger.Debug("Composite image written", logging.Fields{
		"path":        path,
		"image_index": index,
		"first_chunk": chunks[0].Index,
		"width":       canvas.Bounds().Dx(),
		"height":      canvas.Bounds().Dy(),
	})

	return path, nil
}

// drawPanel rasterizes panel into the rows [top, top+PanelHeight).
//
// The vertical axis spans PlotMax (top row) down to PlotMin; the horizontal
// axis spans the first to last frame center. Values between spectrogram
// vertices are interpolated bilinearly and mapped through a reversed gray
// scale (quiet = white, loud = black) normalized over the analysed band.
// Rows above or below the analysed bins stay black.
func (r *renderer) drawPanel(canvas *image.RGBA, panel *Panel, top int) {
	rc := r.cfg.Render
	bounds := canvas.Bounds()

	t0, t1 := panel.Times[0], panel.Times[len(panel.Times)-1]
	cols := make([]float64, rc.Width)
	for x := range cols {
		t := t0 + (float64(x)+0.5)/float64(rc.Width)*(t1-t0)
		cols[x] = common.FractionalIndex(panel.Times, t)
	}

	span := panel.MaxDB - panel.MinDB
	fLo, fHi := panel.Freqs[0], panel.Freqs[len(panel.Freqs)-1]

	for y := range rc.PanelHeight {
		py := top + y
		if py < bounds.Min.Y || py >= bounds.Max.Y {
			continue
		}

		f := r.cfg.PlotMax - (float64(y)+0.5)/float64(rc.PanelHeight)*(r.cfg.PlotMax-r.cfg.PlotMin)
		if f < fLo || f > fHi {
			continue
		}
		fi := common.FractionalIndex(panel.Freqs, f)

		row := canvas.Pix[canvas.PixOffset(0, py):]
		for x, ti := range cols {
			v := common.BilinearInterpolate(panel.DB, fi, ti)

			norm := 0.0
			if span > 0 {
				norm = (v - panel.MinDB) / span
			}
			gray := uint8(math.Round(255 * (1 - min(max(norm, 0), 1))))

			px := row[x*4 : x*4+4 : x*4+4]
			px[0], px[1], px[2], px[3] = gray, gray, gray, 0xff
		}
	}
}

// writeJPEG encodes img next to path and renames it into place, so a failed
// encode never leaves a truncated image behind.
func writeJPEG(path string, img image.Image, quality int) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := jpeg.Encode(tmp, img, &jpeg.Options{Quality: quality}); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
