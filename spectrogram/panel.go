package spectrogram

import (
	"fmt"

	"github.com/RyanBlaney/fkw-sonar/algorithms/common"
	"github.com/RyanBlaney/fkw-sonar/algorithms/spectral"
	"github.com/RyanBlaney/fkw-sonar/algorithms/windowing"
	"github.com/RyanBlaney/fkw-sonar/spectrogram/config"
)

// Panel is the log-power spectrogram of one chunk, restricted to the
// analysed band. DB is laid out Time x Frequency.
type Panel struct {
	Chunk int
	Times []float64 // seconds from chunk start, frame centers
	Freqs []float64 // Hz
	DB    [][]float64

	// Color scale bounds over the whole analysed band
	MinDB float64
	MaxDB float64
}

// PeakFrequency returns the bin frequency with the highest time-averaged dB
func (p *Panel) PeakFrequency() float64 {
	idx := common.ArgMax(common.ColumnMeans(p.DB))
	if idx < 0 {
		return 0
	}
	return p.Freqs[idx]
}

// panelAnalyzer turns chunks into Panels. It is stateless after
// construction and safe for concurrent use.
type panelAnalyzer struct {
	cfg    config.Config
	stft   *spectral.STFT
	window *windowing.Hann
	power  *spectral.PowerSpectrum
}

func newPanelAnalyzer(cfg config.Config) (*panelAnalyzer, error) {
	window, err := windowing.NewHann(cfg.WindowSize, false)
	if err != nil {
		return nil, err
	}

	return &panelAnalyzer{
		cfg:    cfg,
		stft:   spectral.NewSTFT(),
		window: window,
		power:  spectral.NewPowerSpectrum(cfg.Epsilon),
	}, nil
}

func (a *panelAnalyzer) analyze(chunk Chunk, sampleRate int) (*Panel, error) {
	if len(chunk.Samples) == 0 {
		return nil, fmt.Errorf("chunk %d is empty", chunk.Index)
	}

	psd, err := a.stft.ComputePSD(chunk.Samples, a.cfg.HopSize, sampleRate, a.window)
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", chunk.Index, err)
	}

	band, err := psd.Band(a.cfg.FreqMin, a.cfg.FreqMax)
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", chunk.Index, err)
	}

	db := a.power.ComputeLogFromSTFT(band)
	lo, hi, ok := common.MatrixRange(db)
	if !ok {
		return nil, fmt.Errorf("chunk %d: spectrogram holds non-finite values", chunk.Index)
	}

	return &Panel{
		Chunk: chunk.Index,
		Times: band.Times,
		Freqs: band.Freqs,
		DB:    db,
		MinDB: lo,
		MaxDB: hi,
	}, nil
}
