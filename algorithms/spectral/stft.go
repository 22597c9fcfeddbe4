package spectral

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/RyanBlaney/fkw-sonar/algorithms/common"
	"github.com/RyanBlaney/fkw-sonar/logging"
)

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	fft    *FFT
	logger logging.Logger
}

// STFTResult holds a one-sided power spectral density spectrogram.
//
// Power is laid out Time x Frequency: Power[frame][bin]. Freqs and Times give
// the coordinates of every bin and frame center.
type STFTResult struct {
	Power          [][]float64 `json:"power"`
	Freqs          []float64   `json:"freqs"`           // Hz, one per bin
	Times          []float64   `json:"times"`           // seconds, frame centers
	TimeFrames     int         `json:"time_frames"`     // Number of time frames
	FreqBins       int         `json:"freq_bins"`       // Number of frequency bins
	SampleRate     int         `json:"sample_rate"`     // Sample rate
	WindowSize     int         `json:"window_size"`     // FFT window size
	HopSize        int         `json:"hop_size"`        // Hop size between frames
	FreqResolution float64     `json:"freq_resolution"` // Frequency resolution (Hz/bin)
	TimeResolution float64     `json:"time_resolution"` // Time resolution (seconds/frame)
}

// Window is a tapering function applied to each frame before the FFT
type Window interface {
	ApplyInPlace(signal []float64) error
	SumSquares() float64
	GetSize() int
}

// NewSTFT creates a new STFT calculator
func NewSTFT() *STFT {
	return &STFT{
		fft: NewFFT(),
		logger: logging.WithFields(logging.Fields{
			"component": "stft",
		}),
	}
}

// ComputePSD computes a density-scaled power spectrogram.
//
// Each frame has its mean removed (constant detrend), is tapered by window,
// and transformed. Power is |X|² / (fs·Σw²), doubled for every bin except
// DC and (for even sizes) Nyquist, so integrating over frequency yields the
// signal power. Frames are spread over a worker pool; frame k always lands in
// row k.
func (s *STFT) ComputePSD(signal []float64, hopSize int, sampleRate int, window Window) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if window == nil {
		return nil, fmt.Errorf("window is required")
	}

	windowSize := window.GetSize()
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}

	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive")
	}

	if len(signal) < windowSize {
		return nil, fmt.Errorf("signal too short for given window size and hop size")
	}
	numFrames := (len(signal)-windowSize)/hopSize + 1

	sumSquares := window.SumSquares()
	if sumSquares <= 0 {
		return nil, fmt.Errorf("window has no energy")
	}

	freqBins := windowSize/2 + 1
	scale := 1.0 / (float64(sampleRate) * sumSquares)

	power := make([][]float64, numFrames)
	for i := range numFrames {
		power[i] = make([]float64, freqBins)
	}

	numWorkers := max(s.getOptimalWorkerCount(numFrames), 1)

	type frameJob struct {
		frameIdx int
		startIdx int
	}

	jobs := make(chan frameJob, numFrames)
	errs := make(chan error, numWorkers)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Reuse frame buffer for this worker
			frameBuffer := make([]float64, windowSize)

			for job := range jobs {
				copy(frameBuffer, signal[job.startIdx:job.startIdx+windowSize])

				mean := common.Mean(frameBuffer)
				for i := range frameBuffer {
					frameBuffer[i] -= mean
				}

				if err := window.ApplyInPlace(frameBuffer); err != nil {
					errs <- fmt.Errorf("frame %d: %w", job.frameIdx, err)
					return
				}

				spectrum := s.fft.Compute(frameBuffer)

				row := power[job.frameIdx]
				for i := range freqBins {
					re, im := real(spectrum[i]), imag(spectrum[i])
					p := (re*re + im*im) * scale
					if i != 0 && !(windowSize%2 == 0 && i == freqBins-1) {
						p *= 2
					}
					row[i] = p
				}
			}
		}()
	}

	for frameIdx := range numFrames {
		jobs <- frameJob{frameIdx: frameIdx, startIdx: frameIdx * hopSize}
	}
	close(jobs)

	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		return nil, err
	}

	times := make([]float64, numFrames)
	for i := range times {
		center := float64(i*hopSize) + float64(windowSize)/2
		times[i] = center / float64(sampleRate)
	}

	s.logger.Debug("Computed PSD spectrogram", logging.Fields{
		"frames":      numFrames,
		"freq_bins":   freqBins,
		"workers":     numWorkers,
		"sample_rate": sampleRate,
	})

	return &STFTResult{
		Power:          power,
		Freqs:          BinFrequencies(windowSize, sampleRate),
		Times:          times,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     windowSize,
		HopSize:        hopSize,
		FreqResolution: float64(sampleRate) / float64(windowSize),
		TimeResolution: float64(hopSize) / float64(sampleRate),
	}, nil
}

// Band returns a copy of r restricted to bins with minHz <= f <= maxHz.
// An error is returned if no bin falls inside the band.
func (r *STFTResult) Band(minHz, maxHz float64) (*STFTResult, error) {
	lo, hi := -1, -1
	for i, f := range r.Freqs {
		if f >= minHz && f <= maxHz {
			if lo < 0 {
				lo = i
			}
			hi = i
		}
	}
	if lo < 0 {
		return nil, fmt.Errorf("no frequency bins in band [%.0f, %.0f] Hz", minHz, maxHz)
	}

	power := make([][]float64, r.TimeFrames)
	for t := range power {
		power[t] = append([]float64(nil), r.Power[t][lo:hi+1]...)
	}

	band := *r
	band.Power = power
	band.Freqs = append([]float64(nil), r.Freqs[lo:hi+1]...)
	band.Times = append([]float64(nil), r.Times...)
	band.FreqBins = hi - lo + 1
	return &band, nil
}

// getOptimalWorkerCount determines the optimal number of workers based on workload
func (s *STFT) getOptimalWorkerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if numFrames < 100 {
		return min(numCPU/2, numFrames)
	}

	if numFrames < 1000 {
		return min(numCPU, 8)
	}

	return numCPU
}
