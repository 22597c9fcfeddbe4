package spectral

import (
	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the Fast Fourier Transform of a real signal using mjibson/go-dsp.
// The full (two-sided) spectrum of len(x) bins is returned.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	// go-dsp handles non-power-of-2 sizes via Bluestein
	return fft.FFTReal(x)
}

// BinFrequencies returns the frequency in Hz of each one-sided bin
// (0 .. n/2 inclusive) for an n-point transform at sampleRate.
func BinFrequencies(n int, sampleRate int) []float64 {
	if n <= 0 || sampleRate <= 0 {
		return []float64{}
	}

	freqs := make([]float64, n/2+1)
	step := float64(sampleRate) / float64(n)
	for i := range freqs {
		freqs[i] = float64(i) * step
	}
	return freqs
}
