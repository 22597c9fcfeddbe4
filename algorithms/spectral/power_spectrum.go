package spectral

import (
	"math"
)

// DefaultEpsilon keeps log10 finite for zero-power bins
const DefaultEpsilon = 1e-10

// PowerSpectrum converts power spectra to decibels
type PowerSpectrum struct {
	epsilon float64
}

// NewPowerSpectrum creates a new power spectrum calculator. A non-positive
// epsilon falls back to DefaultEpsilon.
func NewPowerSpectrum(epsilon float64) *PowerSpectrum {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &PowerSpectrum{epsilon: epsilon}
}

// ComputeLog returns 10·log10(p + ε) for every value
func (ps *PowerSpectrum) ComputeLog(power []float64) []float64 {
	if len(power) == 0 {
		return []float64{}
	}

	logPower := make([]float64, len(power))
	for i, p := range power {
		logPower[i] = 10 * math.Log10(p+ps.epsilon)
	}

	return logPower
}

// ComputeLogFrames processes multiple frames with log conversion
func (ps *PowerSpectrum) ComputeLogFrames(frames [][]float64) [][]float64 {
	if len(frames) == 0 {
		return [][]float64{}
	}

	logPower := make([][]float64, len(frames))
	for t, frame := range frames {
		logPower[t] = ps.ComputeLog(frame)
	}

	return logPower
}

// ComputeLogFromSTFT converts an STFT power result to dB
func (ps *PowerSpectrum) ComputeLogFromSTFT(stftResult *STFTResult) [][]float64 {
	return ps.ComputeLogFrames(stftResult.Power)
}
