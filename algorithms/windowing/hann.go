package windowing

import (
	"fmt"
	"math"
)

// Hann represents a Hann window function.
//
// A periodic window (symmetric == false) is the DFT-even form used for
// spectral analysis: the denominator is N, not N-1.
type Hann struct {
	size         int
	symmetric    bool
	coefficients []float64
	sumSquares   float64
}

// NewHann creates a new Hann window
func NewHann(size int, symmetric bool) (*Hann, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", size)
	}

	h := &Hann{
		size:      size,
		symmetric: symmetric,
	}
	h.generate()
	return h, nil
}

func (h *Hann) generate() {
	h.coefficients = make([]float64, h.size)

	if h.size == 1 {
		h.coefficients[0] = 1
		h.sumSquares = 1
		return
	}

	denominator := float64(h.size)
	if h.symmetric {
		denominator = float64(h.size - 1)
	}

	h.sumSquares = 0
	for i := range h.size {
		c := 0.5 * (1.0 - math.Cos(2*math.Pi*float64(i)/denominator))
		h.coefficients[i] = c
		h.sumSquares += c * c
	}
}

// Apply applies the window to a signal (creates new array)
func (h *Hann) Apply(signal []float64) []float64 {
	if len(signal) != h.size {
		return nil
	}

	windowed := make([]float64, h.size)
	for i, c := range h.coefficients {
		windowed[i] = signal[i] * c
	}

	return windowed
}

// ApplyInPlace applies the window to a signal in-place
func (h *Hann) ApplyInPlace(signal []float64) error {
	if len(signal) != h.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), h.size)
	}

	for i, c := range h.coefficients {
		signal[i] *= c
	}

	return nil
}

// SumSquares returns Σw², the normalizer for power spectral density scaling
func (h *Hann) SumSquares() float64 {
	return h.sumSquares
}

// GetCoefficients returns a copy of the window coefficients
func (h *Hann) GetCoefficients() []float64 {
	coeffs := make([]float64, len(h.coefficients))
	copy(coeffs, h.coefficients)
	return coeffs
}

// GetSize returns the window size
func (h *Hann) GetSize() int {
	return h.size
}

// GetType returns the window type
func (h *Hann) GetType() string {
	return "hann"
}
