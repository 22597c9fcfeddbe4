package windowing

import (
	"math"
	"testing"
)

func TestHannPeriodic(t *testing.T) {
	h, err := NewHann(8, false)
	if err != nil {
		t.Fatalf("NewHann: %v", err)
	}

	coeffs := h.GetCoefficients()
	if coeffs[0] != 0 {
		t.Errorf("first coefficient = %v, want 0", coeffs[0])
	}
	// Periodic window peaks at N/2 and is not symmetric at the tail
	if math.Abs(coeffs[4]-1) > 1e-12 {
		t.Errorf("center coefficient = %v, want 1", coeffs[4])
	}
	if coeffs[7] == 0 {
		t.Error("periodic window must not end at zero")
	}

	// Σ sin^4(πn/N) over a full period is 3N/8
	if got, want := h.SumSquares(), 3.0*8/8; math.Abs(got-want) > 1e-12 {
		t.Errorf("SumSquares = %v, want %v", got, want)
	}
}

func TestHannSymmetric(t *testing.T) {
	h, err := NewHann(9, true)
	if err != nil {
		t.Fatalf("NewHann: %v", err)
	}
	coeffs := h.GetCoefficients()
	for i := range coeffs {
		if math.Abs(coeffs[i]-coeffs[len(coeffs)-1-i]) > 1e-12 {
			t.Fatalf("coefficient %d not mirrored", i)
		}
	}
}

func TestHannApplyInPlace(t *testing.T) {
	h, _ := NewHann(4, false)

	signal := []float64{2, 2, 2, 2}
	if err := h.ApplyInPlace(signal); err != nil {
		t.Fatalf("ApplyInPlace: %v", err)
	}
	want := []float64{0, 1, 2, 1}
	for i := range want {
		if math.Abs(signal[i]-want[i]) > 1e-12 {
			t.Errorf("signal[%d] = %v, want %v", i, signal[i], want[i])
		}
	}

	if err := h.ApplyInPlace(make([]float64, 3)); err == nil {
		t.Error("expected length mismatch error")
	}
}

func TestNewHannRejectsNonPositiveSize(t *testing.T) {
	if _, err := NewHann(0, false); err == nil {
		t.Error("expected error for zero size")
	}
}
