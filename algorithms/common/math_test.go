package common

import (
	"math"
	"testing"
)

func TestMatrixRange(t *testing.T) {
	lo, hi, ok := MatrixRange([][]float64{{3, -1}, {}, {7, 2}})
	if !ok || lo != -1 || hi != 7 {
		t.Errorf("MatrixRange = (%v, %v, %v), want (-1, 7, true)", lo, hi, ok)
	}

	if _, _, ok := MatrixRange(nil); ok {
		t.Error("empty matrix should not be ok")
	}
	if _, _, ok := MatrixRange([][]float64{{1, math.NaN()}}); ok {
		t.Error("NaN matrix should not be ok")
	}
	if _, _, ok := MatrixRange([][]float64{{1, math.Inf(-1)}}); ok {
		t.Error("infinite matrix should not be ok")
	}
}

func TestColumnMeansAndArgMax(t *testing.T) {
	means := ColumnMeans([][]float64{{1, 4, 0}, {3, 8, 0}})
	want := []float64{2, 6, 0}
	for i := range want {
		if means[i] != want[i] {
			t.Errorf("means[%d] = %v, want %v", i, means[i], want[i])
		}
	}

	if got := ArgMax(means); got != 1 {
		t.Errorf("ArgMax = %d, want 1", got)
	}
	if got := ArgMax(nil); got != -1 {
		t.Errorf("ArgMax(nil) = %d, want -1", got)
	}
}

func TestRMS(t *testing.T) {
	if got := RMS([]float64{3, -3, 3, -3}); got != 3 {
		t.Errorf("RMS = %v, want 3", got)
	}
}

func TestBilinearInterpolate(t *testing.T) {
	data := [][]float64{
		{0, 10},
		{20, 30},
	}

	tests := []struct {
		x, y, want float64
	}{
		{0, 0, 0},
		{1, 1, 30},
		{0.5, 0, 5},
		{0, 0.5, 10},
		{0.5, 0.5, 15},
		{-3, 9, 20}, // clamped
	}
	for _, tt := range tests {
		if got := BilinearInterpolate(data, tt.x, tt.y); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("BilinearInterpolate(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestFractionalIndex(t *testing.T) {
	axis := []float64{100, 200, 300, 400}

	tests := []struct {
		v, want float64
	}{
		{50, 0},
		{100, 0},
		{250, 1.5},
		{325, 2.25},
		{400, 3},
		{900, 3},
	}
	for _, tt := range tests {
		if got := FractionalIndex(axis, tt.v); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("FractionalIndex(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
